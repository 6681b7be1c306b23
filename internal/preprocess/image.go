// Package preprocess turns a user-supplied image into the flattened float
// tensor the model consumes: decode, scale to a fixed square, drop alpha,
// reorder to channel-major, normalize to [0,1].
package preprocess

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/nfnt/resize"
)

// ErrImageDecode means the source image could not be read or decoded. The
// request is aborted; there is no retry.
var ErrImageDecode = errors.New("image decode failed")

// DecodeImage decodes a JPEG, PNG or GIF image from r.
func DecodeImage(r io.Reader) (image.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

// ScaleToSquare scales img so its width equals size (height proportional,
// bilinear), then reads a size×size RGBA region from the origin. If the
// scaled image is shorter than size, the rows below it are zero-filled; if
// taller, the excess is cropped. The result is always size*size*4 bytes of
// row-major RGBA.
func ScaleToSquare(img image.Image, size int) []byte {
	scaled := resize.Resize(uint(size), 0, img, resize.Bilinear)
	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, scaled.Bounds().Intersect(canvas.Bounds()), scaled, image.Point{}, draw.Src)
	return canvas.Pix
}

// ImageToTensor runs the full preprocessing pipeline on a decoded image.
func ImageToTensor(img image.Image, size int) ([]float32, error) {
	return BuildTensor(ScaleToSquare(img, size), size)
}
