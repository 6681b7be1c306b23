package preprocess

import "fmt"

// ShapeError means the pixel buffer disagrees with the expected tensor
// length. Got and Want count float values after alpha removal. The request
// must abort; silently truncating or padding would feed the model garbage.
type ShapeError struct {
	Got  int
	Want int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tensor shape mismatch: got %v values after alpha removal, want %v", e.Got, e.Want)
}

// BuildTensor converts a size×size row-major RGBA buffer into a flattened
// [1,3,size,size] float tensor: alpha dropped, channels planar (all R, then
// all G, then all B), each byte normalized to v/255.
//
// The value at index c*size*size + y*size + x is pixel (x,y)'s channel c
// divided by 255.
func BuildTensor(rgba []byte, size int) ([]float32, error) {
	plane := size * size
	if len(rgba) != plane*4 {
		return nil, &ShapeError{Got: len(rgba) / 4 * 3, Want: plane * 3}
	}
	out := make([]float32, 3*plane)
	for i := 0; i < plane; i++ {
		out[i] = float32(rgba[i*4]) / 255.0
		out[plane+i] = float32(rgba[i*4+1]) / 255.0
		out[2*plane+i] = float32(rgba[i*4+2]) / 255.0
	}
	return out, nil
}
