package model

import (
	"encoding/json"
	"fmt"
	"os"
)

// Metadata is the JSON sidecar saved alongside the exported .onnx file.
// The input and output tensor names are agreed upon at export time and are
// configuration, never discovered at runtime.
type Metadata struct {
	InputName   string  `json:"input_name"`
	OutputName  string  `json:"output_name"`
	InputShape  []int64 `json:"input_shape"`
	OutputShape []int64 `json:"output_shape"`
	ImageSize   int     `json:"image_size"`
}

// LoadMetadata reads and validates the model metadata file.
func LoadMetadata(filename string) (*Metadata, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}
	meta := &Metadata{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

func (m *Metadata) Validate() error {
	if m.InputName == "" || m.OutputName == "" {
		return fmt.Errorf("metadata must declare input_name and output_name")
	}
	if len(m.InputShape) == 0 || len(m.OutputShape) == 0 {
		return fmt.Errorf("metadata must declare input_shape and output_shape")
	}
	for _, dim := range m.InputShape {
		if dim <= 0 {
			return fmt.Errorf("metadata input_shape dimension %v is not positive", dim)
		}
	}
	for _, dim := range m.OutputShape {
		if dim <= 0 {
			return fmt.Errorf("metadata output_shape dimension %v is not positive", dim)
		}
	}
	if m.ImageSize <= 0 {
		return fmt.Errorf("metadata image_size %v is not positive", m.ImageSize)
	}
	return nil
}

// InputLen is the flattened element count of the input tensor.
func (m *Metadata) InputLen() int {
	return shapeLen(m.InputShape)
}

// OutputLen is the flattened element count of the output tensor, which is
// also the number of classes the model scores.
func (m *Metadata) OutputLen() int {
	return shapeLen(m.OutputShape)
}

func shapeLen(shape []int64) int {
	n := 1
	for _, dim := range shape {
		n *= int(dim)
	}
	return n
}

// ClassificationResult is the terminal artifact of one request: the winning
// class index, its label, and the raw unnormalized network output for it.
// No softmax is applied; Score is a logit, not a probability.
type ClassificationResult struct {
	Index int     `json:"index"`
	Class string  `json:"class"`
	Score float32 `json:"score"`
}

// PredictionRequest is the raw-tensor JSON request body.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}
