// Package classify turns raw model output into a labeled result, and owns
// the per-request state: a generation-counted tracker and the pipeline that
// runs preprocess → inference → decode.
package classify

import (
	"fmt"

	"imageclass/internal/model"
)

// ArgMax returns the index and value of the largest element, using a strict
// greater-than comparison so the first maximal value wins on ties. Returns
// -1 for an empty vector.
func ArgMax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	maxIdx := 0
	maxVal := v[0]
	for i, val := range v {
		if val > maxVal {
			maxVal = val
			maxIdx = i
		}
	}
	return maxIdx, maxVal
}

// Decode maps the engine's output vector to the winning class. The score is
// the raw network output; no softmax is applied. Pure function.
func Decode(output []float32, labels []string) (*model.ClassificationResult, error) {
	if len(output) == 0 {
		return nil, fmt.Errorf("%w: output vector is empty", model.ErrEngineRun)
	}
	if len(output) != len(labels) {
		return nil, fmt.Errorf("%w: output has %v scores but label table has %v entries",
			model.ErrEngineRun, len(output), len(labels))
	}
	idx, score := ArgMax(output)
	return &model.ClassificationResult{
		Index: idx,
		Class: labels[idx],
		Score: score,
	}, nil
}
