package predict

import (
	"errors"
	"fmt"
	"os"

	"github.com/openfluke/loom/nn"
)

const keyPredictions = "predictions"

// WriteSubmission serializes the predictions, in order, as one [N,L] U8
// tensor. Every prediction must have the same length.
func WriteSubmission(path string, preds [][]uint8) error {
	if len(preds) == 0 {
		return errors.New("predict: no predictions to write")
	}
	length := len(preds[0])
	values := make([]float32, 0, len(preds)*length)
	for i, p := range preds {
		if len(p) != length {
			return fmt.Errorf("predict: prediction %d has length %d, want %d", i, len(p), length)
		}
		for _, b := range p {
			values = append(values, float32(b))
		}
	}
	err := nn.SaveSafetensors(path, map[string]nn.TensorWithShape{
		keyPredictions: {Values: values, Shape: []int{len(preds), length}, DType: "U8"},
	})
	if err != nil {
		return fmt.Errorf("predict: write submission: %w", err)
	}
	return nil
}

// ReadSubmission reads a file written by WriteSubmission.
func ReadSubmission(path string) ([][]uint8, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("predict: read submission: %w", err)
	}
	tensors, err := nn.LoadSafetensorsWithShapes(data)
	if err != nil {
		return nil, fmt.Errorf("predict: parse submission: %w", err)
	}
	t, ok := tensors[keyPredictions]
	if !ok || len(t.Shape) != 2 {
		return nil, fmt.Errorf("predict: submission %s has no [N,L] %s tensor", path, keyPredictions)
	}
	n, length := t.Shape[0], t.Shape[1]
	if len(t.Values) != n*length {
		return nil, fmt.Errorf("predict: submission %s is truncated", path)
	}
	preds := make([][]uint8, n)
	for i := range preds {
		preds[i] = make([]uint8, length)
		for j, v := range t.Values[i*length : (i+1)*length] {
			preds[i][j] = uint8(v)
		}
	}
	return preds, nil
}
