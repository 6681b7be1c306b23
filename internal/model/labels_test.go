package model_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"imageclass/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadLabels(t *testing.T) {
	path := writeFile(t, "labels.txt", "cat\ndog\n\n  bird  \n")
	labels, err := model.LoadLabels(path)
	require.NoError(t, err)
	require.Equal(t, []string{"cat", "dog", "bird"}, labels)
}

func TestLoadLabelsEmpty(t *testing.T) {
	path := writeFile(t, "labels.txt", "\n\n")
	_, err := model.LoadLabels(path)
	require.Error(t, err)
}

func TestLoadLabelsMissingFile(t *testing.T) {
	_, err := model.LoadLabels(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
}

func TestValidateLabels(t *testing.T) {
	meta := &model.Metadata{
		InputName:   "input",
		OutputName:  "output",
		InputShape:  []int64{1, 3, 4, 4},
		OutputShape: []int64{1, 3},
		ImageSize:   4,
	}
	require.NoError(t, model.ValidateLabels([]string{"a", "b", "c"}, meta))
	require.Error(t, model.ValidateLabels([]string{"a", "b"}, meta))
}
