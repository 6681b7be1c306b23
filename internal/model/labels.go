package model

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadLabels reads a text file with one class name per line. Blank lines are
// skipped. The table is loaded once at startup and treated as immutable.
func LoadLabels(filename string) ([]string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open label file: %w", err)
	}
	defer f.Close()
	labels := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			labels = append(labels, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read label file: %w", err)
	}
	if len(labels) == 0 {
		return nil, fmt.Errorf("label file %v contains no classes", filename)
	}
	return labels, nil
}

// ValidateLabels checks that the label table length matches the model's
// output dimensionality. Run this once at startup, before serving requests.
func ValidateLabels(labels []string, meta *Metadata) error {
	if len(labels) != meta.OutputLen() {
		return fmt.Errorf("label count %v does not match model output length %v",
			len(labels), meta.OutputLen())
	}
	return nil
}
