package reporter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"neorecon/internal/core/model"
)

// JSONReporter 每个开放端口一条记录的 JSON 数组
type JSONReporter struct {
	w io.Writer
}

func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{w: w}
}

func (r *JSONReporter) Report(ctx context.Context, results model.ScanResults) error {
	return writeJSON(r.w, results)
}

func writeJSON(w io.Writer, results model.ScanResults) error {
	sorted := Sorted(results)
	if sorted == nil {
		sorted = model.ScanResults{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(sorted); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// SaveJSONResult 一次性将结果保存为 JSON 文件
func SaveJSONResult(path string, results model.ScanResults) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create json file: %w", err)
	}
	defer f.Close()

	if err := writeJSON(f, results); err != nil {
		return err
	}
	return f.Close()
}
