package reporter

import (
	"encoding/csv"
	"fmt"
	"os"

	"neorecon/internal/core/model"
)

// SaveCsvResult 一次性将结果保存为 CSV
func SaveCsvResult(path string, results model.ScanResults) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	// 写入 UTF-8 BOM, 防止 Excel 打开乱码
	if _, err := f.WriteString("\xEF\xBB\xBF"); err != nil {
		return fmt.Errorf("failed to write bom: %w", err)
	}

	w := csv.NewWriter(f)
	data := Sorted(results)
	if err := w.Write(data.Headers()); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	if err := w.WriteAll(data.Rows()); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return f.Close()
}
