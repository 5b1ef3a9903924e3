package reporter

import (
	"context"
	"fmt"
	"io"

	"github.com/pterm/pterm" // 引入 pterm 库用于控制台输出

	"neorecon/internal/core/model"
)

// ConsoleReporter 表格输出
type ConsoleReporter struct {
	w io.Writer
}

func NewConsoleReporter(w io.Writer) *ConsoleReporter {
	return &ConsoleReporter{w: w}
}

func (r *ConsoleReporter) Report(ctx context.Context, results model.ScanResults) error {
	if len(results) == 0 {
		fmt.Fprintln(r.w, "No open ports found.")
		return nil
	}
	return r.printTable(Sorted(results))
}

func (r *ConsoleReporter) printTable(data TabularData) error {
	return r.printTableFromData(data.Headers(), data.Rows())
}

func (r *ConsoleReporter) printTableFromData(headers []string, rows [][]string) error {
	if len(rows) == 0 {
		return nil
	}

	tableData := pterm.TableData{headers}
	tableData = append(tableData, rows...)

	out, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false). // 简洁风格
		WithData(tableData).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(r.w, out)
	return err
}
