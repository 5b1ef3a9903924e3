/**
 * 结果输出接口定义
 * @author: Sun977
 * @date: 2026.01.21
 * @description: 定义结果输出的通用接口, 解耦 Text/JSON/Table/File 输出
 */

package reporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"slices"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
)

// TabularData 是一个可以被渲染为表格的数据接口
// 任何想要在控制台漂亮打印的结果都应该实现此接口
type TabularData interface {
	Headers() []string
	Rows() [][]string
}

// Reporter 定义结果输出的行为
type Reporter interface {
	// Report 输出一次扫描的全部结果
	Report(ctx context.Context, results model.ScanResults) error
}

// New 按输出格式创建 Reporter
func New(format string, w io.Writer) (Reporter, error) {
	switch format {
	case options.FormatText, "":
		return NewTextReporter(w), nil
	case options.FormatJSON:
		return NewJSONReporter(w), nil
	case options.FormatTable:
		return NewConsoleReporter(w), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// MultiReporter 支持同时向多个目标输出 (e.g., Console + File)
type MultiReporter struct {
	reporters []Reporter
}

func NewMultiReporter(reporters ...Reporter) *MultiReporter {
	return &MultiReporter{
		reporters: reporters,
	}
}

// Report 依次调用全部 Reporter, 单个失败不影响其余
func (m *MultiReporter) Report(ctx context.Context, results model.ScanResults) error {
	var errs []error
	for _, r := range m.reporters {
		if err := r.Report(ctx, results); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sorted 按地址、端口排序后的副本, 引擎产出的结果本身无序
func Sorted(results model.ScanResults) model.ScanResults {
	out := slices.Clone(results)
	slices.SortFunc(out, func(a, b model.ScanResult) int {
		if c := compareIP(a.IP, b.IP); c != 0 {
			return c
		}
		return int(a.Port) - int(b.Port)
	})
	return out
}

func compareIP(a, b string) int {
	x, errA := netip.ParseAddr(a)
	y, errB := netip.ParseAddr(b)
	if errA != nil || errB != nil {
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
		return 0
	}
	return x.Compare(y)
}
