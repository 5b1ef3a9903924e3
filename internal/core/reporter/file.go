package reporter

import (
	"context"

	"neorecon/internal/core/model"
)

// FileReporter 将结果整体写入文件, 与终端输出一起挂在 MultiReporter 下
type FileReporter struct {
	path string
	save func(path string, results model.ScanResults) error
}

func NewJSONFileReporter(path string) *FileReporter {
	return &FileReporter{path: path, save: SaveJSONResult}
}

func NewCSVFileReporter(path string) *FileReporter {
	return &FileReporter{path: path, save: SaveCsvResult}
}

// Path 输出文件路径
func (r *FileReporter) Path() string {
	return r.path
}

func (r *FileReporter) Report(ctx context.Context, results model.ScanResults) error {
	return r.save(r.path, results)
}
