// 结构化日志辅助方法
package logger

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LogType 日志类型枚举
type LogType string

const (
	// SystemLog 系统日志 - 记录启动、规则加载等运行状态
	SystemLog LogType = "system"
	// ScanLog 扫描日志 - 记录扫描批次的执行情况
	ScanLog LogType = "scan"
)

// LogLevel 日志级别类型，封装logrus.Level避免业务层直接依赖logrus
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// FormatTimestamp 格式化时间戳为统一的毫秒精度格式
func FormatTimestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04:05.000")
}

// ScanLogEntry 扫描日志条目
type ScanLogEntry struct {
	ScanID   string // 扫描批次ID
	Target   string // 扫描目标
	Status   string // running / completed / failed
	Progress int    // 0-100
	Result   string // 结果摘要
	Duration time.Duration
}

// LogScanEvent 记录扫描事件
func LogScanEvent(entry ScanLogEntry, extraFields map[string]interface{}) {
	fields := logrus.Fields{
		"type":     ScanLog,
		"scan_id":  entry.ScanID,
		"target":   entry.Target,
		"status":   entry.Status,
		"progress": entry.Progress,
		"result":   entry.Result,
		"duration": entry.Duration.Milliseconds(),
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	e := std().WithFields(fields)
	switch entry.Status {
	case "completed":
		e.Info(fmt.Sprintf("Scan completed: %s", entry.Target))
	case "failed":
		e.Error(fmt.Sprintf("Scan failed: %s", entry.Target))
	case "running":
		e.Debug(fmt.Sprintf("Scan running: %s (%d%%)", entry.Target, entry.Progress))
	default:
		e.Info(fmt.Sprintf("Scan %s: %s", entry.Status, entry.Target))
	}
}

// LogSystemEvent 记录系统事件日志
func LogSystemEvent(component, event, message string, level LogLevel, extraFields map[string]interface{}) {
	fields := logrus.Fields{
		"type":      SystemLog,
		"component": component,
		"event":     event,
		"message":   message,
	}
	for k, v := range extraFields {
		fields[k] = v
	}

	msg := fmt.Sprintf("System event: %s - %s", component, event)
	e := std().WithFields(fields)
	switch level {
	case DebugLevel:
		e.Debug(msg)
	case WarnLevel:
		e.Warn(msg)
	case ErrorLevel:
		e.Error(msg)
	default:
		e.Info(msg)
	}
}
