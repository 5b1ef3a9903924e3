package options

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"
)

// 输出格式
const (
	FormatText  = "text"
	FormatJSON  = "json"
	FormatTable = "table"
)

// PortScanOptions scan 命令的全部参数
type PortScanOptions struct {
	Target        string
	TargetFile    string
	Port          string
	Concurrency   int
	TimeoutMs     int
	ServiceDetect bool
	Subnet        bool
	Output        string
	JSONFile      string
	CSVFile       string
	ProbeFile     string
	Narrow        bool
	Adaptive      bool
	Rate          int
	Verify        bool
	Proxy         string
	Progress      bool

	portRange PortRange
}

func NewPortScanOptions() *PortScanOptions {
	return &PortScanOptions{
		Port:        "1-1000",
		Concurrency: 1000,
		TimeoutMs:   1000,
		Output:      FormatText,
		Progress:    true,
	}
}

// Validate 在任何扫描开始之前校验参数, 失败即为配置错误
func (o *PortScanOptions) Validate() error {
	if strings.TrimSpace(o.Target) == "" && o.TargetFile == "" {
		return fmt.Errorf("target is required")
	}
	if o.TargetFile != "" {
		if _, err := os.Stat(o.TargetFile); err != nil {
			return fmt.Errorf("target file: %w", err)
		}
	}

	pr, err := ParsePortRange(o.Port)
	if err != nil {
		return err
	}
	o.portRange = pr

	if o.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", o.Concurrency)
	}
	if o.TimeoutMs <= 0 {
		return fmt.Errorf("timeout must be positive, got %d", o.TimeoutMs)
	}
	if o.Rate < 0 {
		return fmt.Errorf("rate must not be negative, got %d", o.Rate)
	}

	switch o.Output {
	case FormatText, FormatJSON, FormatTable:
	default:
		return fmt.Errorf("unsupported output format: %s", o.Output)
	}

	if o.Proxy != "" {
		u, err := url.Parse(o.Proxy)
		if err != nil {
			return fmt.Errorf("invalid proxy url: %w", err)
		}
		if u.Scheme != "socks5" && u.Scheme != "socks5h" {
			return fmt.Errorf("unsupported proxy scheme: %s", u.Scheme)
		}
	}
	return nil
}

// PortRange 校验通过后的端口范围
func (o *PortScanOptions) PortRange() PortRange {
	return o.portRange
}

// Timeout 单次连接超时
func (o *PortScanOptions) Timeout() time.Duration {
	return time.Duration(o.TimeoutMs) * time.Millisecond
}
