package port

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
	"neorecon/internal/core/probe"
)

// 默认参数
const (
	DefaultConcurrency    = 1000
	DefaultConnectTimeout = 1000 * time.Millisecond
	DefaultMaxAttempts    = 2
	DefaultRetryDelay     = 500 * time.Millisecond
)

// Request 一次扫描请求
type Request struct {
	ID               string // 批次标识, 只用于日志
	Targets          []netip.Addr
	Ports            options.PortRange
	Concurrency      int
	ConnectTimeout   time.Duration
	ServiceDetection bool
	Narrow           bool          // 只发送端口对应的探针
	Verify           bool          // 对已识别服务做协议级确认
	ReadTimeout      time.Duration // 响应读取截止时间, 默认 2s
	BufferSize       int           // 响应缓冲区, 默认 1024
}

func (r *Request) validate() error {
	if err := r.Ports.Validate(); err != nil {
		return err
	}
	if r.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", r.Concurrency)
	}
	if r.ConnectTimeout <= 0 {
		return fmt.Errorf("connect timeout must be positive, got %v", r.ConnectTimeout)
	}
	if r.ReadTimeout <= 0 {
		r.ReadTimeout = probe.DefaultDeadline
	}
	if r.BufferSize <= 0 {
		r.BufferSize = probe.DefaultBufferSize
	}
	return nil
}

// Stats 扫描统计
type Stats struct {
	Total      int           `json:"total"`
	Completed  int           `json:"completed"`
	Skipped    int           `json:"skipped"` // 取消后未被准入的任务
	Open       int           `json:"open"`
	Identified int           `json:"identified"`
	Closed     int           `json:"closed"`
	Timeouts   int           `json:"timeouts"`
	Errors     int           `json:"errors"`
	Retries    int           `json:"retries"`
	Duration   time.Duration `json:"duration"`
	SRTT       time.Duration `json:"srtt"`
	RTO        time.Duration `json:"rto"` // 根据建连耗时估算的建议超时
}

// Outcome 扫描结果, Results 的顺序不保证
type Outcome struct {
	Results []model.ScanResult
	Stats   Stats
}

// Progress 进度快照
type Progress struct {
	Completed int
	Total     int
	Open      int
	Last      model.ScanTask
}

// Observer 进度观察者
// 在独立的协程中被调用, 慢观察者只会错过中间快照, 不会拖慢扫描
type Observer interface {
	OnProgress(p Progress)
}

// ObserverFunc 函数适配器
type ObserverFunc func(p Progress)

func (f ObserverFunc) OnProgress(p Progress) { f(p) }

// Verifier 对已识别服务做协议级确认, 返回补充后的副本
type Verifier interface {
	Verify(ctx context.Context, address string, info *model.ServiceInfo) *model.ServiceInfo
}
