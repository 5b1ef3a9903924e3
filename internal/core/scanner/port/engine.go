/**
 * 端口扫描引擎
 * @author: Sun977
 * @date: 2026.02.10
 * @description: 在并发预算内对 (目标 × 端口) 全集做 TCP Connect 扫描,
 *   对开放端口按需发送探针并匹配指纹
 */

package port

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"neorecon/internal/core/fingerprint"
	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/lib/network/qos"
	"neorecon/internal/core/model"
	"neorecon/internal/core/probe"
	"neorecon/internal/core/signature"
	"neorecon/internal/pkg/logger"
)

// Engine 扫描引擎
// 指纹库是唯一跨任务共享的数据, 只读
type Engine struct {
	db          *signature.Database
	dialer      dialer.Dialer
	observer    Observer
	verifier    Verifier
	adaptive    bool
	rate        int
	maxAttempts int
	retryDelay  time.Duration
}

// Option 引擎选项
type Option func(*Engine)

// WithDialer 指定拨号器 (例如 SOCKS5 代理)
func WithDialer(d dialer.Dialer) Option {
	return func(e *Engine) { e.dialer = d }
}

// WithObserver 注册进度观察者
func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

// WithVerifier 注册协议级确认器
func WithVerifier(v Verifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithAdaptive 使用 AIMD 自适应闸门, 在途数量仍不超过预算
func WithAdaptive(enabled bool) Option {
	return func(e *Engine) { e.adaptive = enabled }
}

// WithRate 限制每秒连接尝试次数, 0 不限
func WithRate(rps int) Option {
	return func(e *Engine) { e.rate = rps }
}

// WithRetry 超时重试策略, attempts 为总尝试次数
func WithRetry(attempts int, delay time.Duration) Option {
	return func(e *Engine) {
		if attempts >= 1 {
			e.maxAttempts = attempts
		}
		if delay >= 0 {
			e.retryDelay = delay
		}
	}
}

func NewEngine(db *signature.Database, opts ...Option) *Engine {
	e := &Engine{
		db:          db,
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// counters 任务协程并发更新的计数
type counters struct {
	open, identified, closed, timeouts, errors, retries atomic.Int64
}

// Run 执行扫描
// ctx 取消只停止准入新任务, 已经在途的任务按各自的截止时间跑完
// 取消时返回已收集的部分结果和 ctx.Err()
func (e *Engine) Run(ctx context.Context, req Request) (*Outcome, error) {
	if err := req.validate(); err != nil {
		return nil, fmt.Errorf("invalid scan request: %w", err)
	}
	if req.ServiceDetection && e.db == nil {
		return nil, errors.New("service detection requires a signature database")
	}
	if req.ID == "" {
		req.ID = fmt.Sprintf("scan-%d", time.Now().UnixNano())
	}

	d := e.dialer
	if d == nil {
		d = dialer.NewDefaultDialer(req.ConnectTimeout)
	}

	tasks := GenerateTasks(req.Targets, req.Ports)
	gate := qos.NewGate(req.Concurrency, e.adaptive)
	pacer := qos.NewPacer(e.rate)
	rtt := qos.NewRttEstimator()
	relay := newProgressRelay(e.observer, len(tasks))

	logger.LogScanEvent(logger.ScanLogEntry{
		ScanID: req.ID,
		Target: fmt.Sprintf("%d host(s) ports %s", len(req.Targets), req.Ports),
		Status: "running",
	}, map[string]interface{}{
		"tasks":       len(tasks),
		"concurrency": req.Concurrency,
		"adaptive":    e.adaptive,
	})

	// 在途任务不随外部取消而中断
	taskCtx := context.WithoutCancel(ctx)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make([]model.ScanResult, 0)
		cnt      counters
		admitted int
		runErr   error
	)
	start := time.Now()

	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		if err := gate.Acquire(ctx); err != nil {
			runErr = err
			break
		}
		admitted++
		wg.Add(1)
		go func(task model.ScanTask) {
			defer wg.Done()
			defer gate.Release()

			res, ok := e.scanTask(taskCtx, req, task, d, gate, pacer, rtt, &cnt)
			if ok {
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
			relay.publish(task, ok)
		}(task)
	}

	wg.Wait()
	relay.close()

	stats := Stats{
		Total:      len(tasks),
		Completed:  admitted,
		Skipped:    len(tasks) - admitted,
		Open:       int(cnt.open.Load()),
		Identified: int(cnt.identified.Load()),
		Closed:     int(cnt.closed.Load()),
		Timeouts:   int(cnt.timeouts.Load()),
		Errors:     int(cnt.errors.Load()),
		Retries:    int(cnt.retries.Load()),
		Duration:   time.Since(start),
		SRTT:       rtt.SRTT(),
		RTO:        rtt.Timeout(),
	}

	status, result := "completed", fmt.Sprintf("%d open, %d identified", stats.Open, stats.Identified)
	if runErr != nil {
		status, result = "cancelled", fmt.Sprintf("%s, %d task(s) not admitted", result, stats.Skipped)
	}
	logger.LogScanEvent(logger.ScanLogEntry{
		ScanID:   req.ID,
		Target:   fmt.Sprintf("%d host(s) ports %s", len(req.Targets), req.Ports),
		Status:   status,
		Progress: progressPercent(stats.Completed, stats.Total),
		Result:   result,
		Duration: stats.Duration,
	}, map[string]interface{}{
		"timeouts": stats.Timeouts,
		"retries":  stats.Retries,
		"rto_ms":   stats.RTO.Milliseconds(),
	})

	return &Outcome{Results: results, Stats: stats}, runErr
}

// scanTask 单个任务: connect → probe → read → match, 严格顺序执行
func (e *Engine) scanTask(ctx context.Context, req Request, task model.ScanTask, d dialer.Dialer,
	gate qos.Gate, pacer *qos.Pacer, rtt *qos.RttEstimator, cnt *counters) (model.ScanResult, bool) {

	state := model.StatePending
	advance := func(next model.TaskState) {
		if !state.CanTransition(next) {
			logger.Errorf("illegal task state transition %s -> %s for %s", state, next, task)
		}
		state = next
		if logger.IsDebugEnabled() {
			logger.Debugf("%s: %s", task, state)
		}
	}

	advance(model.StateConnecting)
	outcome, latency := e.connect(ctx, req.ConnectTimeout, task, d, pacer, cnt)
	switch outcome.Kind {
	case model.OutcomeOpen:
	case model.OutcomeTimeout:
		gate.OnFailure()
		cnt.timeouts.Add(1)
	case model.OutcomeClosed:
		cnt.closed.Add(1)
	default:
		cnt.errors.Add(1)
	}
	if outcome.Kind != model.OutcomeOpen {
		advance(model.StateClosedOrFiltered)
		return model.ScanResult{}, false
	}

	conn := outcome.Conn
	defer conn.Close()
	gate.OnSuccess()
	rtt.Update(latency)
	cnt.open.Add(1)
	advance(model.StateOpen)

	result := model.ScanResult{
		IP:      task.Addr.String(),
		Port:    task.Port,
		Latency: latency,
	}
	if !req.ServiceDetection {
		advance(model.StateDone)
		return result, true
	}

	advance(model.StateProbing)
	port := int(task.Port)
	resp := probe.Capture(conn, e.db.Payload(port, req.Narrow), probe.Options{
		Deadline:   e.db.ReadWait(port, req.Narrow, req.ReadTimeout),
		BufferSize: req.BufferSize,
	})
	// 探测连接不再复用
	conn.Close()
	result.RawResponse = resp.Raw

	info := fingerprint.Identify(resp, e.db, e.db.TCPWrappedWait(port, req.Narrow))
	if info == nil {
		advance(model.StateUnmatched)
		advance(model.StateDone)
		return result, true
	}

	advance(model.StateMatched)
	cnt.identified.Add(1)
	if req.Verify && e.verifier != nil {
		info = e.verifier.Verify(ctx, task.Address(), info)
	}
	result.Service = info
	advance(model.StateDone)
	return result, true
}

// connect 带超时重试的连接
// 只有超时会重试, 明确拒绝或其他错误立即失败
func (e *Engine) connect(ctx context.Context, timeout time.Duration, task model.ScanTask,
	d dialer.Dialer, pacer *qos.Pacer, cnt *counters) (model.ConnectOutcome, time.Duration) {

	var out model.ConnectOutcome
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if attempt > 1 {
			cnt.retries.Add(1)
			time.Sleep(e.retryDelay)
		}
		if err := pacer.Wait(ctx); err != nil {
			return model.ConnectOutcome{Kind: model.OutcomeError, Err: err}, 0
		}

		start := time.Now()
		dialCtx, cancel := context.WithTimeout(ctx, timeout)
		conn, err := d.DialContext(dialCtx, "tcp", task.Address())
		cancel()

		out = classify(conn, err)
		if out.Kind == model.OutcomeOpen {
			return out, time.Since(start)
		}
		if !out.Retryable() {
			return out, 0
		}
	}
	return out, 0
}

// classify 将拨号结果归类
func classify(conn net.Conn, err error) model.ConnectOutcome {
	if err == nil {
		return model.ConnectOutcome{Kind: model.OutcomeOpen, Conn: conn}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return model.ConnectOutcome{Kind: model.OutcomeClosed, Err: err}
	}
	if isTimeout(err) {
		return model.ConnectOutcome{Kind: model.OutcomeTimeout, Err: err}
	}
	return model.ConnectOutcome{Kind: model.OutcomeError, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func progressPercent(done, total int) int {
	if total == 0 {
		return 100
	}
	return done * 100 / total
}
