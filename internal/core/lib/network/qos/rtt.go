package qos

import (
	"sync"
	"time"
)

const (
	defaultInitialRTO = 1 * time.Second        // 默认初始重传超时时间 (RTO)
	minRTO            = 100 * time.Millisecond // 最小 RTO，防止超时过短
	maxRTO            = 10 * time.Second       // 最大 RTO，防止超时过长
	alpha             = 0.125                  // 平滑因子 1/8 (RFC 6298 标准值)
	beta              = 0.25                   // 偏差因子 1/4 (RFC 6298 标准值)
)

// RttEstimator 实现了 RFC 6298 RTO 计算
// 扫描引擎用成功建连的耗时喂给它, 用于在统计中给出建议的连接超时
type RttEstimator struct {
	srtt    time.Duration // Smoothed RTT
	rttvar  time.Duration // RTT Variation
	rto     time.Duration // Retransmission Timeout
	samples int
	mu      sync.RWMutex
}

// NewRttEstimator 创建一个新的 RTT 估算器
func NewRttEstimator() *RttEstimator {
	return &RttEstimator{
		rto: defaultInitialRTO,
	}
}

// Update 根据新的 RTT 测量值更新估算状态
func (e *RttEstimator) Update(rtt time.Duration) {
	if rtt <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	e.samples++
	if e.srtt == 0 {
		// RFC 6298 2.2: SRTT <- R, RTTVAR <- R/2
		e.srtt = rtt
		e.rttvar = rtt / 2
	} else {
		// RFC 6298 2.3
		// RTTVAR <- (1 - beta) * RTTVAR + beta * |SRTT - R'|
		// SRTT <- (1 - alpha) * SRTT + alpha * R'
		delta := e.srtt - rtt
		if delta < 0 {
			delta = -delta
		}
		e.rttvar = time.Duration((1-beta)*float64(e.rttvar) + beta*float64(delta))
		e.srtt = time.Duration((1-alpha)*float64(e.srtt) + alpha*float64(rtt))
	}

	// RTO <- SRTT + K*RTTVAR, K=4, 时钟粒度 G 忽略
	e.rto = e.srtt + 4*e.rttvar
	if e.rto < minRTO {
		e.rto = minRTO
	} else if e.rto > maxRTO {
		e.rto = maxRTO
	}
}

// Timeout 当前建议的超时时间 (RTO)
func (e *RttEstimator) Timeout() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.rto
}

// SRTT 平滑往返时间, 没有样本时为 0
func (e *RttEstimator) SRTT() time.Duration {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.srtt
}

// Samples 已采集的样本数
func (e *RttEstimator) Samples() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.samples
}
