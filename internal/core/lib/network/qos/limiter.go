package qos

import (
	"context"
	"sync"
	"sync/atomic"
)

// AdaptiveLimiter 实现了 AIMD (Additive Increase Multiplicative Decrease) 拥塞控制算法
// 用于在并发预算之内动态调整在途连接数
// - 成功时：线性增加并发数 (Additive Increase)
// - 超时时：乘性减少并发数 (Multiplicative Decrease)
//
// 不变式: 借出令牌 + 空闲令牌 - 待偿还债务 == currentLimit <= maxLimit
type AdaptiveLimiter struct {
	sem             chan struct{} // 信号量通道，用于控制并发令牌
	reductionNeeded int32         // 需要减少的令牌数量 (待偿还的债务)

	currentLimit int // 当前并发限制
	minLimit     int // 最小并发限制 (保底值)
	maxLimit     int // 最大并发限制 (即并发预算)

	successCount int        // 连续成功计数
	mu           sync.Mutex // 保护 limit 和 successCount 的更新
}

// NewAdaptiveLimiter 创建一个新的自适应限流器
// initial: 初始并发数
// min: 最小并发数
// max: 最大并发数
func NewAdaptiveLimiter(initial, min, max int) *AdaptiveLimiter {
	if max < 1 {
		max = 1
	}
	if min < 1 {
		min = 1
	}
	if min > max {
		min = max
	}
	if initial < min {
		initial = min
	}
	if initial > max {
		initial = max
	}

	l := &AdaptiveLimiter{
		sem:          make(chan struct{}, max), // 通道容量即预算上限
		currentLimit: initial,
		minLimit:     min,
		maxLimit:     max,
	}

	for i := 0; i < initial; i++ {
		l.sem <- struct{}{}
	}

	return l
}

// Acquire 获取一个并发令牌
// 如果没有令牌可用，会阻塞直到有令牌释放或 context 取消
func (l *AdaptiveLimiter) Acquire(ctx context.Context) error {
	select {
	case <-l.sem:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release 释放一个并发令牌
// 有债务时销毁令牌而不是归还
func (l *AdaptiveLimiter) Release() {
	if l.payDebt(1) == 1 {
		return
	}

	select {
	case l.sem <- struct{}{}:
	default:
		// Release 次数多于 Acquire
	}
}

// payDebt 尝试偿还最多 n 个令牌的债务, 返回实际偿还数量
func (l *AdaptiveLimiter) payDebt(n int32) int32 {
	for {
		val := atomic.LoadInt32(&l.reductionNeeded)
		if val <= 0 {
			return 0
		}
		pay := n
		if val < pay {
			pay = val
		}
		if atomic.CompareAndSwapInt32(&l.reductionNeeded, val, val-pay) {
			return pay
		}
	}
}

// OnSuccess 通知一次成功的操作
// 连续成功达到当前 Limit 次数时，增加 1 个并发额度 (拥塞避免)
func (l *AdaptiveLimiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.successCount++
	if l.successCount >= l.currentLimit {
		l.successCount = 0
		l.increaseLimit(1)
	}
}

// OnFailure 通知一次失败的操作 (连接超时)
// 当前 Limit * 0.7, 比 TCP 的 0.5 温和一些
func (l *AdaptiveLimiter) OnFailure() {
	l.mu.Lock()
	defer l.mu.Unlock()

	newLimit := int(float64(l.currentLimit) * 0.7)
	decrease := l.currentLimit - newLimit
	if decrease < 1 {
		decrease = 1
	}

	l.decreaseLimit(decrease)
	l.successCount = 0
}

// increaseLimit 增加并发限制
// 先抵消尚未偿还的债务, 剩余部分才注入新令牌, 否则借出令牌可能超过预算
func (l *AdaptiveLimiter) increaseLimit(n int) {
	target := l.currentLimit + n
	if target > l.maxLimit {
		target = l.maxLimit
	}

	diff := target - l.currentLimit
	if diff <= 0 {
		return
	}
	l.currentLimit = target

	inject := diff - int(l.payDebt(int32(diff)))
	for i := 0; i < inject; i++ {
		select {
		case l.sem <- struct{}{}:
		default:
		}
	}
}

// decreaseLimit 减少并发限制
// 1. 先从 channel 中直接取走空闲令牌 (立即生效)
// 2. 取不到的部分记为债务, 由后续 Release 偿还
func (l *AdaptiveLimiter) decreaseLimit(n int) {
	target := l.currentLimit - n
	if target < l.minLimit {
		target = l.minLimit
	}

	diff := l.currentLimit - target
	if diff <= 0 {
		return
	}
	l.currentLimit = target

	removed := 0
	for i := 0; i < diff; i++ {
		select {
		case <-l.sem:
			removed++
		default:
		}
	}

	if remaining := diff - removed; remaining > 0 {
		atomic.AddInt32(&l.reductionNeeded, int32(remaining))
	}
}

// CurrentLimit 获取当前并发限制数
func (l *AdaptiveLimiter) CurrentLimit() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentLimit
}

// Budget 并发上限
func (l *AdaptiveLimiter) Budget() int {
	return l.maxLimit
}
