package qos

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate 准入闸门: 连接前 Acquire, 任务结束后 Release
// 任何实现都必须保证在途数量不超过 Budget()
type Gate interface {
	Acquire(ctx context.Context) error
	Release()
	// OnSuccess / OnFailure 反馈连接结果, 固定闸门忽略
	OnSuccess()
	OnFailure()
	Budget() int
}

// FixedGate 固定预算闸门
type FixedGate struct {
	sem    *semaphore.Weighted
	budget int
}

// NewFixedGate budget < 1 时按 1 处理
func NewFixedGate(budget int) *FixedGate {
	if budget < 1 {
		budget = 1
	}
	return &FixedGate{
		sem:    semaphore.NewWeighted(int64(budget)),
		budget: budget,
	}
}

func (g *FixedGate) Acquire(ctx context.Context) error {
	return g.sem.Acquire(ctx, 1)
}

func (g *FixedGate) Release() {
	g.sem.Release(1)
}

func (g *FixedGate) OnSuccess() {}

func (g *FixedGate) OnFailure() {}

func (g *FixedGate) Budget() int {
	return g.budget
}

// NewGate adaptive 为 true 时使用 AIMD 限流器, 从预算的一半起步, 最低 1/10
func NewGate(budget int, adaptive bool) Gate {
	if !adaptive {
		return NewFixedGate(budget)
	}
	min := budget / 10
	return NewAdaptiveLimiter(budget/2, min, budget)
}
