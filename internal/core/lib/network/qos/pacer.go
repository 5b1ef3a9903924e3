package qos

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer 连接速率控制, 每秒最多 rps 次连接尝试
// nil 或 rps <= 0 时不限速
type Pacer struct {
	limiter *rate.Limiter
}

func NewPacer(rps int) *Pacer {
	if rps <= 0 {
		return nil
	}
	burst := rps / 10
	if burst < 1 {
		burst = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait 阻塞直到允许下一次连接尝试
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	return p.limiter.Wait(ctx)
}
