package port

import (
	"sync"
	"sync/atomic"

	"neorecon/internal/core/model"
)

// progressRelay 进度中继
// 扫描协程只做原子计数和非阻塞投递, 容量为 1 的信箱只保留最新快照
type progressRelay struct {
	observer  Observer
	total     int
	completed atomic.Int64
	open      atomic.Int64

	mailbox chan Progress
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

func newProgressRelay(o Observer, total int) *progressRelay {
	if o == nil {
		return nil
	}
	r := &progressRelay{
		observer: o,
		total:    total,
		mailbox:  make(chan Progress, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.loop()
	return r
}

// publish 任务完成时调用, 永不阻塞
func (r *progressRelay) publish(task model.ScanTask, open bool) {
	if r == nil {
		return
	}
	if open {
		r.open.Add(1)
	}
	p := Progress{
		Completed: int(r.completed.Add(1)),
		Total:     r.total,
		Open:      int(r.open.Load()),
		Last:      task,
	}
	for {
		select {
		case r.mailbox <- p:
			return
		default:
		}
		// 信箱已满, 丢弃旧快照后重试
		select {
		case <-r.mailbox:
		default:
		}
	}
}

func (r *progressRelay) loop() {
	defer close(r.done)
	delivered := 0
	var last model.ScanTask
	deliver := func(p Progress) {
		last = p.Last
		// 并发投递可能乱序, 只交付单调递增的快照
		if p.Completed <= delivered {
			return
		}
		delivered = p.Completed
		r.observer.OnProgress(p)
	}

	for {
		select {
		case p := <-r.mailbox:
			deliver(p)
		case <-r.stop:
			select {
			case p := <-r.mailbox:
				deliver(p)
			default:
			}
			// 最终快照以计数器为准
			deliver(Progress{
				Completed: int(r.completed.Load()),
				Total:     r.total,
				Open:      int(r.open.Load()),
				Last:      last,
			})
			return
		}
	}
}

// close 所有任务结束后调用, 等待最终快照交付
func (r *progressRelay) close() {
	if r == nil {
		return
	}
	r.once.Do(func() { close(r.stop) })
	<-r.done
}
