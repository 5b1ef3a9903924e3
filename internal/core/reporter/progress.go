package reporter

import (
	"fmt"
	"io"
	"sync"

	"github.com/pterm/pterm"

	"neorecon/internal/core/scanner/port"
)

// ProgressBar 以 pterm 进度条呈现扫描进度, 实现 port.Observer
type ProgressBar struct {
	mu    sync.Mutex
	bar   *pterm.ProgressbarPrinter
	title string
	w     io.Writer
	done  int
}

// NewProgressBar 创建进度条, Start 之前不会输出
func NewProgressBar(title string, w io.Writer) *ProgressBar {
	return &ProgressBar{title: title, w: w}
}

// Start 以任务总数启动进度条
func (p *ProgressBar) Start(total int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle(p.title).
		WithWriter(p.w).
		WithRemoveWhenDone(true).
		Start()
	if err != nil {
		return fmt.Errorf("failed to start progress bar: %w", err)
	}
	p.bar = bar
	p.done = 0
	return nil
}

// OnProgress 把快照中的完成数折算为增量
func (p *ProgressBar) OnProgress(s port.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil || s.Completed <= p.done {
		return
	}
	p.bar.UpdateTitle(fmt.Sprintf("%s %s (open %d)", p.title, s.Last, s.Open))
	p.bar.Add(s.Completed - p.done)
	p.done = s.Completed
}

// Stop 结束进度条, 可重复调用
func (p *ProgressBar) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar == nil {
		return
	}
	p.bar.Stop()
	p.bar = nil
}
