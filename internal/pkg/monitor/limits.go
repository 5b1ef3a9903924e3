package monitor

import (
	"fmt"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"neorecon/internal/pkg/logger"
)

// reservedDescriptors 为标准输入输出、日志文件、DNS 解析等预留的描述符
const reservedDescriptors = 64

// FDLimit 当前进程的文件描述符限制
type FDLimit struct {
	Soft uint64
	Hard uint64
	Used uint64
}

// GetFDLimit 读取当前进程的 RLIMIT_NOFILE
func GetFDLimit() (*FDLimit, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, fmt.Errorf("open self process: %w", err)
	}
	limits, err := p.Rlimit()
	if err != nil {
		return nil, fmt.Errorf("read rlimit: %w", err)
	}
	for _, l := range limits {
		if l.Resource == process.RLIMIT_NOFILE {
			return &FDLimit{Soft: l.Soft, Hard: l.Hard, Used: l.Used}, nil
		}
	}
	return nil, fmt.Errorf("RLIMIT_NOFILE not reported")
}

// SafeConcurrency 根据描述符上限给出建议并发值, 预算未超限时原样返回
func SafeConcurrency(budget int, limit *FDLimit) int {
	if limit == nil || limit.Soft == 0 {
		return budget
	}
	if limit.Soft <= reservedDescriptors {
		return 1
	}
	avail := limit.Soft - reservedDescriptors
	if uint64(budget) > avail {
		return int(avail)
	}
	return budget
}

// CheckConcurrencyBudget 并发预算超过描述符上限时输出告警, 不修改预算
// 返回建议值, 读取失败 (如非 Linux 平台) 时返回原预算
func CheckConcurrencyBudget(budget int) int {
	limit, err := GetFDLimit()
	if err != nil {
		logger.Debugf("fd limit unavailable: %v", err)
		return budget
	}
	safe := SafeConcurrency(budget, limit)
	if safe < budget {
		logger.LogSystemEvent("Monitor", "CheckConcurrencyBudget",
			fmt.Sprintf("concurrency %d exceeds open file limit %d, connections may fail with EMFILE (suggested %d)", budget, limit.Soft, safe),
			logger.WarnLevel, map[string]interface{}{"soft": limit.Soft, "hard": limit.Hard})
	}
	return safe
}
