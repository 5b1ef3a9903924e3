package port

import (
	"net/netip"

	"neorecon/internal/core/model"
	"neorecon/internal/core/options"
)

// GenerateTasks 生成 (地址 × 端口) 的全部任务, 数量为 |targets| * (end-start+1)
// 任务集完全物化在内存中, 超大目标集由调用方分批
func GenerateTasks(targets []netip.Addr, ports options.PortRange) []model.ScanTask {
	n := ports.Count()
	if n == 0 || len(targets) == 0 {
		return nil
	}
	tasks := make([]model.ScanTask, 0, len(targets)*n)
	for _, addr := range targets {
		for p := int(ports.Start); p <= int(ports.End); p++ {
			tasks = append(tasks, model.ScanTask{Addr: addr, Port: uint16(p)})
		}
	}
	return tasks
}
