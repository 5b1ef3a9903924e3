package pipeline

import "net/netip"

// 默认批次大小: 单主机扫描批次大, 网段扫描批次小以控制在途描述符
const (
	SingleHostBatchSize = 1000
	SubnetBatchSize     = 100
)

// BatchSize 按扫描形态给出每批目标数量
func BatchSize(subnet bool) int {
	if subnet {
		return SubnetBatchSize
	}
	return SingleHostBatchSize
}

// Chunk 将地址列表切分为不超过 size 的批次, 批次共享底层数组
func Chunk(addrs []netip.Addr, size int) [][]netip.Addr {
	if size <= 0 {
		size = SingleHostBatchSize
	}
	batches := make([][]netip.Addr, 0, (len(addrs)+size-1)/size)
	for start := 0; start < len(addrs); start += size {
		end := start + size
		if end > len(addrs) {
			end = len(addrs)
		}
		batches = append(batches, addrs[start:end:end])
	}
	return batches
}
