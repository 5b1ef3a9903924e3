package options

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidPortRange 端口范围格式或取值非法
var ErrInvalidPortRange = errors.New("invalid port range")

// PortRange 闭区间端口范围, 1 <= Start <= End <= 65535
type PortRange struct {
	Start uint16
	End   uint16
}

// ParsePortRange 解析 "start-end" 形式的端口范围
// 只接受恰好一个 '-' 分隔的两个十进制数
func ParsePortRange(s string) (PortRange, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return PortRange{}, fmt.Errorf("%w: %q: expected start-end", ErrInvalidPortRange, s)
	}

	start, err := parsePort(parts[0])
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: %q: start: %v", ErrInvalidPortRange, s, err)
	}
	end, err := parsePort(parts[1])
	if err != nil {
		return PortRange{}, fmt.Errorf("%w: %q: end: %v", ErrInvalidPortRange, s, err)
	}

	r := PortRange{Start: start, End: end}
	if err := r.Validate(); err != nil {
		return PortRange{}, err
	}
	return r, nil
}

func parsePort(s string) (uint16, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty")
	}
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(v), nil
}

// Validate 校验区间边界
func (r PortRange) Validate() error {
	if r.Start == 0 {
		return fmt.Errorf("%w: port 0 is not scannable", ErrInvalidPortRange)
	}
	if r.Start > r.End {
		return fmt.Errorf("%w: start %d greater than end %d", ErrInvalidPortRange, r.Start, r.End)
	}
	return nil
}

// Count 区间内端口数量
func (r PortRange) Count() int {
	if r.Start == 0 || r.Start > r.End {
		return 0
	}
	return int(r.End) - int(r.Start) + 1
}

// Ports 展开为端口切片
func (r PortRange) Ports() []uint16 {
	ports := make([]uint16, 0, r.Count())
	for p := int(r.Start); p <= int(r.End) && r.Count() > 0; p++ {
		ports = append(ports, uint16(p))
	}
	return ports
}

func (r PortRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
