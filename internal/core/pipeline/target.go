/**
 * 目标枚举器
 * @author: Sun977
 * @date: 2026.02.10
 * @description: 将用户输入 (IP, CIDR, 域名, 逗号列表, 文件) 展开为具体地址列表
 */

package pipeline

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"os"
	"strings"

	"neorecon/internal/pkg/logger"
)

var (
	// ErrInvalidTarget 既不是 IP, 也不是 CIDR, 也不像域名
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNoAddresses 域名解析成功但没有任何记录
	ErrNoAddresses = errors.New("no IP addresses found for domain")
	// ErrResolution 域名解析失败
	ErrResolution = errors.New("failed to resolve domain")
)

// MaxCIDRAddresses 单个 CIDR 块允许展开的最大地址数
const MaxCIDRAddresses = 1 << maxHostBits

const maxHostBits = 24

// Resolver 域名解析接口, *net.Resolver 满足此接口
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Enumerator 目标枚举器
type Enumerator struct {
	resolver Resolver
}

// NewEnumerator resolver 为空时使用系统解析器
func NewEnumerator(r Resolver) *Enumerator {
	if r == nil {
		r = net.DefaultResolver
	}
	return &Enumerator{resolver: r}
}

// Resolve 使用系统解析器展开单个目标
func Resolve(ctx context.Context, target string, subnet bool) ([]netip.Addr, error) {
	return NewEnumerator(nil).Resolve(ctx, target, subnet)
}

// Resolve 展开目标, 支持逗号分隔的多个条目, 结果按输入顺序去重
// 解析顺序: IP → CIDR (仅 subnet 模式) → 域名
func (e *Enumerator) Resolve(ctx context.Context, target string, subnet bool) ([]netip.Addr, error) {
	var out []netip.Addr
	seen := make(map[netip.Addr]struct{})
	nonEmpty := false

	for _, item := range strings.Split(target, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		nonEmpty = true
		addrs, err := e.resolveOne(ctx, item, subnet)
		if err != nil {
			return nil, err
		}
		for _, a := range addrs {
			if _, ok := seen[a]; ok {
				continue
			}
			seen[a] = struct{}{}
			out = append(out, a)
		}
	}
	if !nonEmpty {
		return nil, fmt.Errorf("%w: empty target", ErrInvalidTarget)
	}
	return out, nil
}

// ResolveFile 逐行读取目标文件, 忽略空行和 # 注释
func (e *Enumerator) ResolveFile(ctx context.Context, path string, subnet bool) ([]netip.Addr, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open target file: %w", err)
	}
	defer file.Close()

	var items []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read target file: %w", err)
	}
	return e.Resolve(ctx, strings.Join(items, ","), subnet)
}

func (e *Enumerator) resolveOne(ctx context.Context, target string, subnet bool) ([]netip.Addr, error) {
	// 1. Single IP
	if addr, err := netip.ParseAddr(target); err == nil {
		return []netip.Addr{addr.Unmap()}, nil
	}

	// 2. CIDR
	if strings.Contains(target, "/") {
		if !subnet {
			return nil, fmt.Errorf("%w: %s looks like CIDR notation, enable subnet mode to expand it", ErrInvalidTarget, target)
		}
		prefix, err := netip.ParsePrefix(target)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid CIDR notation %s: %v", ErrInvalidTarget, target, err)
		}
		return ExpandCIDR(prefix)
	}

	// 3. Domain
	if !looksLikeHostname(target) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidTarget, target)
	}
	addrs, err := e.resolver.LookupNetIP(ctx, "ip", target)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %v", ErrResolution, target, err)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoAddresses, target)
	}
	out := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Unmap())
	}
	logger.Debugf("resolved %s to %d address(es)", target, len(out))
	return out, nil
}

// ExpandCIDR 展开 CIDR 块内全部地址, 包含网络地址和广播地址
func ExpandCIDR(prefix netip.Prefix) ([]netip.Addr, error) {
	prefix = prefix.Masked()
	hostBits := prefix.Addr().BitLen() - prefix.Bits()
	if hostBits > maxHostBits {
		return nil, fmt.Errorf("%w: %s expands to more than %d addresses (smallest allowed prefix is /%d)",
			ErrInvalidTarget, prefix, MaxCIDRAddresses, prefix.Addr().BitLen()-maxHostBits)
	}

	out := make([]netip.Addr, 0, 1<<hostBits)
	for ip := prefix.Addr(); ip.IsValid() && prefix.Contains(ip); ip = ip.Next() {
		out = append(out, ip)
	}
	return out, nil
}

// looksLikeHostname 粗略判断是否为合法主机名, 避免把明显的垃圾输入交给解析器
func looksLikeHostname(s string) bool {
	if len(s) == 0 || len(s) > 253 {
		return false
	}
	for _, label := range strings.Split(strings.TrimSuffix(s, "."), ".") {
		if len(label) == 0 || len(label) > 63 {
			return false
		}
		if label[0] == '-' || label[len(label)-1] == '-' {
			return false
		}
		for _, c := range label {
			switch {
			case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
			default:
				return false
			}
		}
	}
	return true
}
