/**
 * 服务二次确认
 * @author: Sun977
 * @date: 2026.02.10
 * @description: 对指纹识别出的服务用真实协议客户端做一次无凭据交互,
 *   补充版本/主机密钥等元数据, 并给出未授权访问类提示
 */

package verify

import (
	"context"
	"errors"
	"net"
	"time"

	"neorecon/internal/core/lib/network/dialer"
	"neorecon/internal/core/model"
	"neorecon/internal/pkg/logger"
)

// DefaultTimeout 单次确认的总超时
const DefaultTimeout = 5 * time.Second

// ErrUnsupported 没有对应协议的确认器
var ErrUnsupported = errors.New("no verifier for service")

// Finding 一次确认的产出
type Finding struct {
	Metadata   map[string]string
	Advisories []string
}

// Checker 单个协议的确认器
type Checker interface {
	// Name 对应 ServiceInfo.Name
	Name() string
	Check(ctx context.Context, address string, dial DialFunc) (*Finding, error)
}

// DialFunc 与 dialer.Dialer.DialContext 同签名, 便于各协议客户端注入
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// Verifier 按服务名分发到各协议确认器
type Verifier struct {
	checkers map[string]Checker
	dial     DialFunc
	timeout  time.Duration
}

// New 注册内置的 redis / ftp / ssh 确认器
func New(d dialer.Dialer, timeout time.Duration) *Verifier {
	if d == nil {
		d = dialer.NewDefaultDialer(timeout)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	v := &Verifier{
		checkers: make(map[string]Checker),
		dial:     d.DialContext,
		timeout:  timeout,
	}
	v.Register(NewRedisChecker())
	v.Register(NewFTPChecker())
	v.Register(NewSSHChecker())
	return v
}

// Register 注册或替换确认器
func (v *Verifier) Register(c Checker) {
	v.checkers[c.Name()] = c
}

// Check 对指定服务执行确认
func (v *Verifier) Check(ctx context.Context, service, address string) (*Finding, error) {
	c, ok := v.checkers[service]
	if !ok {
		return nil, ErrUnsupported
	}
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()
	return c.Check(ctx, address, v.dial)
}

// Verify 返回补充了确认结果的副本, 不支持或失败时原样返回
func (v *Verifier) Verify(ctx context.Context, address string, info *model.ServiceInfo) *model.ServiceInfo {
	if info == nil {
		return nil
	}
	finding, err := v.Check(ctx, info.Name, address)
	if err != nil {
		if !errors.Is(err, ErrUnsupported) {
			logger.WithFields(map[string]interface{}{
				"address": address,
				"service": info.Name,
			}).Debugf("verification failed: %v", err)
		}
		return info
	}

	out := info.Clone()
	if out.Metadata == nil {
		out.Metadata = make(map[string]string, len(finding.Metadata)+1)
	}
	for k, val := range finding.Metadata {
		out.Metadata[k] = val
	}
	out.Metadata["verified"] = "true"
	out.Vulns = append(out.Vulns, finding.Advisories...)
	return out
}
