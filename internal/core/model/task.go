/**
 * 扫描任务模型定义 (Core Domain)
 * @author: Sun977
 * @date: 2026.02.10
 * @description: 扫描引擎的最小工作单元 (地址, 端口) 以及连接结果与任务状态
 */

package model

import (
	"net"
	"net/netip"
)

// ScanTask 一个 (地址, 端口) 对, 创建后不可变, 只被消费一次
type ScanTask struct {
	Addr netip.Addr
	Port uint16
}

// Address 返回可直接用于 Dial 的 host:port
func (t ScanTask) Address() string {
	return netip.AddrPortFrom(t.Addr, t.Port).String()
}

func (t ScanTask) String() string {
	return t.Address()
}

// OutcomeKind 连接结果类型
type OutcomeKind int

const (
	OutcomeOpen    OutcomeKind = iota // 连接建立
	OutcomeClosed                     // 对端明确拒绝 (RST)
	OutcomeTimeout                    // 连接超时, 可重试
	OutcomeError                      // 其他网络错误 (不可达/重置等)
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeOpen:
		return "open"
	case OutcomeClosed:
		return "closed"
	case OutcomeTimeout:
		return "timeout"
	default:
		return "error"
	}
}

// ConnectOutcome 一次连接尝试的结果
// 仅当 Kind == OutcomeOpen 时 Conn 非空, 由发起任务独占
type ConnectOutcome struct {
	Kind OutcomeKind
	Conn net.Conn
	Err  error
}

// Retryable 只有超时这种不确定的结果才值得重试
func (o ConnectOutcome) Retryable() bool {
	return o.Kind == OutcomeTimeout
}

// TaskState 单个任务的状态机
// Pending → Connecting → {Open → (Probing → Matched|Unmatched) | ClosedOrFiltered} → Done
type TaskState int

const (
	StatePending TaskState = iota
	StateConnecting
	StateOpen
	StateProbing
	StateMatched
	StateUnmatched
	StateClosedOrFiltered
	StateDone
)

var stateNames = [...]string{
	StatePending:          "pending",
	StateConnecting:       "connecting",
	StateOpen:             "open",
	StateProbing:          "probing",
	StateMatched:          "matched",
	StateUnmatched:        "unmatched",
	StateClosedOrFiltered: "closed_or_filtered",
	StateDone:             "done",
}

func (s TaskState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Terminal ClosedOrFiltered 与 Done 为终态
func (s TaskState) Terminal() bool {
	return s == StateClosedOrFiltered || s == StateDone
}

// CanTransition 校验状态迁移是否合法
func (s TaskState) CanTransition(next TaskState) bool {
	switch s {
	case StatePending:
		return next == StateConnecting
	case StateConnecting:
		return next == StateOpen || next == StateClosedOrFiltered
	case StateOpen:
		// 未开启服务识别时直接结束
		return next == StateProbing || next == StateDone
	case StateProbing:
		return next == StateMatched || next == StateUnmatched
	case StateMatched, StateUnmatched:
		return next == StateDone
	default:
		return false
	}
}
