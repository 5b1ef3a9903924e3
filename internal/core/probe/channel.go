// Package probe 探针发送与响应采集
package probe

import (
	"errors"
	"io"
	"net"
	"os"
	"syscall"
	"time"

	"neorecon/internal/core/model"
)

// 默认参数
const (
	DefaultBufferSize = 1024
	DefaultDeadline   = 2 * time.Second
)

// Options 采集参数
type Options struct {
	Deadline   time.Duration // 从写入开始计算的总截止时间
	BufferSize int           // 固定容量, 写满即停止读取
}

// Response 一次采集的结果, 归采集它的任务独占
type Response struct {
	Raw        []byte
	Written    int  // 实际写出的载荷字节数
	PeerClosed bool // 对端在截止前关闭了连接
	WriteErr   error
	ReadErr    error // 非超时, 非 EOF 的读错误
	Elapsed    time.Duration
}

// Text 有损 UTF-8 解码, 每个非法字节替换为 U+FFFD
func (r Response) Text() string {
	return model.LossyString(r.Raw)
}

// Capture 写入一次探针载荷 (为空则只监听), 然后循环读取直到:
// 缓冲区写满 / 对端关闭 / 截止时间到 / 其他 I/O 错误
// 截止时间到只会截断响应, 不视为错误
func Capture(conn net.Conn, payload []byte, opts Options) Response {
	if opts.Deadline <= 0 {
		opts.Deadline = DefaultDeadline
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = DefaultBufferSize
	}

	start := time.Now()
	_ = conn.SetDeadline(start.Add(opts.Deadline))

	var resp Response
	if len(payload) > 0 {
		// 写失败不影响读取, 对端可能已经发出了 Banner
		n, err := conn.Write(payload)
		resp.Written = n
		if err != nil {
			resp.WriteErr = err
		}
	}

	buf := make([]byte, opts.BufferSize)
	n := 0
	for n < len(buf) {
		m, err := conn.Read(buf[n:])
		n += m
		if err == nil {
			continue
		}
		switch {
		case errors.Is(err, io.EOF):
			resp.PeerClosed = true
		case isTimeout(err), errors.Is(err, syscall.EAGAIN):
		case isPeerReset(err):
			resp.PeerClosed = true
			resp.ReadErr = err
		default:
			resp.ReadErr = err
		}
		break
	}

	resp.Raw = buf[:n:n]
	resp.Elapsed = time.Since(start)
	return resp
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isPeerReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}
