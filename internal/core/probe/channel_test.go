package probe

import (
	"bufio"
	"bytes"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serve 启动一个只处理单个连接的回环服务
func serve(t *testing.T, handler func(net.Conn)) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		handler(conn)
	}()
	return ln.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestCapture_BannerThenClose(t *testing.T) {
	addr := serve(t, func(c net.Conn) {
		c.Write([]byte("SSH-2.0-OpenSSH_8.2p1\r\n"))
	})
	resp := Capture(dial(t, addr), nil, Options{Deadline: 2 * time.Second})

	assert.Equal(t, "SSH-2.0-OpenSSH_8.2p1\r\n", resp.Text())
	assert.True(t, resp.PeerClosed)
	assert.NoError(t, resp.ReadErr)
}

func TestCapture_EchoesPayload(t *testing.T) {
	addr := serve(t, func(c net.Conn) {
		line, _ := bufio.NewReader(c).ReadString('\n')
		if strings.HasPrefix(line, "PING") {
			c.Write([]byte("+PONG\r\n"))
		}
	})
	resp := Capture(dial(t, addr), []byte("PING\r\n"), Options{Deadline: 2 * time.Second})
	assert.Equal(t, []byte("+PONG\r\n"), resp.Raw)
	assert.NoError(t, resp.WriteErr)
	assert.Equal(t, 6, resp.Written)
}

func TestCapture_DeadlineTruncates(t *testing.T) {
	release := make(chan struct{})
	addr := serve(t, func(c net.Conn) {
		c.Write([]byte("220 partial"))
		<-release
	})
	defer close(release)

	start := time.Now()
	resp := Capture(dial(t, addr), nil, Options{Deadline: 200 * time.Millisecond})
	assert.Equal(t, "220 partial", resp.Text())
	assert.False(t, resp.PeerClosed)
	assert.NoError(t, resp.ReadErr, "deadline expiry is not an error")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestCapture_BufferCap(t *testing.T) {
	big := bytes.Repeat([]byte("A"), 4096)
	addr := serve(t, func(c net.Conn) {
		c.Write(big)
		time.Sleep(500 * time.Millisecond)
	})
	resp := Capture(dial(t, addr), nil, Options{Deadline: 2 * time.Second})
	assert.Len(t, resp.Raw, DefaultBufferSize)
	assert.False(t, resp.PeerClosed)
}

func TestCapture_SilentPeerClose(t *testing.T) {
	addr := serve(t, func(c net.Conn) {})
	resp := Capture(dial(t, addr), nil, Options{Deadline: time.Second})
	assert.Empty(t, resp.Raw)
	assert.Zero(t, resp.Written)
	assert.True(t, resp.PeerClosed)
	assert.Less(t, resp.Elapsed, time.Second)
}

func TestResponse_TextLossy(t *testing.T) {
	r := Response{Raw: []byte{'N', 0xff, 0xfe, 'x'}}
	assert.Equal(t, "N��x", r.Text())
}
