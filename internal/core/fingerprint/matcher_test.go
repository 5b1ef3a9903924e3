package fingerprint

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neorecon/internal/core/probe"
	"neorecon/internal/core/signature"
)

func builtinDB(t *testing.T) *signature.Database {
	t.Helper()
	db, stats := signature.Load(signature.Builtins(), "")
	require.Zero(t, stats.CompileErrors)
	return db
}

func TestMatch_Builtins(t *testing.T) {
	db := builtinDB(t)

	tests := []struct {
		name     string
		response string
		service  string
		version  string
		product  string
		os       string
		vulns    []string
	}{
		{
			name:     "ssh banner",
			response: "SSH-2.0-OpenSSH_8.2p1",
			service:  "ssh",
			version:  "2.0",
			product:  "OpenSSH_8.2p1",
		},
		{
			name:     "ssh with os and vuln",
			response: "SSH-2.0-OpenSSH_7.2p2 Ubuntu-4ubuntu2.8\r\n",
			service:  "ssh",
			version:  "2.0",
			product:  "OpenSSH_7.2p2",
			os:       "Ubuntu",
			vulns:    []string{"CVE-2016-6210: User enumeration vulnerability"},
		},
		{
			name:     "http nginx",
			response: "HTTP/1.1 200 OK\r\nServer: nginx/1.18.0\r\n",
			service:  "http",
			version:  "1.18.0",
			product:  "nginx/1.18.0",
		},
		{
			name:     "http apache vulnerable",
			response: "HTTP/1.1 403 Forbidden\r\nServer: Apache/2.4.49 (Unix)\r\n\r\n",
			service:  "http",
			version:  "2.4.49",
			product:  "Apache/2.4.49 (Unix)",
			os:       "Unix",
			vulns:    []string{"CVE-2021-41773: Path traversal vulnerability"},
		},
		{
			name:     "ftp",
			response: "220 (vsFTPd 3.0.3)\r\n",
			service:  "ftp",
			product:  "vsFTPd",
		},
		{
			name:     "ftp by reply sequence",
			response: "220 Welcome\r\n500 Unknown command\r\n331 Please specify the password.\r\n",
			service:  "ftp",
		},
		{
			name:     "smtp",
			response: "220 mail.example.com ESMTP Postfix (Debian/GNU)\r\n",
			service:  "smtp",
			product:  "Postfix",
			os:       "Debian",
		},
		{
			name:     "redis",
			response: "+PONG\r\n",
			service:  "redis",
		},
		{
			name:     "redis protected",
			response: "-NOAUTH Authentication required.\r\n",
			service:  "redis",
		},
		{
			name:     "mysql greeting",
			response: "J\x00\x00\x00\x0a5.7.33-log\x00",
			service:  "mysql",
			version:  "5.7.33-log",
		},
		{
			name:     "postgres ssl refusal",
			response: "N",
			service:  "postgresql",
		},
		{
			name:     "tls alert",
			response: "\x15\x03\x01\x00\x02\x02\x46",
			service:  "https",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := Match(tt.response, db)
			require.NotNil(t, info)
			assert.Equal(t, tt.service, info.Name)
			if tt.version != "" {
				assert.Equal(t, tt.version, info.Version)
			}
			if tt.product != "" {
				assert.Contains(t, info.Product, tt.product)
			}
			if tt.os != "" {
				assert.Equal(t, tt.os, info.OS)
			}
			assert.Equal(t, tt.vulns, info.Vulns)
		})
	}
}

func TestMatch_HTTPMultipleVulns(t *testing.T) {
	db := builtinDB(t)
	info := Match("HTTP/1.0 200 OK\r\nServer: nginx/1.16.1 uhttpd 1.0\r\n", db)
	require.NotNil(t, info)
	assert.Equal(t, []string{
		"CVE-2019-9511: HTTP/2 DoS vulnerability",
		"CVE-2018-20148: Buffer overflow vulnerability",
	}, info.Vulns)
}

func TestMatch_Unknown(t *testing.T) {
	db := builtinDB(t)
	assert.Nil(t, Match("", db))
	assert.Nil(t, Match("hello there", db))
	assert.Nil(t, Match("SSH-2.0-x", nil))
}

func TestMatch_Idempotent(t *testing.T) {
	db := builtinDB(t)
	resp := "HTTP/1.1 200 OK\r\nServer: Apache/2.4.49 (Unix)\r\nX-Powered-By: PHP/7.4\r\n"

	first := Match(resp, db)
	second := Match(resp, db)
	assert.Equal(t, first, second)
	assert.Equal(t, "PHP/7.4", first.ExtraInfo)
}

func TestMatch_ConcurrentReaders(t *testing.T) {
	db := builtinDB(t)
	want := Match("SSH-2.0-OpenSSH_8.2p1", db)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, want, Match("SSH-2.0-OpenSSH_8.2p1", db))
			}
		}()
	}
	wg.Wait()
}

func TestMatch_FirstRuleWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.txt")
	content := "Probe TCP NULL q||\n" +
		"match custom-ssh m|SSH-2.0-Custom| p/Custom/\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	db, _ := signature.Load(signature.Builtins(), path)
	// 内置 ssh 规则排在前面
	info := Match("SSH-2.0-Custom", db)
	require.NotNil(t, info)
	assert.Equal(t, "ssh", info.Name)

	db, _ = signature.Load(nil, path)
	info = Match("SSH-2.0-Custom", db)
	require.NotNil(t, info)
	assert.Equal(t, "custom-ssh", info.Name)
	assert.Equal(t, "Custom", info.Product)
}

func TestMatch_TemplateExtraction(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probes.txt")
	content := "Probe TCP GetRequest q|GET / HTTP/1.0\\r\\n\\r\\n|\n" +
		"match jetty m|Jetty[(]([0-9a-z.-]+)[)]|i p/Jetty/ v/$1/ i/$2/ cpe:/a:eclipse:jetty:$1/\n" +
		"softmatch generic m|SOFT|\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	db, stats := signature.Load(nil, path)
	require.Equal(t, 2, stats.Rules)

	info := Match("HTTP/1.1 200 OK\r\nServer: Jetty(9.4.z-SNAPSHOT)\r\n", db)
	require.NotNil(t, info)
	assert.Equal(t, "jetty", info.Name)
	assert.Equal(t, "Jetty", info.Product)
	assert.Equal(t, "9.4.z-SNAPSHOT", info.Version)
	assert.Equal(t, "", info.ExtraInfo, "missing group renders empty")
	assert.Equal(t, "cpe:/a:eclipse:jetty:9.4.z-SNAPSHOT", info.CPE)
	assert.False(t, info.Soft)

	soft := Match("SOFT", db)
	require.NotNil(t, soft)
	assert.True(t, soft.Soft)
}

func TestIdentify_TCPWrapped(t *testing.T) {
	db := builtinDB(t)

	wrapped := probe.Response{PeerClosed: true, Elapsed: 10 * time.Millisecond}
	info := Identify(wrapped, db, signature.DefaultTCPWrappedWait)
	require.NotNil(t, info)
	assert.Equal(t, TCPWrapped, info.Name)

	// 超过阈值后才关闭的只是沉默的服务
	slow := probe.Response{PeerClosed: true, Elapsed: 4 * time.Second}
	assert.Nil(t, Identify(slow, db, signature.DefaultTCPWrappedWait))

	silent := probe.Response{Elapsed: 2 * time.Second}
	assert.Nil(t, Identify(silent, db, signature.DefaultTCPWrappedWait))

	// 收到载荷后挂断 (TLS 服务收到明文等), 端口开放但服务未知
	rejected := probe.Response{Written: 64, PeerClosed: true, Elapsed: 10 * time.Millisecond}
	assert.Nil(t, Identify(rejected, db, signature.DefaultTCPWrappedWait))

	banner := probe.Response{Raw: []byte("SSH-2.0-dropbear_2016.74\r\n"), PeerClosed: true}
	info = Identify(banner, db, signature.DefaultTCPWrappedWait)
	require.NotNil(t, info)
	assert.Equal(t, "ssh", info.Name)
	assert.Equal(t, []string{"CVE-2016-7408: Buffer overflow vulnerability"}, info.Vulns)
}
