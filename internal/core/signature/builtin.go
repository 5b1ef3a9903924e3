package signature

import "neorecon/internal/pkg/version"

// Builtins 内置规则, 顺序即匹配顺序
// 每次调用返回新的切片, 调用方可以自由追加或裁剪
func Builtins() []RuleSpec {
	return []RuleSpec{
		{
			Service: "ssh",
			Pattern: `^SSH-\d\.\d`,
			Version: `^SSH-(\d\.\d+)`,
			Product: `(?i)((?:openssh|dropbear|libssh)[\w.\-]*)`,
			OS:      `(?i)(ubuntu|debian|centos|rhel|alpine|freebsd)`,
			Extra:   `^SSH-\d\.\d+-\S+ ([^\r\n]+)`,
			Vulns: []VulnSpec{
				{`(?i)openssh.*7\.2`, "CVE-2016-6210: User enumeration vulnerability"},
				{`(?i)dropbear.*2016`, "CVE-2016-7408: Buffer overflow vulnerability"},
			},
			Probe: []byte("SSH-2.0-" + version.GetProbeTag() + "\r\n"),
			Ports: []int{22, 2222},
		},
		{
			Service: "http",
			Pattern: `^HTTP/\d\.\d`,
			Version: `(?i)Server: [^/\r\n]+/([\d.]+)`,
			Product: `(?i)Server: ([^\r\n]+)`,
			OS:      `(?i)Server: [^\r\n]*\(([^)\r\n]+)\)`,
			Extra:   `(?i)X-Powered-By: ([^\r\n]+)`,
			Vulns: []VulnSpec{
				{`(?i)apache.*2\.4\.49`, "CVE-2021-41773: Path traversal vulnerability"},
				{`(?i)nginx.*1\.16\.1`, "CVE-2019-9511: HTTP/2 DoS vulnerability"},
				{`(?i)uhttpd.*1\.0`, "CVE-2018-20148: Buffer overflow vulnerability"},
			},
			Probe: []byte("GET / HTTP/1.1\r\nHost: localhost\r\nUser-Agent: " + version.GetProbeTag() + "\r\nAccept: */*\r\n\r\n"),
			Ports: []int{80, 81, 8000, 8008, 8080, 8888},
		},
		{
			// TLS 握手或告警记录, 不发送 ClientHello
			Service: "https",
			Pattern: `^[\x15\x16]\x03[\x00-\x04]`,
			Ports:   []int{443, 8443},
		},
		{
			Service: "ftp",
			Pattern: `(?s)^220[^\r\n]*(?i:ftp)|^220.*\r\n331[ -]`,
			Version: `(?i)^220[^\r\n]*?(?:ftpd?|server)[ _(]*v?(\d+\.[\w.\-]+)`,
			Product: `(?i)(vsftpd|proftpd|pure-ftpd|filezilla|microsoft ftp)`,
			OS:      `(?i)(linux|windows|macos|bsd)`,
			Extra:   `^220[ -]([^\r\n]+)`,
			Probe:   []byte("USER anonymous\r\n"),
			Ports:   []int{21},
		},
		{
			Service: "smtp",
			Pattern: `(?s)^220[^\r\n]*(?i:smtp|mail)|^220.*\r\n250[ -]`,
			Version: `(?i)(?:postfix|sendmail|exim|qmail)[ /]?(\d+\.[\w.]+)`,
			Product: `(?i)(postfix|sendmail|exim|qmail|microsoft esmtp)`,
			OS:      `(?i)(ubuntu|debian|linux|windows|bsd)`,
			Extra:   `^220[ -]([^\r\n]+)`,
			Probe:   []byte("EHLO localhost\r\n"),
			Ports:   []int{25, 465, 587},
		},
		{
			Service: "redis",
			Pattern: `^(?:\+PONG|-NOAUTH|-DENIED|-ERR (?:unknown command|wrong number of arguments|Protocol error))`,
			Version: `redis_version:([^\r\n]+)`,
			Product: `(?i)(redis)`,
			Extra:   `^-(NOAUTH|DENIED)`,
			Probe:   []byte("PING\r\n"),
			Ports:   []int{6379},
		},
		{
			// 握手包: 3 字节长度 + 序号 0 + 协议版本 10
			Service: "mysql",
			Pattern: `(?s)^.\x00\x00\x00\x0a|is not allowed to connect to this (?:MySQL|MariaDB) server`,
			Version: `(?s)^.\x00\x00\x00\x0a(\d[\w.\-]*)`,
			Product: `(?i)(mariadb|percona|mysql)`,
			Ports:   []int{3306},
		},
		{
			// SSLRequest 的应答为单字节 N/S, 非法启动包返回 ErrorResponse
			Service: "postgresql",
			Pattern: `(?s)^[NS]$|^E.{4}SFATAL\x00`,
			Product: `(?i)(postgresql)`,
			Extra:   `(?s)^E.{4}SFATAL\x00(?:VFATAL\x00)?C\w+\x00M([^\x00]+)`,
			Probe:   []byte{0x00, 0x00, 0x00, 0x08, 0x04, 0xd2, 0x16, 0x2f},
			Ports:   []int{5432},
		},
		{
			// TCP DNS: 2 字节长度 + ID 0x0006, 查询 version.bind CH TXT
			Service: "dns",
			Pattern: `(?s)^\x00.\x00\x06`,
			Version: `(?is)version\.bind.*?(\d+\.\d+[\w.\-]*)`,
			Product: `(?i)(bind|unbound|powerdns|dnsmasq)`,
			Probe: []byte("\x00\x1e\x00\x06\x01\x00\x00\x01\x00\x00\x00\x00\x00\x00" +
				"\x07version\x04bind\x00\x00\x10\x00\x03"),
			Ports: []int{53},
		},
	}
}
