package verify

import (
	"context"
	"errors"
	"net"
	"time"

	"golang.org/x/crypto/ssh"

	"neorecon/internal/pkg/version"
)

// errKeyCaptured 拿到主机密钥后主动中止握手
var errKeyCaptured = errors.New("host key captured")

// SSHChecker 完成密钥交换, 记录主机密钥类型和指纹, 不做认证
type SSHChecker struct{}

func NewSSHChecker() *SSHChecker {
	return &SSHChecker{}
}

func (c *SSHChecker) Name() string {
	return "ssh"
}

func (c *SSHChecker) Check(ctx context.Context, address string, dial DialFunc) (*Finding, error) {
	conn, err := dial(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(DefaultTimeout)
	}
	conn.SetDeadline(deadline)

	var hostKey ssh.PublicKey
	config := &ssh.ClientConfig{
		User:          "neorecon",
		ClientVersion: "SSH-2.0-" + version.GetProbeTag(),
		HostKeyCallback: func(hostname string, remote net.Addr, key ssh.PublicKey) error {
			hostKey = key
			return errKeyCaptured
		},
	}

	_, _, _, err = ssh.NewClientConn(conn, address, config)
	if hostKey == nil {
		if err == nil {
			err = errors.New("ssh handshake finished without host key")
		}
		return nil, err
	}

	return &Finding{
		Metadata: map[string]string{
			"host_key_type":        hostKey.Type(),
			"host_key_fingerprint": ssh.FingerprintSHA256(hostKey),
		},
	}, nil
}
