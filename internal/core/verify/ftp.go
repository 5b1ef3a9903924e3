package verify

import (
	"context"
	"errors"
	"net"
	"net/textproto"

	"github.com/jlaffaye/ftp"
)

// FTPChecker 尝试匿名登录
type FTPChecker struct{}

func NewFTPChecker() *FTPChecker {
	return &FTPChecker{}
}

func (c *FTPChecker) Name() string {
	return "ftp"
}

func (c *FTPChecker) Check(ctx context.Context, address string, dial DialFunc) (*Finding, error) {
	conn, err := ftp.Dial(address,
		ftp.DialWithContext(ctx),
		ftp.DialWithDialFunc(func(network, addr string) (net.Conn, error) {
			return dial(ctx, network, addr)
		}),
	)
	if err != nil {
		return nil, err
	}
	defer conn.Quit()

	if err := conn.Login("anonymous", "anonymous@example.com"); err != nil {
		var tpErr *textproto.Error
		// 530 Login incorrect
		if errors.As(err, &tpErr) && tpErr.Code == ftp.StatusNotLoggedIn {
			return &Finding{Metadata: map[string]string{"anonymous": "denied"}}, nil
		}
		return nil, err
	}
	conn.Logout()

	return &Finding{
		Metadata:   map[string]string{"anonymous": "allowed"},
		Advisories: []string{"FTP anonymous login allowed"},
	}, nil
}
