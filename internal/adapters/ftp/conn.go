package ftp

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"os"

	"github.com/jlaffaye/ftp"

	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

// serverConn is the subset of the FTP protocol the feed adapter uses.
// Tests substitute a fake; production wraps *ftp.ServerConn.
type serverConn interface {
	List(path string) ([]*ftp.Entry, error)
	FileSize(path string) (int64, error)
	Retrieve(path string) (io.ReadCloser, error)
	NoOp() error
	Quit() error
}

type realConn struct {
	conn *ftp.ServerConn
}

func (c *realConn) List(path string) ([]*ftp.Entry, error) { return c.conn.List(path) }
func (c *realConn) FileSize(path string) (int64, error)    { return c.conn.FileSize(path) }
func (c *realConn) NoOp() error                            { return c.conn.NoOp() }
func (c *realConn) Quit() error                            { return c.conn.Quit() }

func (c *realConn) Retrieve(path string) (io.ReadCloser, error) {
	return c.conn.Retr(path)
}

// dialFunc opens an authenticated feed connection
type dialFunc func(ctx context.Context) (serverConn, error)

// tlsConfigFor builds the explicit-TLS config for the control
// connection. Some vendor endpoints present self-signed certificates;
// verification is skipped only when the config opts in.
func tlsConfigFor(cfg config.FTPConfig) *tls.Config {
	return &tls.Config{
		ServerName:         cfg.Host,
		InsecureSkipVerify: cfg.AllowSelfSigned,
	}
}

// newDialer builds the production dialer from config
func newDialer(cfg config.FTPConfig) dialFunc {
	return func(ctx context.Context) (serverConn, error) {
		opts := []ftp.DialOption{
			ftp.DialWithContext(ctx),
			ftp.DialWithTimeout(cfg.ConnectTimeout),
		}
		if cfg.Secure {
			opts = append(opts, ftp.DialWithExplicitTLS(tlsConfigFor(cfg)))
		}
		if cfg.Verbose {
			opts = append(opts, ftp.DialWithDebugOutput(os.Stderr))
		}

		addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
		conn, err := ftp.Dial(addr, opts...)
		if err != nil {
			return nil, fmt.Errorf("ftp dial %s failed: %w", addr, err)
		}
		if err := conn.Login(cfg.User, cfg.Password); err != nil {
			_ = conn.Quit()
			return nil, fmt.Errorf("ftp login failed: %w", err)
		}
		return &realConn{conn: conn}, nil
	}
}
