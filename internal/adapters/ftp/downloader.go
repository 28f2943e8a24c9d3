package ftp

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
)

// connSource hands out connections for download attempts. The control
// client reuses its single connection; the pool checks slots in and out.
type connSource interface {
	// acquire returns a connection. stale means the previous attempt's
	// connection failed and must not be reused.
	acquire(ctx context.Context, stale bool) (serverConn, error)

	// release returns the connection after an attempt. healthy=false
	// marks it unusable.
	release(conn serverConn, healthy bool)
}

// downloadWithRetries runs the shared per-file retry discipline: probe
// size, fetch with timeout, back off and reconnect between attempts.
// Oversized files are reported, not retried.
func downloadWithRetries(ctx context.Context, path string, opts common.DownloadOptions, source connSource) common.DownloadResult {
	attempts := opts.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	stale := false
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			delay := opts.RetryDelay * time.Duration(1<<(attempt-2))
			if err := sleepCtx(ctx, delay); err != nil {
				return common.DownloadResult{Err: err}
			}
		}

		conn, err := source.acquire(ctx, stale)
		if err != nil {
			lastErr = err
			stale = false
			continue
		}
		stale = false

		if opts.MaxFileSizeBytes > 0 {
			if size, err := conn.FileSize(path); err == nil && size > opts.MaxFileSizeBytes {
				source.release(conn, true)
				return common.DownloadResult{Oversized: true}
			}
		}

		data, err := fetch(ctx, conn, path, opts.FileTimeout)
		if err == nil {
			if opts.MaxFileSizeBytes > 0 && int64(len(data)) > opts.MaxFileSizeBytes {
				source.release(conn, true)
				return common.DownloadResult{Oversized: true}
			}
			source.release(conn, true)
			return common.DownloadResult{Data: data}
		}

		source.release(conn, false)
		stale = true
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return common.DownloadResult{Err: fmt.Errorf("download of %s failed after %d attempts: %w", path, attempts, lastErr)}
}

// fetch retrieves one file, enforcing the per-file timeout. On timeout
// the connection is abandoned to its source as unhealthy.
func fetch(ctx context.Context, conn serverConn, path string, timeout time.Duration) ([]byte, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		rc, err := conn.Retrieve(path)
		if err != nil {
			ch <- result{nil, fmt.Errorf("ftp retrieve of %s failed: %w", path, err)}
			return
		}
		data, err := io.ReadAll(rc)
		closeErr := rc.Close()
		if err == nil {
			err = closeErr
		}
		ch <- result{data, err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		timer = time.After(timeout)
	}
	select {
	case res := <-ch:
		return res.data, res.err
	case <-timer:
		return nil, fmt.Errorf("download of %s timed out after %s", path, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clientSource adapts Client's single control connection to connSource
type clientSource struct {
	client *Client
}

func (s *clientSource) acquire(ctx context.Context, stale bool) (serverConn, error) {
	if stale {
		s.client.dropConn()
	}
	return s.client.ensureConn(ctx)
}

func (s *clientSource) release(conn serverConn, healthy bool) {
	if !healthy {
		s.client.dropConn()
	}
}
