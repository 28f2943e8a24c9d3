package ftp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

// acquireTimeout bounds how long a worker waits for a pooled connection
const acquireTimeout = 30 * time.Second

// Pool is a fixed-size pool of authenticated feed connections for
// parallel downloads. A slot holding nil marks a connection that died;
// the next acquirer redials it.
type Pool struct {
	dial dialFunc

	mu    sync.Mutex
	slots chan serverConn
	size  int
}

// NewPool creates an unopened connection pool from config
func NewPool(cfg config.FTPConfig) *Pool {
	return &Pool{dial: newDialer(cfg)}
}

// Init opens the pool at the given size
func (p *Pool) Init(ctx context.Context, size int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.slots != nil {
		return fmt.Errorf("ftp pool already initialized")
	}
	if size < 1 {
		size = 1
	}

	slots := make(chan serverConn, size)
	for i := 0; i < size; i++ {
		conn, err := p.dial(ctx)
		if err != nil {
			close(slots)
			for conn := range slots {
				if conn != nil {
					_ = conn.Quit()
				}
			}
			return fmt.Errorf("failed to open ftp pool connection %d of %d: %w", i+1, size, err)
		}
		slots <- conn
	}
	p.slots = slots
	p.size = size
	return nil
}

func (p *Pool) acquire(ctx context.Context) (serverConn, error) {
	p.mu.Lock()
	slots := p.slots
	p.mu.Unlock()
	if slots == nil {
		return nil, fmt.Errorf("ftp pool not initialized")
	}

	select {
	case conn := <-slots:
		if conn == nil {
			fresh, err := p.dial(ctx)
			if err != nil {
				// Put the dead slot back so the pool keeps its size
				slots <- nil
				return nil, err
			}
			return fresh, nil
		}
		return conn, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(acquireTimeout):
		return nil, fmt.Errorf("timed out waiting for an ftp pool connection")
	}
}

func (p *Pool) releaseConn(conn serverConn, healthy bool) {
	p.mu.Lock()
	slots := p.slots
	p.mu.Unlock()
	if slots == nil {
		if conn != nil {
			_ = conn.Quit()
		}
		return
	}
	if !healthy {
		if conn != nil {
			_ = conn.Quit()
		}
		conn = nil
	}
	slots <- conn
}

// Download fetches one file, checking a pooled connection out per attempt
func (p *Pool) Download(ctx context.Context, path string, opts common.DownloadOptions) common.DownloadResult {
	return downloadWithRetries(ctx, path, opts, (*poolSource)(p))
}

// Drain closes all pooled connections and resets the pool
func (p *Pool) Drain() {
	p.mu.Lock()
	slots := p.slots
	size := p.size
	p.slots = nil
	p.size = 0
	p.mu.Unlock()
	if slots == nil {
		return
	}

	for i := 0; i < size; i++ {
		select {
		case conn := <-slots:
			if conn != nil {
				_ = conn.Quit()
			}
		case <-time.After(acquireTimeout):
			return
		}
	}
}

// poolSource adapts Pool to connSource
type poolSource Pool

func (s *poolSource) acquire(ctx context.Context, stale bool) (serverConn, error) {
	return (*Pool)(s).acquire(ctx)
}

func (s *poolSource) release(conn serverConn, healthy bool) {
	(*Pool)(s).releaseConn(conn, healthy)
}

var _ common.FeedPool = (*Pool)(nil)
