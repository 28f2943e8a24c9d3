package ftp

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/jlaffaye/ftp"
	"golang.org/x/time/rate"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

// Year directories outside this window are vendor noise
const (
	minFeedYear = 2000
	maxFeedYear = 2100
)

// Client is the single control-connection view of the vendor feed.
// Listing and single-threaded downloads share one lazily-opened
// connection; parallel downloads go through Pool instead.
type Client struct {
	cfg     config.FTPConfig
	dial    dialFunc
	limiter *rate.Limiter
	now     func() time.Time

	mu   sync.Mutex
	conn serverConn
}

// NewClient creates a feed client from config
func NewClient(cfg config.FTPConfig) *Client {
	return &Client{
		cfg:     cfg,
		dial:    newDialer(cfg),
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit.Requests), cfg.RateLimit.Burst),
		now:     time.Now,
	}
}

// ensureConn returns the control connection, dialing if needed
func (c *Client) ensureConn(ctx context.Context) (serverConn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return conn, nil
}

// ForceReconnect closes any existing control connection and opens a fresh one
func (c *Client) ForceReconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Quit()
		c.conn = nil
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}

// Disconnect closes the control connection if open
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Quit()
		c.conn = nil
	}
}

// dropConn discards the control connection after a transport error so
// the next call redials.
func (c *Client) dropConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Quit()
		c.conn = nil
	}
}

// TestConnection probes the feed with a transient connection that does
// not disturb the control connection.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	conn, err := c.dial(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.NoOp(); err != nil {
		return "", fmt.Errorf("ftp noop failed: %w", err)
	}
	entries, err := conn.List("/")
	if err != nil {
		return "", fmt.Errorf("ftp root listing failed: %w", err)
	}
	return fmt.Sprintf("connected to %s as %s (%d root entries)", c.cfg.Host, c.cfg.User, len(entries)), nil
}

// list runs one rate-limited directory listing on the control connection
func (c *Client) list(ctx context.Context, path string) ([]*ftp.Entry, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := conn.List(path)
	if err != nil {
		c.dropConn()
		return nil, fmt.Errorf("ftp listing of %s failed: %w", path, err)
	}
	return entries, nil
}

// AvailableYears lists the numeric year directories at the feed root
func (c *Client) AvailableYears(ctx context.Context) ([]int, error) {
	entries, err := c.list(ctx, "/")
	if err != nil {
		return nil, err
	}
	var years []int
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFolder {
			continue
		}
		year, err := strconv.Atoi(entry.Name)
		if err != nil || year < minFeedYear || year > maxFeedYear {
			continue
		}
		years = append(years, year)
	}
	sort.Ints(years)
	return years, nil
}

// List lazily walks /YYYY/MM/LINE/SHIP and yields .json files
func (c *Client) List(ctx context.Context, filter common.ListFilter, cancelled func() bool) common.FileSequence {
	return newFileSequence(ctx, c, filter, cancelled)
}

// Download fetches one file over the control connection
func (c *Client) Download(ctx context.Context, path string, opts common.DownloadOptions) common.DownloadResult {
	return downloadWithRetries(ctx, path, opts, &clientSource{client: c})
}

var _ common.FeedClient = (*Client)(nil)
