package ftp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/infrastructure/config"
)

type fakeConn struct {
	mu           sync.Mutex
	dirs         map[string][]*ftp.Entry
	files        map[string][]byte
	sizes        map[string]int64
	retrFailures int
	retrCalls    int
	quitCount    int
}

func (c *fakeConn) List(path string) ([]*ftp.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries, ok := c.dirs[path]
	if !ok {
		return nil, fmt.Errorf("no such directory: %s", path)
	}
	return entries, nil
}

func (c *fakeConn) FileSize(path string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if size, ok := c.sizes[path]; ok {
		return size, nil
	}
	if data, ok := c.files[path]; ok {
		return int64(len(data)), nil
	}
	return 0, errors.New("no such file")
}

func (c *fakeConn) Retrieve(path string) (io.ReadCloser, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.retrCalls++
	if c.retrCalls <= c.retrFailures {
		return nil, errors.New("transfer failed")
	}
	data, ok := c.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (c *fakeConn) NoOp() error { return nil }

func (c *fakeConn) Quit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quitCount++
	return nil
}

func folder(name string) *ftp.Entry {
	return &ftp.Entry{Name: name, Type: ftp.EntryTypeFolder}
}

func jsonFile(name string, size uint64) *ftp.Entry {
	return &ftp.Entry{Name: name, Type: ftp.EntryTypeFile, Size: size, Time: time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func newFakeClient(conn serverConn) *Client {
	return &Client{
		cfg:     config.FTPConfig{Host: "feed.test", User: "user"},
		dial:    func(ctx context.Context) (serverConn, error) { return conn, nil },
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
}

func drainSequence(t *testing.T, seq common.FileSequence) []ingestion.FileInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var files []ingestion.FileInfo
	for {
		info, ok, err := seq.Next(ctx)
		require.NoError(t, err)
		if !ok {
			return files
		}
		files = append(files, info)
	}
}

func TestAvailableYears(t *testing.T) {
	conn := &fakeConn{dirs: map[string][]*ftp.Entry{
		"/": {folder("2027"), folder("2026"), folder("1999"), folder("isocodes"), jsonFile("readme.json", 10)},
	}}
	client := newFakeClient(conn)

	years, err := client.AvailableYears(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2026, 2027}, years)
}

func TestListWalksDirectoryTree(t *testing.T) {
	year := time.Now().Year()
	yearDir := fmt.Sprintf("/%d", year)
	conn := &fakeConn{dirs: map[string][]*ftp.Entry{
		"/":                              {folder(fmt.Sprintf("%d", year))},
		yearDir:                          {folder("05"), folder("notamonth")},
		yearDir + "/05":                  {folder("7")},
		yearDir + "/05/7":                {folder("231")},
		yearDir + "/05/7/231":            {jsonFile("1234567.json", 2048), {Name: "manifest.txt", Type: ftp.EntryTypeFile}},
	}}
	client := newFakeClient(conn)
	client.now = func() time.Time { return time.Date(year, 4, 1, 0, 0, 0, 0, time.UTC) }

	seq := client.List(context.Background(), common.ListFilter{}, nil)
	files := drainSequence(t, seq)

	require.Len(t, files, 1)
	assert.Equal(t, yearDir+"/05/7/231/1234567.json", files[0].Path)
	assert.Equal(t, "1234567.json", files[0].Name)
	assert.Equal(t, int64(2048), files[0].Size)
	require.NotNil(t, files[0].ModifiedAt)
}

func TestListSkipsPastMonthsOfCurrentYear(t *testing.T) {
	conn := &fakeConn{dirs: map[string][]*ftp.Entry{
		"/":              {folder("2026")},
		"/2026":          {folder("03"), folder("08"), folder("11")},
		"/2026/03":       {folder("7")},
		"/2026/03/7":     {folder("231")},
		"/2026/03/7/231": {jsonFile("1.json", 10)},
		"/2026/08":       {folder("7")},
		"/2026/08/7":     {folder("231")},
		"/2026/08/7/231": {jsonFile("2.json", 10)},
		"/2026/11":       {folder("7")},
		"/2026/11/7":     {folder("231")},
		"/2026/11/7/231": {jsonFile("3.json", 10)},
	}}
	client := newFakeClient(conn)
	client.now = func() time.Time { return time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC) }

	files := drainSequence(t, client.List(context.Background(), common.ListFilter{}, nil))
	require.Len(t, files, 2)
	assert.Equal(t, "/2026/08/7/231/2.json", files[0].Path)
	assert.Equal(t, "/2026/11/7/231/3.json", files[1].Path)

	historical := drainSequence(t, client.List(context.Background(), common.ListFilter{IncludeHistorical: true}, nil))
	assert.Len(t, historical, 3)
}

func TestListHonorsMaxFiles(t *testing.T) {
	shipDir := "/2026/01/7/231"
	conn := &fakeConn{dirs: map[string][]*ftp.Entry{
		shipDir: {jsonFile("1.json", 10), jsonFile("2.json", 10), jsonFile("3.json", 10)},
	}}
	client := newFakeClient(conn)

	seq := client.List(context.Background(), common.ListFilter{
		Year: 2026, Month: 1, LineID: "7", ShipID: "231", MaxFiles: 2,
	}, nil)
	files := drainSequence(t, seq)
	assert.Len(t, files, 2)
}

func TestListStopsWhenCancelled(t *testing.T) {
	conn := &fakeConn{dirs: map[string][]*ftp.Entry{
		"/2026/01/7/231": {jsonFile("1.json", 10)},
	}}
	client := newFakeClient(conn)

	seq := client.List(context.Background(), common.ListFilter{
		Year: 2026, Month: 1, LineID: "7", ShipID: "231",
	}, func() bool { return true })
	files := drainSequence(t, seq)
	assert.Empty(t, files)
}

func TestDownloadRetriesTransientFailures(t *testing.T) {
	conn := &fakeConn{
		files:        map[string][]byte{"/2026/01/7/231/1.json": []byte(`{"nights":7}`)},
		retrFailures: 2,
	}
	client := newFakeClient(conn)

	result := client.Download(context.Background(), "/2026/01/7/231/1.json", common.DownloadOptions{
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	})
	require.NoError(t, result.Err)
	assert.Equal(t, []byte(`{"nights":7}`), result.Data)
	assert.Equal(t, 3, conn.retrCalls)
}

func TestDownloadGivesUpAfterRetries(t *testing.T) {
	conn := &fakeConn{
		files:        map[string][]byte{"/a.json": []byte("{}")},
		retrFailures: 10,
	}
	client := newFakeClient(conn)

	result := client.Download(context.Background(), "/a.json", common.DownloadOptions{
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	})
	require.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "after 2 attempts")
}

func TestDownloadSkipsOversizedWithoutFetching(t *testing.T) {
	conn := &fakeConn{
		files: map[string][]byte{"/big.json": []byte("{}")},
		sizes: map[string]int64{"/big.json": 600_000},
	}
	client := newFakeClient(conn)

	result := client.Download(context.Background(), "/big.json", common.DownloadOptions{
		MaxFileSizeBytes: 500_000,
		RetryAttempts:    3,
	})
	require.NoError(t, result.Err)
	assert.True(t, result.Oversized)
	assert.Equal(t, 0, conn.retrCalls)
}

func TestPoolDownloadAndDrain(t *testing.T) {
	conn := &fakeConn{files: map[string][]byte{"/a.json": []byte(`{"ok":true}`)}}
	pool := &Pool{dial: func(ctx context.Context) (serverConn, error) { return conn, nil }}

	require.NoError(t, pool.Init(context.Background(), 2))

	result := pool.Download(context.Background(), "/a.json", common.DownloadOptions{RetryAttempts: 1})
	require.NoError(t, result.Err)
	assert.Equal(t, []byte(`{"ok":true}`), result.Data)

	pool.Drain()
	assert.GreaterOrEqual(t, conn.quitCount, 1)

	result = pool.Download(context.Background(), "/a.json", common.DownloadOptions{RetryAttempts: 1})
	require.Error(t, result.Err)
}

func TestPoolInitTwiceFails(t *testing.T) {
	conn := &fakeConn{}
	pool := &Pool{dial: func(ctx context.Context) (serverConn, error) { return conn, nil }}

	require.NoError(t, pool.Init(context.Background(), 1))
	assert.Error(t, pool.Init(context.Background(), 1))
}

func TestTLSConfigHonorsSelfSignedOptIn(t *testing.T) {
	cfg := config.FTPConfig{Host: "feed.test", Secure: true}
	tc := tlsConfigFor(cfg)
	assert.Equal(t, "feed.test", tc.ServerName)
	assert.False(t, tc.InsecureSkipVerify)

	cfg.AllowSelfSigned = true
	assert.True(t, tlsConfigFor(cfg).InsecureSkipVerify)
}

func TestTestConnectionUsesTransientConnection(t *testing.T) {
	conn := &fakeConn{dirs: map[string][]*ftp.Entry{"/": {folder("2026")}}}
	client := newFakeClient(conn)

	msg, err := client.TestConnection(context.Background())
	require.NoError(t, err)
	assert.Contains(t, msg, "feed.test")
	assert.Equal(t, 1, conn.quitCount)
}
