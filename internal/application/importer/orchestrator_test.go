package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// --- fakes ---

type fakeSequence struct {
	mu    sync.Mutex
	files []ingestion.FileInfo
	idx   int
	err   error
}

func (s *fakeSequence) Next(ctx context.Context) (ingestion.FileInfo, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idx >= len(s.files) {
		if s.err != nil {
			return ingestion.FileInfo{}, false, s.err
		}
		return ingestion.FileInfo{}, false, nil
	}
	f := s.files[s.idx]
	s.idx++
	return f, true, nil
}

type fakeFeedClient struct {
	mu          sync.Mutex
	listed      []ingestion.FileInfo
	listErr     error
	files       map[string][]byte
	oversized   map[string]bool
	downloadErr map[string]error
	reconnects  int
	disconnects int
	connectErr  error
}

func (c *fakeFeedClient) ForceReconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reconnects++
	return c.connectErr
}

func (c *fakeFeedClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
}

func (c *fakeFeedClient) TestConnection(ctx context.Context) (string, error) {
	return "ok", nil
}

func (c *fakeFeedClient) AvailableYears(ctx context.Context) ([]int, error) {
	return []int{2026}, nil
}

func (c *fakeFeedClient) List(ctx context.Context, filter common.ListFilter, cancelled func() bool) common.FileSequence {
	return &fakeSequence{files: c.listed, err: c.listErr}
}

func (c *fakeFeedClient) Download(ctx context.Context, path string, opts common.DownloadOptions) common.DownloadResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.oversized[path] {
		return common.DownloadResult{Oversized: true}
	}
	if err := c.downloadErr[path]; err != nil {
		return common.DownloadResult{Err: err}
	}
	data, ok := c.files[path]
	if !ok {
		return common.DownloadResult{Err: fmt.Errorf("download of %s failed: no such file", path)}
	}
	return common.DownloadResult{Data: data}
}

type fakePool struct {
	client *fakeFeedClient
	inited int
	size   int
	drains int
}

func (p *fakePool) Init(ctx context.Context, size int) error {
	p.inited++
	p.size = size
	return nil
}

func (p *fakePool) Download(ctx context.Context, path string, opts common.DownloadOptions) common.DownloadResult {
	return p.client.Download(ctx, path, opts)
}

func (p *fakePool) Drain() { p.drains++ }

type fakeImporter struct {
	mu         sync.Mutex
	imported   []string
	existing   map[string]bool
	failWith   map[string]error
	stubs      ingestion.StubCounters
	backfilled int
}

func (i *fakeImporter) ImportSailing(ctx context.Context, payload *ingestion.SailingPayload, ids ingestion.PathIdentifiers, raw []byte) (common.ImportOutcome, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.failWith[ids.CodeToCruiseID]; err != nil {
		return common.ImportOutcome{}, err
	}
	i.imported = append(i.imported, ids.CodeToCruiseID)
	return common.ImportOutcome{IsNew: !i.existing[ids.CodeToCruiseID]}, nil
}

func (i *fakeImporter) BackfillAlternates(ctx context.Context) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.backfilled++
	return 0, nil
}

func (i *fakeImporter) StubCounters(reset bool) ingestion.StubCounters {
	i.mu.Lock()
	defer i.mu.Unlock()
	s := i.stubs
	if reset {
		i.stubs = ingestion.StubCounters{}
	}
	return s
}

type memFileSync struct {
	mu      sync.Mutex
	rows    map[string]*ingestion.FileSyncRecord
	loadErr error
}

func newMemFileSync() *memFileSync {
	return &memFileSync{rows: make(map[string]*ingestion.FileSyncRecord)}
}

func (m *memFileSync) LoadAll(ctx context.Context) (map[string]*ingestion.FileSyncRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make(map[string]*ingestion.FileSyncRecord, len(m.rows))
	for k, v := range m.rows {
		copied := *v
		out[k] = &copied
	}
	return out, nil
}

func (m *memFileSync) Record(ctx context.Context, rec *ingestion.FileSyncRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *rec
	m.rows[rec.FilePath] = &copied
	return nil
}

type memHistory struct {
	mu              sync.Mutex
	nextID          int
	options         ingestion.SyncOptions
	progressUpdates int
	finalStatus     ingestion.RunStatus
	finalMetrics    ingestion.ImportMetrics
	finalized       bool
}

func (m *memHistory) Create(ctx context.Context, startedAt time.Time, options ingestion.SyncOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.options = options
	return fmt.Sprintf("run-%d", m.nextID), nil
}

func (m *memHistory) UpdateProgress(ctx context.Context, id string, metrics ingestion.ImportMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.progressUpdates++
	return nil
}

func (m *memHistory) Finalize(ctx context.Context, id string, status ingestion.RunStatus, completedAt time.Time, metrics ingestion.ImportMetrics) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finalized = true
	m.finalStatus = status
	m.finalMetrics = metrics
	return nil
}

func (m *memHistory) List(ctx context.Context, limit int) ([]ingestion.SyncHistoryRecord, error) {
	return nil, nil
}

func (m *memHistory) Get(ctx context.Context, id string) (*ingestion.SyncHistoryRecord, error) {
	return nil, nil
}

// --- helpers ---

func feedFile(path string, size int64) ingestion.FileInfo {
	modified := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return ingestion.FileInfo{Path: path, Name: path[strings.LastIndex(path, "/")+1:], Size: size, ModifiedAt: &modified}
}

type testHarness struct {
	client   *fakeFeedClient
	pool     *fakePool
	importer *fakeImporter
	fileSync *memFileSync
	history  *memHistory
	clock    *shared.MockClock
	service  *SyncService
}

func newHarness(t *testing.T) *testHarness {
	t.Helper()
	client := &fakeFeedClient{
		files:       map[string][]byte{},
		oversized:   map[string]bool{},
		downloadErr: map[string]error{},
	}
	pool := &fakePool{client: client}
	imp := &fakeImporter{existing: map[string]bool{}, failWith: map[string]error{}}
	fileSync := newMemFileSync()
	history := &memHistory{}
	clock := shared.NewMockClock(time.Date(2026, 3, 1, 2, 0, 0, 0, time.UTC))
	service := NewSyncService(client, pool, imp, NewReferenceCache(clock), fileSync, history, clock, GuardConfig{Bypass: true})
	return &testHarness{client: client, pool: pool, importer: imp, fileSync: fileSync, history: history, clock: clock, service: service}
}

const validSailing = `{"name":"Western Caribbean","saildate":"2026-06-01","nights":7,"itinerary":[{"day":"1","portid":"101","name":"Miami"},{"day":"2","name":"At Sea"}],"cheapestinside":599.99,"cheapestbalcony":"899"}`

func TestRunImportsDiscoveredFiles(t *testing.T) {
	h := newHarness(t)
	h.client.listed = []ingestion.FileInfo{
		feedFile("/2026/06/7/231/1001.json", 100),
		feedFile("/2026/06/7/231/1002.json", 100),
	}
	h.client.files["/2026/06/7/231/1001.json"] = []byte(validSailing)
	h.client.files["/2026/06/7/231/1002.json"] = []byte(validSailing)
	h.importer.existing["1002"] = true

	metrics, runID, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, "run-1", runID)

	assert.Equal(t, 2, metrics.FilesFound)
	assert.Equal(t, 2, metrics.FilesProcessed)
	assert.Equal(t, 1, metrics.SailingsCreated)
	assert.Equal(t, 1, metrics.SailingsUpdated)
	assert.Equal(t, 2, metrics.SailingsUpserted)
	assert.Equal(t, 4, metrics.StopsInserted)
	assert.Equal(t, 2, metrics.PricesInserted)
	assert.False(t, metrics.Cancelled)

	assert.Equal(t, ingestion.RunStatusCompleted, h.history.finalStatus)
	assert.Equal(t, 1, h.importer.backfilled)
	assert.Equal(t, 1, h.client.reconnects)
	assert.Equal(t, 1, h.client.disconnects)

	rec := h.fileSync.rows["/2026/06/7/231/1001.json"]
	require.NotNil(t, rec)
	assert.Equal(t, ingestion.SyncStatusSuccess, rec.SyncStatus)
	require.NotNil(t, rec.ContentHash)
}

func TestRunUsesPoolForConcurrentDownloads(t *testing.T) {
	h := newHarness(t)
	h.client.listed = []ingestion.FileInfo{feedFile("/2026/06/7/231/1001.json", 100)}
	h.client.files["/2026/06/7/231/1001.json"] = []byte(validSailing)

	_, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 4})
	require.NoError(t, err)
	assert.Equal(t, 1, h.pool.inited)
	assert.Equal(t, 5, h.pool.size)
	assert.Equal(t, 1, h.pool.drains)
}

func TestRunSkipsUnchangedFiles(t *testing.T) {
	h := newHarness(t)
	path := "/2026/06/7/231/1001.json"
	info := feedFile(path, 100)
	h.client.listed = []ingestion.FileInfo{info}
	h.client.files[path] = []byte(validSailing)

	hash := "abc"
	require.NoError(t, h.fileSync.Record(context.Background(), &ingestion.FileSyncRecord{
		FilePath:      path,
		FileSize:      100,
		FtpModifiedAt: info.ModifiedAt,
		ContentHash:   &hash,
		SyncStatus:    ingestion.SyncStatusSuccess,
		LastSyncedAt:  h.clock.Now(),
	}))

	metrics, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.FilesSkipped)
	assert.Equal(t, 1, metrics.SkipReasons.Unchanged)
	assert.Equal(t, 0, metrics.FilesProcessed)
	assert.Empty(t, h.importer.imported)
}

func TestRunRetriesPreviouslyFailedFiles(t *testing.T) {
	h := newHarness(t)
	path := "/2026/06/7/231/1001.json"
	h.client.listed = []ingestion.FileInfo{feedFile(path, 100)}
	h.client.files[path] = []byte(validSailing)

	require.NoError(t, h.fileSync.Record(context.Background(), &ingestion.FileSyncRecord{
		FilePath:   path,
		FileSize:   100,
		SyncStatus: ingestion.SyncStatusFailed,
		LastError:  "download of file failed",
	}))

	metrics, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.FilesProcessed)
	assert.Equal(t, ingestion.SyncStatusSuccess, h.fileSync.rows[path].SyncStatus)
}

func TestRunForceFullSyncIgnoresDeltaState(t *testing.T) {
	h := newHarness(t)
	path := "/2026/06/7/231/1001.json"
	info := feedFile(path, 100)
	h.client.listed = []ingestion.FileInfo{info}
	h.client.files[path] = []byte(validSailing)

	require.NoError(t, h.fileSync.Record(context.Background(), &ingestion.FileSyncRecord{
		FilePath:      path,
		FileSize:      100,
		FtpModifiedAt: info.ModifiedAt,
		SyncStatus:    ingestion.SyncStatusSuccess,
	}))

	metrics, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1, ForceFullSync: true})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.FilesProcessed)
	assert.Equal(t, 0, metrics.FilesSkipped)
}

func TestRunClassifiesFailures(t *testing.T) {
	h := newHarness(t)
	h.client.listed = []ingestion.FileInfo{
		feedFile("/2026/06/7/231/1001.json", 100),
		feedFile("/2026/06/7/231/1002.json", 100),
		feedFile("/2026/06/7/231/1003.json", 999_999),
		feedFile("/2026/06/7/231/1004.json", 100),
		feedFile("/bad-path.json", 50),
	}
	h.client.files["/2026/06/7/231/1001.json"] = []byte(`{not json`)
	h.client.downloadErr["/2026/06/7/231/1002.json"] = errors.New("connection reset")
	h.client.oversized["/2026/06/7/231/1003.json"] = true
	h.client.files["/2026/06/7/231/1004.json"] = []byte(validSailing)
	h.importer.failWith["1004"] = shared.NewValidationError("saildate", "is required")

	metrics, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.NoError(t, err)

	assert.Equal(t, 5, metrics.FilesFound)
	assert.Equal(t, 0, metrics.FilesProcessed)
	assert.Equal(t, 1, metrics.FilesSkipped)
	assert.Equal(t, 4, metrics.FilesFailed)
	assert.Equal(t, 1, metrics.SkipReasons.Oversized)
	assert.Equal(t, 1, metrics.SkipReasons.ParseError)
	assert.Equal(t, 1, metrics.SkipReasons.DownloadFailed)
	assert.Equal(t, 2, metrics.SkipReasons.MissingFields)
	assert.Len(t, metrics.Errors, 4)
	for _, e := range metrics.Errors {
		if e.FilePath == "/bad-path.json" {
			assert.Contains(t, e.Error, "IDs from file path")
		}
	}

	// Failures are recorded for retry on the next run
	assert.Equal(t, ingestion.SyncStatusFailed, h.fileSync.rows["/2026/06/7/231/1002.json"].SyncStatus)
	// Oversized skips leave no tracking row; the size check is repeated next run
	assert.Nil(t, h.fileSync.rows["/2026/06/7/231/1003.json"])
}

func TestDryRunListsWithoutImporting(t *testing.T) {
	h := newHarness(t)
	h.client.listed = []ingestion.FileInfo{
		feedFile("/2026/06/7/231/1001.json", 100),
		feedFile("/2026/06/7/231/1002.json", 100),
	}

	metrics, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, metrics.DryRun)
	assert.Equal(t, 2, metrics.FilesFound)
	assert.Equal(t, 0, metrics.FilesProcessed)
	assert.Empty(t, h.importer.imported)
	assert.Equal(t, ingestion.RunStatusCompleted, h.history.finalStatus)
	// Dry runs do not trigger the alternate backfill
	assert.Equal(t, 0, h.importer.backfilled)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	h := newHarness(t)
	h.service.mu.Lock()
	h.service.running = true
	h.service.mu.Unlock()

	_, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{})
	var busy *shared.SyncInProgressError
	require.ErrorAs(t, err, &busy)
}

func TestEnvironmentGuardBlocksNonProduction(t *testing.T) {
	h := newHarness(t)
	h.service.guard = GuardConfig{APIURL: "https://staging.example.com", ProductionURL: "atlasvoyages.com"}

	_, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{})
	var guardErr *shared.EnvironmentGuardError
	require.ErrorAs(t, err, &guardErr)
	assert.Equal(t, "https://staging.example.com", guardErr.APIURL)

	// Dry runs bypass the guard
	_, _, err = h.service.Run(context.Background(), ingestion.SyncOptions{DryRun: true})
	require.NoError(t, err)
}

func TestEnvironmentGuardBypass(t *testing.T) {
	h := newHarness(t)
	h.service.guard = GuardConfig{APIURL: "http://localhost:8080", ProductionURL: "atlasvoyages.com", Bypass: true}

	_, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.NoError(t, err)
}

func TestRunFailsWhenFeedUnreachable(t *testing.T) {
	h := newHarness(t)
	h.client.connectErr = errors.New("dial tcp: connection refused")

	_, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.Error(t, err)
	assert.Equal(t, ingestion.RunStatusFailed, h.history.finalStatus)
	assert.False(t, h.service.Running())
}

func TestCancelWhenIdle(t *testing.T) {
	h := newHarness(t)
	assert.False(t, h.service.Cancel())
}

func TestStatusReflectsIdleService(t *testing.T) {
	h := newHarness(t)
	state := h.service.Status()
	assert.False(t, state.InProgress)
	assert.False(t, state.CancelRequested)
	assert.Empty(t, state.RunID)
	assert.Nil(t, state.Progress)
}

func TestStubCountersLandInMetrics(t *testing.T) {
	h := newHarness(t)
	h.client.listed = []ingestion.FileInfo{feedFile("/2026/06/7/231/1001.json", 100)}
	h.client.files["/2026/06/7/231/1001.json"] = []byte(validSailing)
	h.importer.stubs = ingestion.StubCounters{Ports: 2, Ships: 1}

	metrics, _, err := h.service.Run(context.Background(), ingestion.SyncOptions{Concurrency: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, metrics.Stubs.Ports)
	assert.Equal(t, 1, metrics.Stubs.Ships)
}
