package ftp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/ingestion"
)

// fileSequence streams feed files discovered by a background walk of
// the /YYYY/MM/LINE/SHIP tree. Consumers pull with Next; the walk stays
// at most a small buffer ahead, so processing overlaps discovery.
type fileSequence struct {
	items chan ingestion.FileInfo
	errCh chan error
}

func newFileSequence(ctx context.Context, client *Client, filter common.ListFilter, cancelled func() bool) *fileSequence {
	s := &fileSequence{
		items: make(chan ingestion.FileInfo, 16),
		errCh: make(chan error, 1),
	}
	go s.walk(ctx, client, filter, cancelled)
	return s
}

// Next returns the next discovered file, or ok=false when the walk is done
func (s *fileSequence) Next(ctx context.Context) (ingestion.FileInfo, bool, error) {
	select {
	case <-ctx.Done():
		return ingestion.FileInfo{}, false, ctx.Err()
	case info, ok := <-s.items:
		if !ok {
			select {
			case err := <-s.errCh:
				return ingestion.FileInfo{}, false, err
			default:
				return ingestion.FileInfo{}, false, nil
			}
		}
		return info, true, nil
	}
}

type walker struct {
	seq       *fileSequence
	client    *Client
	filter    common.ListFilter
	cancelled func() bool
	now       time.Time
	sent      int
}

func (s *fileSequence) walk(ctx context.Context, client *Client, filter common.ListFilter, cancelled func() bool) {
	defer close(s.items)

	now := time.Now()
	if client.now != nil {
		now = client.now()
	}
	w := &walker{seq: s, client: client, filter: filter, cancelled: cancelled, now: now}

	years, err := w.resolveYears(ctx)
	if err != nil {
		s.errCh <- err
		return
	}

	for _, year := range years {
		if w.stopped(ctx) {
			return
		}
		if !w.walkYear(ctx, year) {
			return
		}
	}
}

// stopped polls cancellation between directory levels
func (w *walker) stopped(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return w.cancelled != nil && w.cancelled()
}

func (w *walker) atCap() bool {
	return w.filter.MaxFiles > 0 && w.sent >= w.filter.MaxFiles
}

// resolveYears picks the year directories to walk. A failed or empty
// root listing falls back to the current and next year.
func (w *walker) resolveYears(ctx context.Context) ([]int, error) {
	if w.filter.Year != 0 {
		return []int{w.filter.Year}, nil
	}

	currentYear := w.now.Year()
	available, err := w.client.AvailableYears(ctx)
	if err != nil || len(available) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return []int{currentYear, currentYear + 1}, nil
	}

	minYear := currentYear
	if minYear < minFeedYear {
		minYear = minFeedYear
	}
	var years []int
	for _, year := range available {
		if year < minYear && !w.filter.IncludeHistorical {
			continue
		}
		years = append(years, year)
	}
	if len(years) == 0 {
		return []int{currentYear, currentYear + 1}, nil
	}
	return years, nil
}

func (w *walker) walkYear(ctx context.Context, year int) bool {
	yearPath := fmt.Sprintf("/%d", year)

	var months []string
	if w.filter.Month != 0 {
		months = []string{fmt.Sprintf("%02d", w.filter.Month)}
	} else {
		// In the current year, months already behind us hold only
		// departed sailings; they are walked only on historical runs.
		minMonth := 0
		if !w.filter.IncludeHistorical && year == w.now.Year() {
			minMonth = int(w.now.Month())
		}
		for _, name := range w.listSubdirs(ctx, yearPath) {
			if month, err := strconv.Atoi(name); err == nil && month >= minMonth && month >= 1 && month <= 12 {
				months = append(months, name)
			}
		}
	}

	for _, month := range months {
		if w.stopped(ctx) || w.atCap() {
			return false
		}
		monthPath := yearPath + "/" + month

		lines := []string{w.filter.LineID}
		if w.filter.LineID == "" {
			lines = w.listSubdirs(ctx, monthPath)
		}
		for _, line := range lines {
			if w.stopped(ctx) || w.atCap() {
				return false
			}
			linePath := monthPath + "/" + line

			ships := []string{w.filter.ShipID}
			if w.filter.ShipID == "" {
				ships = w.listSubdirs(ctx, linePath)
			}
			for _, ship := range ships {
				if w.stopped(ctx) || w.atCap() {
					return false
				}
				if !w.emitFiles(ctx, linePath+"/"+ship) {
					return false
				}
			}
		}
	}
	return true
}

// listSubdirs lists folder names under path. Listing errors skip the
// directory rather than aborting the whole walk.
func (w *walker) listSubdirs(ctx context.Context, path string) []string {
	entries, err := w.client.list(ctx, path)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if entry.Type == ftp.EntryTypeFolder {
			names = append(names, entry.Name)
		}
	}
	return names
}

// emitFiles yields every .json file in a ship directory
func (w *walker) emitFiles(ctx context.Context, shipPath string) bool {
	entries, err := w.client.list(ctx, shipPath)
	if err != nil {
		return true
	}
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile || !strings.HasSuffix(entry.Name, ".json") {
			continue
		}
		if w.atCap() {
			return false
		}
		info := ingestion.FileInfo{
			Path: shipPath + "/" + entry.Name,
			Name: entry.Name,
			Size: int64(entry.Size),
		}
		if !entry.Time.IsZero() {
			modified := entry.Time
			info.ModifiedAt = &modified
		}
		select {
		case w.seq.items <- info:
			w.sent++
		case <-ctx.Done():
			return false
		}
	}
	return true
}
