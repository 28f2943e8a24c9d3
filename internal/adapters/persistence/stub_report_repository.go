package persistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
)

// GormStubReportRepository aggregates needs_review and coverage statistics
type GormStubReportRepository struct {
	db *gorm.DB
}

// NewGormStubReportRepository creates a new stub-report repository
func NewGormStubReportRepository(db *gorm.DB) *GormStubReportRepository {
	return &GormStubReportRepository{db: db}
}

// StubReport counts needs_review rows per kind and port coordinate
// coverage, split between active ports (referenced by a stop) and
// orphan ports (never referenced).
func (r *GormStubReportRepository) StubReport(ctx context.Context) (common.StubReport, error) {
	var report common.StubReport
	db := r.db.WithContext(ctx)

	if err := db.Model(&CruiseLineModel{}).Where("needs_review = ?", true).Count(&report.CruiseLines).Error; err != nil {
		return report, fmt.Errorf("failed to count cruise line stubs: %w", err)
	}
	if err := db.Model(&ShipModel{}).Where("needs_review = ?", true).Count(&report.Ships).Error; err != nil {
		return report, fmt.Errorf("failed to count ship stubs: %w", err)
	}
	if err := db.Model(&PortModel{}).Where("needs_review = ?", true).Count(&report.Ports).Error; err != nil {
		return report, fmt.Errorf("failed to count port stubs: %w", err)
	}
	if err := db.Model(&RegionModel{}).Where("needs_review = ?", true).Count(&report.Regions).Error; err != nil {
		return report, fmt.Errorf("failed to count region stubs: %w", err)
	}

	activeSub := db.Model(&SailingStopModel{}).Select("port_id").Where("port_id IS NOT NULL")
	if err := db.Model(&PortModel{}).Where("id IN (?)", activeSub).Count(&report.ActivePorts).Error; err != nil {
		return report, fmt.Errorf("failed to count active ports: %w", err)
	}
	if err := db.Model(&PortModel{}).Where("id IN (?) AND latitude IS NOT NULL", activeSub).Count(&report.ActivePortsWithCoords).Error; err != nil {
		return report, fmt.Errorf("failed to count active ports with coordinates: %w", err)
	}
	if err := db.Model(&PortModel{}).Where("id NOT IN (?)", activeSub).Count(&report.OrphanPorts).Error; err != nil {
		return report, fmt.Errorf("failed to count orphan ports: %w", err)
	}
	if err := db.Model(&PortModel{}).Where("id NOT IN (?) AND latitude IS NOT NULL", activeSub).Count(&report.OrphanPortsWithCoords).Error; err != nil {
		return report, fmt.Errorf("failed to count orphan ports with coordinates: %w", err)
	}

	oldest, err := r.oldestStubs(ctx, 5)
	if err != nil {
		return report, err
	}
	report.Oldest = oldest
	return report, nil
}

// oldestStubs collects the n oldest needs_review rows across the four kinds
func (r *GormStubReportRepository) oldestStubs(ctx context.Context, n int) ([]common.StubEntry, error) {
	db := r.db.WithContext(ctx)
	var entries []common.StubEntry

	collect := func(model interface{}, kind string) error {
		type row struct {
			Name      string
			CreatedAt time.Time
		}
		var rows []row
		err := db.Model(model).Select("name", "created_at").
			Where("needs_review = ?", true).
			Order("created_at asc").Limit(n).Scan(&rows).Error
		if err != nil {
			return fmt.Errorf("failed to list %s stubs: %w", kind, err)
		}
		for _, rec := range rows {
			entries = append(entries, common.StubEntry{Type: kind, Name: rec.Name, CreatedAt: rec.CreatedAt})
		}
		return nil
	}

	if err := collect(&CruiseLineModel{}, "cruise_line"); err != nil {
		return nil, err
	}
	if err := collect(&ShipModel{}, "ship"); err != nil {
		return nil, err
	}
	if err := collect(&PortModel{}, "port"); err != nil {
		return nil, err
	}
	if err := collect(&RegionModel{}, "region"); err != nil {
		return nil, err
	}

	// Keep the n oldest across all kinds
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].CreatedAt.Before(entries[i].CreatedAt) {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// CoverageStats reports catalog-wide metadata coverage
func (r *GormStubReportRepository) CoverageStats(ctx context.Context, now time.Time) (common.CoverageStats, error) {
	var stats common.CoverageStats
	db := r.db.WithContext(ctx)

	count := func(dst *int64, model interface{}, query interface{}, args ...interface{}) error {
		tx := db.Model(model)
		if query != nil {
			tx = tx.Where(query, args...)
		}
		return tx.Count(dst).Error
	}

	type step struct {
		dst   *int64
		model interface{}
		query interface{}
		args  []interface{}
	}
	decksSub := db.Model(&ShipDeckModel{}).Select("ship_id")
	activeSub := db.Model(&SailingStopModel{}).Select("port_id").Where("port_id IS NOT NULL")
	steps := []step{
		{&stats.ShipsTotal, &ShipModel{}, nil, nil},
		{&stats.ShipsWithImage, &ShipModel{}, "image_url <> ''", nil},
		{&stats.ShipsWithDecks, &ShipModel{}, "id IN (?)", []interface{}{decksSub}},
		{&stats.ShipsNeedsReview, &ShipModel{}, "needs_review = ?", []interface{}{true}},
		{&stats.LinesTotal, &CruiseLineModel{}, nil, nil},
		{&stats.LinesWithLogo, &CruiseLineModel{}, "metadata LIKE ?", []interface{}{`%"logo_url":"http%`}},
		{&stats.LinesNeedsReview, &CruiseLineModel{}, "needs_review = ?", []interface{}{true}},
		{&stats.PortsTotal, &PortModel{}, nil, nil},
		{&stats.PortsActive, &PortModel{}, "id IN (?)", []interface{}{activeSub}},
		{&stats.PortsWithCoords, &PortModel{}, "latitude IS NOT NULL", nil},
		{&stats.PortsNeedsReview, &PortModel{}, "needs_review = ?", []interface{}{true}},
		{&stats.RegionsTotal, &RegionModel{}, nil, nil},
		{&stats.RegionsNeedsReview, &RegionModel{}, "needs_review = ?", []interface{}{true}},
		{&stats.SailingsTotal, &SailingModel{}, nil, nil},
		{&stats.SailingsFuture, &SailingModel{}, "end_date >= ?", []interface{}{now}},
	}
	for _, s := range steps {
		if err := count(s.dst, s.model, s.query, s.args...); err != nil {
			return stats, fmt.Errorf("failed to gather coverage stats: %w", err)
		}
	}
	return stats, nil
}
