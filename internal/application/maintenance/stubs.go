package maintenance

import (
	"context"

	"github.com/atlasvoyages/cruisesync/internal/application/common"
	"github.com/atlasvoyages/cruisesync/internal/domain/shared"
)

// StubReportService surfaces auto-created reference rows that still
// need editorial review, and catalog-wide metadata coverage.
type StubReportService struct {
	repo  common.StubReportRepository
	clock shared.Clock
}

// NewStubReportService creates the stub-report service
func NewStubReportService(repo common.StubReportRepository, clock shared.Clock) *StubReportService {
	return &StubReportService{repo: repo, clock: clock}
}

// Report aggregates needs_review counts and port coordinate coverage
func (s *StubReportService) Report(ctx context.Context) (common.StubReport, error) {
	report, err := s.repo.StubReport(ctx)
	if err != nil {
		return report, err
	}
	common.LoggerFromContext(ctx).Log("info", "stub report generated", map[string]interface{}{
		"cruiseLines": report.CruiseLines,
		"ships":       report.Ships,
		"ports":       report.Ports,
		"regions":     report.Regions,
	})
	return report, nil
}

// Coverage reports catalog-wide metadata coverage
func (s *StubReportService) Coverage(ctx context.Context) (common.CoverageStats, error) {
	return s.repo.CoverageStats(ctx, s.clock.Now())
}
