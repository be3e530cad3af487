package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/mvelabs/boardroom/internal/domain"
)

// Compile-time check: Store implements domain.UsageCounter.
var _ domain.UsageCounter = (*Store)(nil)

// Count reports a tenant's live usage of a plan feature from the
// projection tables. Features without a persisted footprint (team
// members, storage, API calls) count as zero here; those are tracked by
// other systems.
func (s *Store) Count(ctx context.Context, tenantID string, feature domain.Feature) (int, error) {
	var query string
	args := []any{tenantID}

	switch feature {
	case domain.FeatureBillboards:
		query = `SELECT COUNT(*) FROM billboards WHERE tenant_id = ? AND status != 'retired'`
	case domain.FeatureCampaigns:
		query = `SELECT COUNT(*) FROM bookings WHERE tenant_id = ? AND status = 'confirmed'`
	case domain.FeatureBookingsPerMonth:
		now := s.clock.Now().UTC()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		// requested_at is stored as RFC 3339 UTC, so string comparison
		// orders correctly.
		query = `SELECT COUNT(*) FROM bookings
			WHERE tenant_id = ? AND json_extract(state, '$.requested_at') >= ?`
		args = append(args, monthStart.Format(timeFormat))
	default:
		return 0, nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting %s for tenant %s: %w", feature, tenantID, err)
	}
	return count, nil
}
