package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// ResultRepo persists daily rollups. The conflict target matches the
// coalesced unique index so the nil-department overall bucket upserts
// like any other row.
type ResultRepo struct{ db *sql.DB }

func NewResultRepo(db *sql.DB) *ResultRepo { return &ResultRepo{db: db} }

func (s *ResultRepo) Upsert(ctx context.Context, r *domain.DailyResult) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phishing_daily_results
			(id, campaign_id, day, department, sent_count, delivered_count,
			 opened_count, clicked_count, reported_count, data_submitted_count,
			 click_rate, report_rate, risk_score)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (campaign_id, day, COALESCE(department, ''))
		DO UPDATE SET
			sent_count = EXCLUDED.sent_count,
			delivered_count = EXCLUDED.delivered_count,
			opened_count = EXCLUDED.opened_count,
			clicked_count = EXCLUDED.clicked_count,
			reported_count = EXCLUDED.reported_count,
			data_submitted_count = EXCLUDED.data_submitted_count,
			click_rate = EXCLUDED.click_rate,
			report_rate = EXCLUDED.report_rate,
			risk_score = EXCLUDED.risk_score
	`, r.ID, r.CampaignID, r.Day, r.Department, r.SentCount, r.DeliveredCount,
		r.OpenedCount, r.ClickedCount, r.ReportedCount, r.DataSubmittedCount,
		r.ClickRate, r.ReportRate, r.RiskScore)
	if err != nil {
		return fmt.Errorf("upsert daily result: %w", err)
	}
	return nil
}

// List returns rollups for a campaign, optionally bounded to [from, to].
func (s *ResultRepo) List(ctx context.Context, campaignID string, from, to *time.Time) ([]domain.DailyResult, error) {
	q := `SELECT id, campaign_id, day, department, sent_count, delivered_count,
	             opened_count, clicked_count, reported_count, data_submitted_count,
	             click_rate, report_rate, risk_score
	      FROM phishing_daily_results WHERE campaign_id = $1`
	args := []interface{}{campaignID}
	idx := 2
	if from != nil {
		q += fmt.Sprintf(" AND day >= $%d", idx)
		args = append(args, *from)
		idx++
	}
	if to != nil {
		q += fmt.Sprintf(" AND day <= $%d", idx)
		args = append(args, *to)
		idx++
	}
	q += " ORDER BY day"

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list daily results: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyResult
	for rows.Next() {
		var r domain.DailyResult
		if err := rows.Scan(&r.ID, &r.CampaignID, &r.Day, &r.Department,
			&r.SentCount, &r.DeliveredCount, &r.OpenedCount, &r.ClickedCount,
			&r.ReportedCount, &r.DataSubmittedCount,
			&r.ClickRate, &r.ReportRate, &r.RiskScore); err != nil {
			return nil, fmt.Errorf("scan daily result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
