package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// RunRepo implements campaign.RunRepository.
type RunRepo struct{ db *sql.DB }

func NewRunRepo(db *sql.DB) *RunRepo { return &RunRepo{db: db} }

func (r *RunRepo) Create(ctx context.Context, run *domain.CampaignRun) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phishing_campaign_runs
			(id, campaign_id, status, target_count, sent_count, error_count,
			 error_message, started_at, completed_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, run.ID, run.CampaignID, run.Status, run.TargetCount, run.SentCount,
		run.ErrorCount, run.ErrorMessage, run.StartedAt, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *RunRepo) Update(ctx context.Context, run *domain.CampaignRun) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE phishing_campaign_runs SET
			status = $2, target_count = $3, sent_count = $4, error_count = $5,
			error_message = $6, completed_at = $7
		WHERE id = $1
	`, run.ID, run.Status, run.TargetCount, run.SentCount, run.ErrorCount,
		run.ErrorMessage, run.CompletedAt)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return requireRow(res, fmt.Errorf("run %s: %w", run.ID, domain.ErrNotFound))
}

func (r *RunRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.CampaignRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, status, target_count, sent_count, error_count,
		       COALESCE(error_message,''), started_at, completed_at
		FROM phishing_campaign_runs
		WHERE campaign_id = $1
		ORDER BY started_at DESC
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []domain.CampaignRun
	for rows.Next() {
		var run domain.CampaignRun
		if err := rows.Scan(&run.ID, &run.CampaignID, &run.Status,
			&run.TargetCount, &run.SentCount, &run.ErrorCount,
			&run.ErrorMessage, &run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
