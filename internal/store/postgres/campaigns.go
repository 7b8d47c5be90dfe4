package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/praesidio-sec/phishsim/internal/campaign"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

const campaignColumns = `id, name, COALESCE(description,''), target_departments, target_roles,
	include_user_ids, exclude_user_ids, sampling_percent, frequency,
	start_date, end_date, COALESCE(window_start,''), COALESCE(window_end,''),
	timezone, template_id, privacy_mode, retention_days, status,
	COALESCE(created_by,''), created_at, updated_at`

// CampaignRepo implements campaign.Repository against PostgreSQL.
type CampaignRepo struct{ db *sql.DB }

func NewCampaignRepo(db *sql.DB) *CampaignRepo { return &CampaignRepo{db: db} }

func scanCampaign(row interface{ Scan(...interface{}) error }) (*domain.Campaign, error) {
	c := &domain.Campaign{}
	var departments, roles, include, exclude pq.StringArray
	err := row.Scan(
		&c.ID, &c.Name, &c.Description, &departments, &roles,
		&include, &exclude, &c.SamplingPercent, &c.Frequency,
		&c.StartDate, &c.EndDate, &c.WindowStart, &c.WindowEnd,
		&c.Timezone, &c.TemplateID, &c.PrivacyMode, &c.RetentionDays, &c.Status,
		&c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.TargetDepartments = departments
	c.TargetRoles = roles
	c.IncludeUserIDs = include
	c.ExcludeUserIDs = exclude
	return c, nil
}

func (r *CampaignRepo) Get(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.db.QueryRowContext(ctx,
		`SELECT `+campaignColumns+` FROM phishing_campaigns WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, campaign.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

func (r *CampaignRepo) List(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}

	where := " WHERE 1=1"
	args := []interface{}{}
	idx := 1
	if f.Status != "" {
		where += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, f.Status)
		idx++
	}
	if f.Search != "" {
		where += fmt.Sprintf(" AND name ILIKE $%d", idx)
		args = append(args, "%"+f.Search+"%")
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM phishing_campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count campaigns: %w", err)
	}

	q := `SELECT ` + campaignColumns + ` FROM phishing_campaigns` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, total, rows.Err()
}

func (r *CampaignRepo) ListByStatus(ctx context.Context, status domain.CampaignStatus) ([]domain.Campaign, error) {
	return r.listWhere(ctx, `status = $1`, status)
}

// All returns every campaign. Used by the retention pass.
func (r *CampaignRepo) All(ctx context.Context) ([]domain.Campaign, error) {
	return r.listWhere(ctx, `1=1`)
}

// ActiveCampaigns returns campaigns still producing tracking data:
// anything RUNNING or SCHEDULED, plus campaigns completed within the
// last week so late opens still roll up.
func (r *CampaignRepo) ActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	return r.listWhere(ctx,
		`status IN ('RUNNING','SCHEDULED') OR (status = 'COMPLETED' AND updated_at > NOW() - INTERVAL '7 days')`)
}

func (r *CampaignRepo) listWhere(ctx context.Context, where string, args ...interface{}) ([]domain.Campaign, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+campaignColumns+` FROM phishing_campaigns WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	var out []domain.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *CampaignRepo) Create(ctx context.Context, c *domain.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO phishing_campaigns
			(id, name, description, target_departments, target_roles,
			 include_user_ids, exclude_user_ids, sampling_percent, frequency,
			 start_date, end_date, window_start, window_end, timezone,
			 template_id, privacy_mode, retention_days, status, created_by,
			 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,NOW(),NOW())
	`, c.ID, c.Name, c.Description,
		pq.Array(c.TargetDepartments), pq.Array(c.TargetRoles),
		pq.Array(c.IncludeUserIDs), pq.Array(c.ExcludeUserIDs),
		c.SamplingPercent, c.Frequency, c.StartDate, c.EndDate,
		nullIfEmpty(c.WindowStart), nullIfEmpty(c.WindowEnd), c.Timezone,
		c.TemplateID, c.PrivacyMode, c.RetentionDays, c.Status, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

func (r *CampaignRepo) Update(ctx context.Context, c *domain.Campaign) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE phishing_campaigns SET
			name = $2, description = $3, target_departments = $4,
			target_roles = $5, include_user_ids = $6, exclude_user_ids = $7,
			sampling_percent = $8, frequency = $9, start_date = $10,
			end_date = $11, window_start = $12, window_end = $13,
			timezone = $14, template_id = $15, privacy_mode = $16,
			retention_days = $17, updated_at = NOW()
		WHERE id = $1
	`, c.ID, c.Name, c.Description,
		pq.Array(c.TargetDepartments), pq.Array(c.TargetRoles),
		pq.Array(c.IncludeUserIDs), pq.Array(c.ExcludeUserIDs),
		c.SamplingPercent, c.Frequency, c.StartDate, c.EndDate,
		nullIfEmpty(c.WindowStart), nullIfEmpty(c.WindowEnd), c.Timezone,
		c.TemplateID, c.PrivacyMode, c.RetentionDays)
	if err != nil {
		return fmt.Errorf("update campaign: %w", err)
	}
	return requireRow(res, campaign.ErrNotFound)
}

func (r *CampaignRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM phishing_campaigns WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete campaign: %w", err)
	}
	return requireRow(res, campaign.ErrNotFound)
}

func (r *CampaignRepo) UpdateStatus(ctx context.Context, id string, status domain.CampaignStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE phishing_campaigns SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, status)
	if err != nil {
		return fmt.Errorf("update campaign status: %w", err)
	}
	return requireRow(res, campaign.ErrNotFound)
}

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func requireRow(res sql.Result, missing error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return missing
	}
	return nil
}
