package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// TemplateRepo persists email templates. Get follows the (nil, nil)
// convention for unknown ids so callers decide what missing means.
type TemplateRepo struct{ db *sql.DB }

func NewTemplateRepo(db *sql.DB) *TemplateRepo { return &TemplateRepo{db: db} }

const templateColumns = `id, name, subject, html_body, COALESCE(landing_page,''),
	link_ids, created_at, updated_at`

func scanTemplate(row interface{ Scan(...interface{}) error }) (*domain.Template, error) {
	t := &domain.Template{}
	var linkIDs pq.StringArray
	err := row.Scan(&t.ID, &t.Name, &t.Subject, &t.HTMLBody, &t.LandingPage,
		&linkIDs, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.LinkIDs = linkIDs
	return t, nil
}

func (s *TemplateRepo) Get(ctx context.Context, id string) (*domain.Template, error) {
	t, err := scanTemplate(s.db.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM phishing_templates WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get template: %w", err)
	}
	return t, nil
}

func (s *TemplateRepo) List(ctx context.Context) ([]domain.Template, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+templateColumns+` FROM phishing_templates ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var out []domain.Template
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (s *TemplateRepo) Create(ctx context.Context, t *domain.Template) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phishing_templates
			(id, name, subject, html_body, landing_page, link_ids, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
	`, t.ID, t.Name, t.Subject, t.HTMLBody, nullIfEmpty(t.LandingPage), pq.Array(t.LinkIDs))
	if err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

func (s *TemplateRepo) Update(ctx context.Context, t *domain.Template) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE phishing_templates SET
			name = $2, subject = $3, html_body = $4, landing_page = $5,
			link_ids = $6, updated_at = NOW()
		WHERE id = $1
	`, t.ID, t.Name, t.Subject, t.HTMLBody, nullIfEmpty(t.LandingPage), pq.Array(t.LinkIDs))
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return requireRow(res, fmt.Errorf("template %s: %w", t.ID, domain.ErrNotFound))
}

func (s *TemplateRepo) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM phishing_templates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return requireRow(res, fmt.Errorf("template %s: %w", id, domain.ErrNotFound))
}
