package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

const recipientColumns = `id, campaign_id, run_id, user_id, email,
	COALESCE(first_name,''), COALESCE(last_name,''), COALESCE(department,''),
	token, status, retry_count, COALESCE(error_message,''), sent_at, created_at`

// RecipientRepo persists recipients and their delivery outcomes.
type RecipientRepo struct{ db *sql.DB }

func NewRecipientRepo(db *sql.DB) *RecipientRepo { return &RecipientRepo{db: db} }

func scanRecipient(row interface{ Scan(...interface{}) error }) (*domain.Recipient, error) {
	r := &domain.Recipient{}
	err := row.Scan(&r.ID, &r.CampaignID, &r.RunID, &r.UserID, &r.Email,
		&r.FirstName, &r.LastName, &r.Department,
		&r.Token, &r.Status, &r.RetryCount, &r.ErrorMessage, &r.SentAt, &r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (s *RecipientRepo) Create(ctx context.Context, r *domain.Recipient) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO phishing_recipients
			(id, campaign_id, run_id, user_id, email, first_name, last_name,
			 department, token, status, retry_count, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, r.ID, r.CampaignID, r.RunID, r.UserID, r.Email, r.FirstName, r.LastName,
		r.Department, r.Token, r.Status, r.RetryCount, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("create recipient: %w", err)
	}
	return nil
}

// ByToken resolves a tracking token. Returns (nil, nil) for unknown
// tokens so the tracking surface can degrade without an error branch.
func (s *RecipientRepo) ByToken(ctx context.Context, token string) (*domain.Recipient, error) {
	r, err := scanRecipient(s.db.QueryRowContext(ctx,
		`SELECT `+recipientColumns+` FROM phishing_recipients WHERE token = $1`, token))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("recipient by token: %w", err)
	}
	return r, nil
}

func (s *RecipientRepo) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM phishing_recipients WHERE token = $1)`, token).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("token exists: %w", err)
	}
	return exists, nil
}

func (s *RecipientRepo) TargetedUserIDs(ctx context.Context, campaignID string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM phishing_recipients WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("targeted user ids: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

func (s *RecipientRepo) MarkSent(ctx context.Context, recipientID string, sentAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE phishing_recipients SET status = $2, sent_at = $3 WHERE id = $1`,
		recipientID, domain.RecipientSent, sentAt)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	return requireRow(res, fmt.Errorf("recipient %s: %w", recipientID, domain.ErrNotFound))
}

// RecordFailure bumps the retry counter atomically and returns the new
// count. Status stays PENDING so the recipient remains retryable.
func (s *RecipientRepo) RecordFailure(ctx context.Context, recipientID, message string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE phishing_recipients
		SET retry_count = retry_count + 1, error_message = $2
		WHERE id = $1
		RETURNING retry_count
	`, recipientID, message).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("record failure: %w", err)
	}
	return count, nil
}

func (s *RecipientRepo) MarkFailed(ctx context.Context, recipientID, message string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE phishing_recipients SET status = $2, error_message = $3 WHERE id = $1`,
		recipientID, domain.RecipientFailed, message)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireRow(res, fmt.Errorf("recipient %s: %w", recipientID, domain.ErrNotFound))
}

// ListByCampaign returns every recipient ordered by creation, the order
// anonymized participant numbering relies on.
func (s *RecipientRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Recipient, error) {
	return s.list(ctx,
		`SELECT `+recipientColumns+` FROM phishing_recipients WHERE campaign_id = $1 ORDER BY created_at, id`,
		campaignID)
}

// SentOn returns recipients whose send timestamp falls in [from, to).
func (s *RecipientRepo) SentOn(ctx context.Context, campaignID string, from, to time.Time) ([]domain.Recipient, error) {
	return s.list(ctx,
		`SELECT `+recipientColumns+` FROM phishing_recipients
		 WHERE campaign_id = $1 AND sent_at >= $2 AND sent_at < $3`,
		campaignID, from, to)
}

func (s *RecipientRepo) list(ctx context.Context, query string, args ...interface{}) ([]domain.Recipient, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close()

	var out []domain.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recipient: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// DeleteBefore removes recipients created before the cutoff. Events
// must already be gone; retention deletes them first.
func (s *RecipientRepo) DeleteBefore(ctx context.Context, campaignID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM phishing_recipients WHERE campaign_id = $1 AND created_at < $2`,
		campaignID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete recipients: %w", err)
	}
	return res.RowsAffected()
}
