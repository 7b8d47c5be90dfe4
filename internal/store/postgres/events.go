package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/praesidio-sec/phishsim/internal/aggregate"
	"github.com/praesidio-sec/phishsim/internal/domain"
)

// EventRepo appends and reads tracking events. The partial unique index
// on (token, event_type) makes idempotent inserts atomic; this repo
// never does a read-then-write.
type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

// Insert appends one event. For OPENED, DATA_SUBMITTED, and REPORTED
// the partial unique index suppresses duplicates; Insert then returns
// false with no error.
func (s *EventRepo) Insert(ctx context.Context, e *domain.Event) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO phishing_events
			(id, campaign_id, run_id, recipient_id, token, event_type,
			 link_id, ip, user_agent, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT DO NOTHING
	`, e.ID, e.CampaignID, e.RunID, e.RecipientID, e.Token, e.Type,
		nullIfEmpty(e.LinkID), e.IP, e.UserAgent, nullIfEmpty(e.Metadata), e.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Append satisfies delivery.EventWriter. Suppressed duplicates are not
// an error for the writer either.
func (s *EventRepo) Append(ctx context.Context, e *domain.Event) error {
	_, err := s.Insert(ctx, e)
	return err
}

func (s *EventRepo) ListByCampaign(ctx context.Context, campaignID string) ([]domain.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, campaign_id, run_id, recipient_id, token, event_type,
		       COALESCE(link_id,''), COALESCE(ip,''), COALESCE(user_agent,''),
		       COALESCE(metadata,''), created_at
		FROM phishing_events
		WHERE campaign_id = $1
		ORDER BY created_at
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.CampaignID, &e.RunID, &e.RecipientID,
			&e.Token, &e.Type, &e.LinkID, &e.IP, &e.UserAgent,
			&e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Between returns events created in [from, to) joined with the
// recipient's department, the shape aggregation consumes.
func (s *EventRepo) Between(ctx context.Context, campaignID string, from, to time.Time) ([]aggregate.DayEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.event_type, COALESCE(r.department,'')
		FROM phishing_events e
		JOIN phishing_recipients r ON r.id = e.recipient_id
		WHERE e.campaign_id = $1 AND e.created_at >= $2 AND e.created_at < $3
	`, campaignID, from, to)
	if err != nil {
		return nil, fmt.Errorf("events between: %w", err)
	}
	defer rows.Close()

	var out []aggregate.DayEvent
	for rows.Next() {
		var ev aggregate.DayEvent
		if err := rows.Scan(&ev.Type, &ev.Department); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// DeleteBefore removes events created before the cutoff.
func (s *EventRepo) DeleteBefore(ctx context.Context, campaignID string, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM phishing_events WHERE campaign_id = $1 AND created_at < $2`,
		campaignID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete events: %w", err)
	}
	return res.RowsAffected()
}
