package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

// SettingsRepo stores the mail-transport configuration. One row is
// active at a time; saving a new active configuration deactivates the
// rest in the same transaction.
type SettingsRepo struct{ db *sql.DB }

func NewSettingsRepo(db *sql.DB) *SettingsRepo { return &SettingsRepo{db: db} }

const settingsColumns = `id, provider, COALESCE(host,''), port, COALESCE(username,''),
	COALESCE(password,''), from_email, COALESCE(from_name,''), COALESCE(reply_to,''),
	tls_enabled, ssl_enabled, max_rate_per_minute, is_active`

func scanSettings(row interface{ Scan(...interface{}) error }) (*domain.TransportSettings, error) {
	s := &domain.TransportSettings{}
	err := row.Scan(&s.ID, &s.Provider, &s.Host, &s.Port, &s.Username,
		&s.Password, &s.FromEmail, &s.FromName, &s.ReplyTo,
		&s.TLSEnabled, &s.SSLEnabled, &s.MaxRatePerMinute, &s.Active)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ActiveTransport returns the active configuration, or (nil, nil) when
// no transport is configured yet.
func (r *SettingsRepo) ActiveTransport(ctx context.Context) (*domain.TransportSettings, error) {
	s, err := scanSettings(r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM phishing_settings_smtp WHERE is_active LIMIT 1`))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("active transport: %w", err)
	}
	return s, nil
}

// Save upserts the configuration and, when it is active, deactivates
// every other row.
func (r *SettingsRepo) Save(ctx context.Context, s *domain.TransportSettings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings save: %w", err)
	}
	defer tx.Rollback()

	if s.Active {
		if _, err := tx.ExecContext(ctx,
			`UPDATE phishing_settings_smtp SET is_active = FALSE WHERE id <> $1`, s.ID); err != nil {
			return fmt.Errorf("deactivate transports: %w", err)
		}
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO phishing_settings_smtp
			(id, provider, host, port, username, password, from_email,
			 from_name, reply_to, tls_enabled, ssl_enabled, max_rate_per_minute, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (id) DO UPDATE SET
			provider = EXCLUDED.provider, host = EXCLUDED.host,
			port = EXCLUDED.port, username = EXCLUDED.username,
			password = EXCLUDED.password, from_email = EXCLUDED.from_email,
			from_name = EXCLUDED.from_name, reply_to = EXCLUDED.reply_to,
			tls_enabled = EXCLUDED.tls_enabled, ssl_enabled = EXCLUDED.ssl_enabled,
			max_rate_per_minute = EXCLUDED.max_rate_per_minute,
			is_active = EXCLUDED.is_active
	`, s.ID, s.Provider, nullIfEmpty(s.Host), s.Port, nullIfEmpty(s.Username),
		nullIfEmpty(s.Password), s.FromEmail, nullIfEmpty(s.FromName),
		nullIfEmpty(s.ReplyTo), s.TLSEnabled, s.SSLEnabled, s.MaxRatePerMinute, s.Active)
	if err != nil {
		return fmt.Errorf("save transport settings: %w", err)
	}
	return tx.Commit()
}
