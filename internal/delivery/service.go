package delivery

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/pkg/logger"
	"github.com/praesidio-sec/phishsim/internal/ratelimit"
	"github.com/praesidio-sec/phishsim/internal/template"
)

// maxRetries is the per-recipient send attempt budget. Once exhausted
// the recipient is marked FAILED and never retried.
const maxRetries = 3

// rateLimitBackoff is how long a sender waits before its single retry
// after the transport window fills up.
const rateLimitBackoff = 2 * time.Second

// SettingsSource resolves the active transport configuration. Returns
// (nil, nil) when no transport is configured.
type SettingsSource interface {
	ActiveTransport(ctx context.Context) (*domain.TransportSettings, error)
}

// RecipientStore persists delivery outcomes.
type RecipientStore interface {
	// MarkSent sets status SENT and stamps the send time.
	MarkSent(ctx context.Context, recipientID string, sentAt time.Time) error
	// RecordFailure increments the retry counter, stores the message,
	// and returns the post-increment count. Status stays PENDING so a
	// later pass can pick the recipient up again.
	RecordFailure(ctx context.Context, recipientID, message string) (int, error)
	// MarkFailed sets the terminal FAILED status.
	MarkFailed(ctx context.Context, recipientID, message string) error
}

// EventWriter appends delivery events.
type EventWriter interface {
	Append(ctx context.Context, e *domain.Event) error
}

// TransportFactory builds a transport from settings. Injected so tests
// can substitute a fake without a real relay.
type TransportFactory func(s *domain.TransportSettings) (Transport, error)

// DefaultTransportFactory selects SMTP or SES per the settings provider.
func DefaultTransportFactory(s *domain.TransportSettings) (Transport, error) {
	switch s.Provider {
	case domain.ProviderSES:
		return NewSESTransport(s.Username, s.Password, s.Host)
	case domain.ProviderSMTP, "":
		return NewSMTPTransport(s), nil
	default:
		return nil, fmt.Errorf("unknown transport provider %q", s.Provider)
	}
}

// Service sends one rendered email per recipient, bounded by the
// per-transport rate limit, and records the outcome.
type Service struct {
	settings   SettingsSource
	recipients RecipientStore
	events     EventWriter
	renderer   *template.Engine
	limiter    *ratelimit.FixedWindow
	factory    TransportFactory
	baseURL    string
	branding   map[string]string
	sleep      func(time.Duration)
}

// NewService creates a delivery service. baseURL is the public root of
// the tracking surface; branding fields become template variables.
func NewService(settings SettingsSource, recipients RecipientStore, events EventWriter,
	renderer *template.Engine, limiter *ratelimit.FixedWindow, baseURL string, branding map[string]string) *Service {
	return &Service{
		settings:   settings,
		recipients: recipients,
		events:     events,
		renderer:   renderer,
		limiter:    limiter,
		factory:    DefaultTransportFactory,
		baseURL:    baseURL,
		branding:   branding,
		sleep:      time.Sleep,
	}
}

// SetTransportFactory overrides transport construction (tests).
func (s *Service) SetTransportFactory(f TransportFactory) { s.factory = f }

// SetSleep overrides the rate-limit backoff sleep (tests).
func (s *Service) SetSleep(fn func(time.Duration)) { s.sleep = fn }

// SendEmail renders and sends the template to one recipient. The
// returned error describes the failure already recorded against the
// recipient; callers count it and continue with the rest of the run.
func (s *Service) SendEmail(ctx context.Context, rcpt *domain.Recipient, tpl *domain.Template) error {
	settings, err := s.settings.ActiveTransport(ctx)
	if err != nil {
		return fmt.Errorf("resolve transport: %w", err)
	}
	if settings == nil {
		return fmt.Errorf("%w: no active mail transport configured", domain.ErrBusinessRule)
	}

	transport, err := s.factory(settings)
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}

	// A zero or unset rate means the transport is unthrottled.
	if settings.MaxRatePerMinute > 0 && !s.limiter.TryAcquire(transport.Name(), settings.MaxRatePerMinute) {
		s.sleep(rateLimitBackoff)
		if !s.limiter.TryAcquire(transport.Name(), settings.MaxRatePerMinute) {
			return s.recordFailure(ctx, rcpt, fmt.Errorf("%w: transport window full", domain.ErrRateLimited), false)
		}
	}

	msg, err := s.render(rcpt, tpl, settings)
	if err != nil {
		// Rendering failures never resolve themselves; skip the budget.
		return s.recordFailure(ctx, rcpt, err, true)
	}

	if err := transport.Send(ctx, msg); err != nil {
		var te *TransportError
		permanent := errors.As(err, &te) && te.Permanent
		return s.recordFailure(ctx, rcpt, fmt.Errorf("%w: %v", domain.ErrTransport, err), permanent)
	}

	now := time.Now().UTC()
	if err := s.recipients.MarkSent(ctx, rcpt.ID, now); err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}
	if err := s.events.Append(ctx, &domain.Event{
		ID:          uuid.New().String(),
		CampaignID:  rcpt.CampaignID,
		RunID:       rcpt.RunID,
		RecipientID: rcpt.ID,
		Token:       rcpt.Token,
		Type:        domain.EventDelivered,
		CreatedAt:   now,
	}); err != nil {
		log.Printf("[Delivery] delivered event for %s not recorded: %v", rcpt.ID, err)
	}
	log.Printf("[Delivery] sent to %s (recipient %s)", logger.RedactEmail(rcpt.Email), rcpt.ID)
	return nil
}

// SendProbe sends a plain test message to verify the active transport.
func (s *Service) SendProbe(ctx context.Context, to string) error {
	settings, err := s.settings.ActiveTransport(ctx)
	if err != nil {
		return fmt.Errorf("resolve transport: %w", err)
	}
	if settings == nil {
		return fmt.Errorf("%w: no active mail transport configured", domain.ErrBusinessRule)
	}
	transport, err := s.factory(settings)
	if err != nil {
		return fmt.Errorf("build transport: %w", err)
	}
	return transport.Send(ctx, &Message{
		To:       to,
		From:     settings.FromEmail,
		FromName: settings.FromName,
		ReplyTo:  settings.ReplyTo,
		Subject:  "Transport configuration test",
		HTMLBody: "<p>This is a test message confirming your mail transport settings.</p>",
	})
}

func (s *Service) render(rcpt *domain.Recipient, tpl *domain.Template, settings *domain.TransportSettings) (*Message, error) {
	vars := template.RecipientVars(rcpt, s.branding)

	// The cache key carries the template's revision so an edited
	// subject is recompiled instead of served stale.
	subjectKey := fmt.Sprintf("tpl:%s:subject:%d", tpl.ID, tpl.UpdatedAt.UnixNano())
	subject, err := s.renderer.Render(subjectKey, tpl.Subject, vars)
	if err != nil {
		return nil, fmt.Errorf("render subject: %w", err)
	}

	body := template.RewriteLinks(tpl.HTMLBody, s.baseURL, rcpt.Token)
	body, err = s.renderer.Render("", body, vars)
	if err != nil {
		return nil, fmt.Errorf("render body: %w", err)
	}
	body = template.InjectPixel(body, template.PixelURL(s.baseURL, rcpt.Token))

	return &Message{
		To:       rcpt.Email,
		ToName:   rcpt.FirstName + " " + rcpt.LastName,
		From:     settings.FromEmail,
		FromName: settings.FromName,
		ReplyTo:  settings.ReplyTo,
		Subject:  subject,
		HTMLBody: body,
	}, nil
}

// recordFailure books one failed attempt. The recipient goes terminal
// when the attempt was permanent or the retry budget is spent.
func (s *Service) recordFailure(ctx context.Context, rcpt *domain.Recipient, cause error, permanent bool) error {
	retries, err := s.recipients.RecordFailure(ctx, rcpt.ID, cause.Error())
	if err != nil {
		return fmt.Errorf("record failure: %v (original: %w)", err, cause)
	}
	if permanent || retries >= maxRetries {
		if err := s.recipients.MarkFailed(ctx, rcpt.ID, cause.Error()); err != nil {
			return fmt.Errorf("mark failed: %v (original: %w)", err, cause)
		}
	}
	return cause
}
