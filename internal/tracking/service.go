// Package tracking ingests recipient interactions from the public,
// unauthenticated tracking surface. Everything here fails open: the
// caller can never learn from a response whether a token was valid.
package tracking

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/domain"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// submissionMarker is the only metadata ever stored for a form
// submission. Submitted field values are discarded before they reach
// this package.
const submissionMarker = "form_submission_recorded"

// RecipientSource resolves tokens to recipients. Returns (nil, nil) for
// unknown tokens.
type RecipientSource interface {
	ByToken(ctx context.Context, token string) (*domain.Recipient, error)
}

// CampaignSource resolves the recipient's campaign, needed to locate
// the landing page template.
type CampaignSource interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
}

// TemplateSource resolves templates. Returns (nil, nil) for unknown ids.
type TemplateSource interface {
	Get(ctx context.Context, id string) (*domain.Template, error)
}

// EventStore appends events. Insert returns false without error when
// the event was suppressed by the per-token uniqueness constraint.
type EventStore interface {
	Insert(ctx context.Context, e *domain.Event) (bool, error)
}

// Limiter throttles tracking hits per token before any lookup happens.
type Limiter interface {
	Allow(ctx context.Context, token string) bool
}

// Service records tracking events.
type Service struct {
	recipients RecipientSource
	campaigns  CampaignSource
	templates  TemplateSource
	events     EventStore
	limiter    Limiter
}

func NewService(recipients RecipientSource, campaigns CampaignSource, templates TemplateSource, events EventStore, limiter Limiter) *Service {
	return &Service{
		recipients: recipients,
		campaigns:  campaigns,
		templates:  templates,
		events:     events,
		limiter:    limiter,
	}
}

// Hit carries the request context for one tracking interaction.
type Hit struct {
	Token     string
	LinkID    string
	IP        string
	UserAgent string
}

// RecordOpen records an OPENED event. Repeat pixel fetches for the same
// token are suppressed by the store. The pixel is served regardless of
// outcome, so this never returns an error.
func (s *Service) RecordOpen(ctx context.Context, hit Hit) {
	s.record(ctx, hit, domain.EventOpened, "")
}

// RecordClick records a CLICKED event and returns the landing page HTML
// for the recipient's campaign. Every click is recorded, including
// repeats. Invalid or throttled tokens get a generic unavailable page.
func (s *Service) RecordClick(ctx context.Context, hit Hit) string {
	rcpt := s.lookup(ctx, hit)
	if rcpt == nil {
		return pageNotAvailable
	}
	s.append(ctx, rcpt, hit, domain.EventClicked, "")
	return s.landingPage(ctx, rcpt)
}

// RecordSubmission records a DATA_SUBMITTED event. The handler has
// already discarded the request body; only the fixed marker is stored.
// The reveal page is served whether or not the token was valid.
func (s *Service) RecordSubmission(ctx context.Context, hit Hit) string {
	s.record(ctx, hit, domain.EventDataSubmitted, submissionMarker)
	return pageSimulationReveal
}

// RecordReport records a REPORTED event and serves the thank-you page,
// valid token or not.
func (s *Service) RecordReport(ctx context.Context, hit Hit) string {
	s.record(ctx, hit, domain.EventReported, "")
	return pageReportThanks
}

func (s *Service) record(ctx context.Context, hit Hit, t domain.EventType, metadata string) {
	rcpt := s.lookup(ctx, hit)
	if rcpt == nil {
		return
	}
	s.append(ctx, rcpt, hit, t, metadata)
}

// lookup applies the rate limit and resolves the token. A nil result
// means the hit must be ignored; the reason is deliberately not
// distinguishable to the caller.
func (s *Service) lookup(ctx context.Context, hit Hit) *domain.Recipient {
	if hit.Token == "" {
		return nil
	}
	if s.limiter != nil && !s.limiter.Allow(ctx, hit.Token) {
		log.Printf("[Tracking] rate limited token hit from %s", hit.IP)
		return nil
	}
	rcpt, err := s.recipients.ByToken(ctx, hit.Token)
	if err != nil {
		log.Printf("[Tracking] token lookup failed: %v", err)
		return nil
	}
	return rcpt
}

func (s *Service) append(ctx context.Context, rcpt *domain.Recipient, hit Hit, t domain.EventType, metadata string) {
	e := &domain.Event{
		ID:          uuid.New().String(),
		CampaignID:  rcpt.CampaignID,
		RunID:       rcpt.RunID,
		RecipientID: rcpt.ID,
		Token:       rcpt.Token,
		Type:        t,
		LinkID:      hit.LinkID,
		IP:          hit.IP,
		UserAgent:   hit.UserAgent,
		Metadata:    metadata,
		CreatedAt:   nowUTC(),
	}
	created, err := s.events.Insert(ctx, e)
	if err != nil {
		log.Printf("[Tracking] append %s failed: %v", t, err)
		return
	}
	if created {
		log.Printf("[Tracking] %s campaign=%s recipient=%s", t, rcpt.CampaignID, rcpt.ID)
	}
}

// landingPage resolves the campaign template's landing page, falling
// back to the reveal page when none is configured or resolution fails.
func (s *Service) landingPage(ctx context.Context, rcpt *domain.Recipient) string {
	c, err := s.campaigns.Get(ctx, rcpt.CampaignID)
	if err != nil || c == nil || c.TemplateID == nil {
		return pageSimulationReveal
	}
	tpl, err := s.templates.Get(ctx, *c.TemplateID)
	if err != nil || tpl == nil || tpl.LandingPage == "" {
		return pageSimulationReveal
	}
	return tpl.LandingPage
}
