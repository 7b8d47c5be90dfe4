package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/campaign"
	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/pkg/httputil"
	"github.com/praesidio-sec/phishsim/internal/report"
)

// CampaignService is the orchestrator surface the API exposes.
type CampaignService interface {
	Get(ctx context.Context, id string) (*domain.Campaign, error)
	List(ctx context.Context, f campaign.ListFilter) ([]domain.Campaign, int, error)
	Runs(ctx context.Context, campaignID string) ([]domain.CampaignRun, error)
	Create(ctx context.Context, input campaign.CreateInput, actor campaign.Actor) (*domain.Campaign, error)
	Update(ctx context.Context, id string, input campaign.CreateInput, actor campaign.Actor) (*domain.Campaign, error)
	Delete(ctx context.Context, id string, actor campaign.Actor) error
	Schedule(ctx context.Context, id string, actor campaign.Actor) error
	Pause(ctx context.Context, id string, actor campaign.Actor) error
	Resume(ctx context.Context, id string, actor campaign.Actor) error
	Stop(ctx context.Context, id string, actor campaign.Actor) error
	RunNow(ctx context.Context, id string, population []domain.User, actor campaign.Actor) (*domain.CampaignRun, error)
}

// ReportService serves the read models.
type ReportService interface {
	Summary(ctx context.Context, campaignID string) (*report.Summary, error)
	Daily(ctx context.Context, campaignID string, from, to *time.Time) ([]domain.DailyResult, error)
	Departments(ctx context.Context, campaignID string) ([]report.DepartmentResult, error)
	Users(ctx context.Context, campaignID string) ([]report.UserResult, error)
}

// TemplateStore is template CRUD persistence. Get returns (nil, nil)
// for unknown ids.
type TemplateStore interface {
	Get(ctx context.Context, id string) (*domain.Template, error)
	List(ctx context.Context) ([]domain.Template, error)
	Create(ctx context.Context, t *domain.Template) error
	Update(ctx context.Context, t *domain.Template) error
	Delete(ctx context.Context, id string) error
}

// SettingsStore is transport settings persistence.
type SettingsStore interface {
	ActiveTransport(ctx context.Context) (*domain.TransportSettings, error)
	Save(ctx context.Context, s *domain.TransportSettings) error
}

// Prober sends a test message through the active transport.
type Prober interface {
	SendProbe(ctx context.Context, to string) error
}

// AuditReader pages through the audit log.
type AuditReader interface {
	List(ctx context.Context, limit, offset int) ([]domain.AuditEntry, int, error)
}

// Handlers bundles every admin endpoint's dependencies.
type Handlers struct {
	campaigns CampaignService
	reports   ReportService
	templates TemplateStore
	settings  SettingsStore
	prober    Prober
	audit     AuditReader
	auditLog  *audit.Logger
}

func NewHandlers(campaigns CampaignService, reports ReportService, templates TemplateStore,
	settings SettingsStore, prober Prober, auditReader AuditReader, auditLog *audit.Logger) *Handlers {
	return &Handlers{
		campaigns: campaigns,
		reports:   reports,
		templates: templates,
		settings:  settings,
		prober:    prober,
		audit:     auditReader,
		auditLog:  auditLog,
	}
}

func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]string{"status": "ok"})
}

func queryInt(r *http.Request, key string, fallback int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func queryDate(r *http.Request, key string) *time.Time {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	return &t
}
