package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/praesidio-sec/phishsim/internal/api"
	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/campaign"
	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/report"
)

type fakeCampaigns struct {
	campaigns map[string]*domain.Campaign
	lastActor campaign.Actor
}

func (f *fakeCampaigns) Get(_ context.Context, id string) (*domain.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	return c, nil
}

func (f *fakeCampaigns) List(context.Context, campaign.ListFilter) ([]domain.Campaign, int, error) {
	var out []domain.Campaign
	for _, c := range f.campaigns {
		out = append(out, *c)
	}
	return out, len(out), nil
}

func (f *fakeCampaigns) Runs(_ context.Context, id string) ([]domain.CampaignRun, error) {
	if _, ok := f.campaigns[id]; !ok {
		return nil, campaign.ErrNotFound
	}
	return []domain.CampaignRun{{ID: "run-1", CampaignID: id}}, nil
}

func (f *fakeCampaigns) Create(_ context.Context, input campaign.CreateInput, actor campaign.Actor) (*domain.Campaign, error) {
	f.lastActor = actor
	c := &domain.Campaign{ID: "new-id", Name: input.Name, Status: domain.CampaignDraft}
	f.campaigns[c.ID] = c
	return c, nil
}

func (f *fakeCampaigns) Update(_ context.Context, id string, input campaign.CreateInput, _ campaign.Actor) (*domain.Campaign, error) {
	c, ok := f.campaigns[id]
	if !ok {
		return nil, campaign.ErrNotFound
	}
	if c.Status != domain.CampaignDraft {
		return nil, campaign.ErrNotEditable
	}
	c.Name = input.Name
	return c, nil
}

func (f *fakeCampaigns) Delete(_ context.Context, id string, _ campaign.Actor) error {
	c, ok := f.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	if c.Status == domain.CampaignRunning {
		return campaign.ErrDeleteRunning
	}
	delete(f.campaigns, id)
	return nil
}

func (f *fakeCampaigns) Schedule(_ context.Context, id string, _ campaign.Actor) error {
	c, ok := f.campaigns[id]
	if !ok {
		return campaign.ErrNotFound
	}
	if c.Status != domain.CampaignDraft {
		return campaign.ErrInvalidTransition
	}
	c.Status = domain.CampaignScheduled
	return nil
}

func (f *fakeCampaigns) Pause(_ context.Context, id string, _ campaign.Actor) error {
	return campaign.ErrInvalidTransition
}

func (f *fakeCampaigns) Resume(_ context.Context, id string, _ campaign.Actor) error {
	return campaign.ErrInvalidTransition
}

func (f *fakeCampaigns) Stop(_ context.Context, id string, _ campaign.Actor) error { return nil }

func (f *fakeCampaigns) RunNow(_ context.Context, id string, population []domain.User, _ campaign.Actor) (*domain.CampaignRun, error) {
	if _, ok := f.campaigns[id]; !ok {
		return nil, campaign.ErrNotFound
	}
	return &domain.CampaignRun{
		ID: "run-1", CampaignID: id,
		Status: domain.RunCompleted, TargetCount: len(population), SentCount: len(population),
	}, nil
}

type fakeReports struct{}

func (fakeReports) Summary(_ context.Context, id string) (*report.Summary, error) {
	if id != "c1" {
		return nil, domain.ErrNotFound
	}
	return &report.Summary{CampaignID: id, RiskLevel: "GOOD", RiskScore: 12}, nil
}

func (fakeReports) Daily(context.Context, string, *time.Time, *time.Time) ([]domain.DailyResult, error) {
	return nil, nil
}

func (fakeReports) Departments(context.Context, string) ([]report.DepartmentResult, error) {
	return nil, nil
}

func (fakeReports) Users(context.Context, string) ([]report.UserResult, error) {
	return nil, nil
}

type fakeTemplates struct {
	templates map[string]*domain.Template
}

func (f *fakeTemplates) Get(_ context.Context, id string) (*domain.Template, error) {
	return f.templates[id], nil
}

func (f *fakeTemplates) List(context.Context) ([]domain.Template, error) { return nil, nil }

func (f *fakeTemplates) Create(_ context.Context, t *domain.Template) error {
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplates) Update(_ context.Context, t *domain.Template) error {
	f.templates[t.ID] = t
	return nil
}

func (f *fakeTemplates) Delete(_ context.Context, id string) error {
	delete(f.templates, id)
	return nil
}

type fakeSettings struct {
	saved *domain.TransportSettings
}

func (f *fakeSettings) ActiveTransport(context.Context) (*domain.TransportSettings, error) {
	return f.saved, nil
}

func (f *fakeSettings) Save(_ context.Context, s *domain.TransportSettings) error {
	f.saved = s
	return nil
}

type fakeProber struct{ sent []string }

func (f *fakeProber) SendProbe(_ context.Context, to string) error {
	f.sent = append(f.sent, to)
	return nil
}

type fakeAudit struct{ entries []domain.AuditEntry }

func (f *fakeAudit) List(context.Context, int, int) ([]domain.AuditEntry, int, error) {
	return f.entries, len(f.entries), nil
}

func (f *fakeAudit) Insert(_ context.Context, e *domain.AuditEntry) error {
	f.entries = append(f.entries, *e)
	return nil
}

type env struct {
	server    *httptest.Server
	campaigns *fakeCampaigns
	settings  *fakeSettings
	prober    *fakeProber
	audits    *fakeAudit
	templates *fakeTemplates
}

func newEnv(t *testing.T) *env {
	t.Helper()
	campaigns := &fakeCampaigns{campaigns: map[string]*domain.Campaign{
		"c1": {ID: "c1", Name: "Q3 Awareness", Status: domain.CampaignDraft},
	}}
	settings := &fakeSettings{}
	prober := &fakeProber{}
	audits := &fakeAudit{}
	templates := &fakeTemplates{templates: map[string]*domain.Template{}}

	h := api.NewHandlers(campaigns, fakeReports{}, templates, settings, prober, audits, audit.NewLogger(audits))
	srv := httptest.NewServer(api.SetupRoutes(h))
	t.Cleanup(srv.Close)
	return &env{server: srv, campaigns: campaigns, settings: settings, prober: prober, audits: audits, templates: templates}
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader([]byte("{}"))
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Auth-User", "sec-admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestCreateCampaignRecordsActor(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPost, e.server.URL+"/api/campaigns/", `{"name":"New Campaign"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if e.campaigns.lastActor.Name != "sec-admin" {
		t.Fatalf("actor = %q", e.campaigns.lastActor.Name)
	}
}

func TestGetCampaignNotFoundMapsTo404(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodGet, e.server.URL+"/api/campaigns/missing/", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "NOT_FOUND" {
		t.Fatalf("error code: %v", body)
	}
}

func TestIllegalTransitionMapsTo422(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPost, e.server.URL+"/api/campaigns/c1/pause", "")
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["code"] != "BUSINESS_RULE" {
		t.Fatalf("error code: %v", body)
	}
}

func TestScheduleReturnsUpdatedCampaign(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPost, e.server.URL+"/api/campaigns/c1/schedule", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["status"] != "SCHEDULED" {
		t.Fatalf("body: %v", body)
	}
}

func TestRunNowPassesPopulation(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPost, e.server.URL+"/api/campaigns/c1/run-now",
		`{"users":[{"id":"u1","email":"u1@corp.example"},{"id":"u2","email":"u2@corp.example"}]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["target_count"].(float64) != 2 {
		t.Fatalf("target count: %v", body)
	}
}

func TestEstimateTargets(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPost, e.server.URL+"/api/campaigns/estimate",
		`{"target_departments":["IT"],"sampling_percent":50,"total_population":1000}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["estimated_targets"].(float64) != 100 {
		t.Fatalf("estimate: %v", body)
	}
}

func TestEstimateSavedCampaign(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodGet, e.server.URL+"/api/campaigns/c1/estimate?population=200", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["estimated_targets"].(float64) != 200 {
		t.Fatalf("estimate: %v", body)
	}
}

func TestSummaryEndpoint(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodGet, e.server.URL+"/api/campaigns/c1/results", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if body["risk_level"] != "GOOD" {
		t.Fatalf("summary: %v", body)
	}
}

func TestTemplateLinkIDsExtracted(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPost, e.server.URL+"/api/templates/",
		`{"name":"Invoice","subject":"Invoice due","html_body":"<a href=\"{{link:pay}}\">Pay</a> {{link:help}}"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	ids, ok := body["link_ids"].([]interface{})
	if !ok || len(ids) != 2 {
		t.Fatalf("link ids: %v", body["link_ids"])
	}
}

func TestTransportSettingsRoundTrip(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodPut, e.server.URL+"/api/settings/smtp/",
		`{"host":"smtp.example.com","port":587,"password":"secret","from_email":"it@corp.example","tls_enabled":true}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %v", resp.StatusCode, body)
	}
	if e.settings.saved == nil || e.settings.saved.Password != "secret" {
		t.Fatal("password must reach the store")
	}
	if _, leaked := body["password"]; leaked {
		t.Fatal("password must not appear in the response")
	}
	// settings change is audited
	found := false
	for _, entry := range e.audits.entries {
		if entry.Action == audit.ActionSettingsUpdated {
			found = true
		}
	}
	if !found {
		t.Fatal("expected settings audit entry")
	}
}

func TestTransportProbe(t *testing.T) {
	e := newEnv(t)
	resp, _ := do(t, http.MethodPost, e.server.URL+"/api/settings/smtp/test", `{"to":"it@corp.example"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if len(e.prober.sent) != 1 || e.prober.sent[0] != "it@corp.example" {
		t.Fatalf("probe: %v", e.prober.sent)
	}
}

func TestUnknownTemplate404(t *testing.T) {
	e := newEnv(t)
	resp, _ := do(t, http.MethodGet, e.server.URL+"/api/templates/ghost", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	resp, body := do(t, http.MethodGet, e.server.URL+"/health", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("health: %d %v", resp.StatusCode, body)
	}
}
