package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/praesidio-sec/phishsim/internal/audit"
	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/pkg/httputil"
	"github.com/praesidio-sec/phishsim/internal/template"
)

func (h *Handlers) ListTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.List(r.Context())
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"templates": templates})
}

func (h *Handlers) GetTemplate(w http.ResponseWriter, r *http.Request) {
	tpl, err := h.templates.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	if tpl == nil {
		httputil.NotFound(w, "template not found")
		return
	}
	httputil.OK(w, tpl)
}

type templateRequest struct {
	Name        string `json:"name"`
	Subject     string `json:"subject"`
	HTMLBody    string `json:"html_body"`
	LandingPage string `json:"landing_page"`
}

func (req *templateRequest) validate(w http.ResponseWriter) bool {
	if req.Name == "" || req.Subject == "" || req.HTMLBody == "" {
		httputil.BadRequest(w, "name, subject, and html_body are required")
		return false
	}
	return true
}

func (h *Handlers) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !httputil.Decode(w, r, &req) || !req.validate(w) {
		return
	}
	tpl := &domain.Template{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		LandingPage: req.LandingPage,
		LinkIDs:     template.LinkIDs(req.HTMLBody),
	}
	if err := h.templates.Create(r.Context(), tpl); err != nil {
		httputil.FromError(w, err)
		return
	}
	name, ip := actorFrom(r)
	h.auditLog.Record(r.Context(), audit.ActionTemplateCreated, "template", tpl.ID, name, ip, tpl.Name)
	httputil.Created(w, tpl)
}

func (h *Handlers) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !httputil.Decode(w, r, &req) || !req.validate(w) {
		return
	}
	tpl := &domain.Template{
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Subject:     req.Subject,
		HTMLBody:    req.HTMLBody,
		LandingPage: req.LandingPage,
		LinkIDs:     template.LinkIDs(req.HTMLBody),
	}
	if err := h.templates.Update(r.Context(), tpl); err != nil {
		httputil.FromError(w, err)
		return
	}
	name, ip := actorFrom(r)
	h.auditLog.Record(r.Context(), audit.ActionTemplateUpdated, "template", tpl.ID, name, ip, tpl.Name)
	httputil.OK(w, tpl)
}

func (h *Handlers) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.templates.Delete(r.Context(), id); err != nil {
		httputil.FromError(w, err)
		return
	}
	name, ip := actorFrom(r)
	h.auditLog.Record(r.Context(), audit.ActionTemplateDeleted, "template", id, name, ip, "")
	httputil.NoContent(w)
}

func (h *Handlers) GetTransportSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.ActiveTransport(r.Context())
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	if settings == nil {
		httputil.OK(w, map[string]interface{}{"configured": false})
		return
	}
	// the password never leaves the server; the json tag strips it
	httputil.OK(w, settings)
}

// transportSettingsRequest exists because the domain type hides the
// password from JSON output; input still has to carry it.
type transportSettingsRequest struct {
	Provider         string `json:"provider"`
	Host             string `json:"host"`
	Port             int    `json:"port"`
	Username         string `json:"username"`
	Password         string `json:"password"`
	FromEmail        string `json:"from_email"`
	FromName         string `json:"from_name"`
	ReplyTo          string `json:"reply_to"`
	TLSEnabled       bool   `json:"tls_enabled"`
	SSLEnabled       bool   `json:"ssl_enabled"`
	MaxRatePerMinute int    `json:"max_rate_per_minute"`
}

func (h *Handlers) SaveTransportSettings(w http.ResponseWriter, r *http.Request) {
	var req transportSettingsRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.FromEmail == "" {
		httputil.BadRequest(w, "from_email is required")
		return
	}
	provider := domain.TransportProvider(req.Provider)
	if provider == "" {
		provider = domain.ProviderSMTP
	}
	s := &domain.TransportSettings{
		ID:               uuid.New().String(),
		Provider:         provider,
		Host:             req.Host,
		Port:             req.Port,
		Username:         req.Username,
		Password:         req.Password,
		FromEmail:        req.FromEmail,
		FromName:         req.FromName,
		ReplyTo:          req.ReplyTo,
		TLSEnabled:       req.TLSEnabled,
		SSLEnabled:       req.SSLEnabled,
		MaxRatePerMinute: req.MaxRatePerMinute,
		Active:           true,
	}
	if err := h.settings.Save(r.Context(), s); err != nil {
		httputil.FromError(w, err)
		return
	}
	name, ip := actorFrom(r)
	h.auditLog.Record(r.Context(), audit.ActionSettingsUpdated, "transport", s.ID, name, ip, string(s.Provider))
	httputil.OK(w, s)
}

type transportTestRequest struct {
	To string `json:"to"`
}

func (h *Handlers) TestTransportSettings(w http.ResponseWriter, r *http.Request) {
	var req transportTestRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.To == "" {
		httputil.BadRequest(w, "to is required")
		return
	}
	if err := h.prober.SendProbe(r.Context(), req.To); err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]string{"status": "sent"})
}

func (h *Handlers) ListAudit(w http.ResponseWriter, r *http.Request) {
	entries, total, err := h.audit.List(r.Context(),
		queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"entries": entries,
		"total":   total,
	})
}
