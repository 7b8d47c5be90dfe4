package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praesidio-sec/phishsim/internal/pkg/httputil"
)

func (h *Handlers) CampaignSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.reports.Summary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, sum)
}

func (h *Handlers) CampaignDaily(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Daily(r.Context(), chi.URLParam(r, "id"),
		queryDate(r, "from"), queryDate(r, "to"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"daily": rows})
}

func (h *Handlers) CampaignDepartments(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Departments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"departments": rows})
}

func (h *Handlers) CampaignUsers(w http.ResponseWriter, r *http.Request) {
	rows, err := h.reports.Users(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"users": rows})
}
