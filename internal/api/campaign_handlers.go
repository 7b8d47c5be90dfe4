package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praesidio-sec/phishsim/internal/campaign"
	"github.com/praesidio-sec/phishsim/internal/domain"
	"github.com/praesidio-sec/phishsim/internal/pkg/httputil"
	"github.com/praesidio-sec/phishsim/internal/targeting"
)

func actor(r *http.Request) campaign.Actor {
	name, ip := actorFrom(r)
	return campaign.Actor{Name: name, IP: ip}
}

func (h *Handlers) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	f := campaign.ListFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Limit:  queryInt(r, "limit", 50),
		Offset: queryInt(r, "offset", 0),
	}
	campaigns, total, err := h.campaigns.List(r.Context(), f)
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"campaigns": campaigns,
		"total":     total,
	})
}

func (h *Handlers) GetCampaign(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.campaigns.Create(r.Context(), input, actor(r))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.Created(w, c)
}

func (h *Handlers) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	var input campaign.CreateInput
	if !httputil.Decode(w, r, &input) {
		return
	}
	c, err := h.campaigns.Update(r.Context(), chi.URLParam(r, "id"), input, actor(r))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, c)
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	if err := h.campaigns.Delete(r.Context(), chi.URLParam(r, "id"), actor(r)); err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.NoContent(w)
}

func (h *Handlers) lifecycle(action func(r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := action(r); err != nil {
			httputil.FromError(w, err)
			return
		}
		c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			httputil.FromError(w, err)
			return
		}
		httputil.OK(w, c)
	}
}

func (h *Handlers) ScheduleCampaign(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(func(r *http.Request) error {
		return h.campaigns.Schedule(r.Context(), chi.URLParam(r, "id"), actor(r))
	})(w, r)
}

func (h *Handlers) PauseCampaign(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(func(r *http.Request) error {
		return h.campaigns.Pause(r.Context(), chi.URLParam(r, "id"), actor(r))
	})(w, r)
}

func (h *Handlers) ResumeCampaign(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(func(r *http.Request) error {
		return h.campaigns.Resume(r.Context(), chi.URLParam(r, "id"), actor(r))
	})(w, r)
}

func (h *Handlers) StopCampaign(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(func(r *http.Request) error {
		return h.campaigns.Stop(r.Context(), chi.URLParam(r, "id"), actor(r))
	})(w, r)
}

// runNowRequest carries the caller-supplied candidate population. The
// engine never sources users itself.
type runNowRequest struct {
	Users []domain.User `json:"users"`
}

func (h *Handlers) RunCampaignNow(w http.ResponseWriter, r *http.Request) {
	var req runNowRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	run, err := h.campaigns.RunNow(r.Context(), chi.URLParam(r, "id"), req.Users, actor(r))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.campaigns.Runs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"runs": runs})
}

// estimateRequest is a transient campaign configuration plus the
// directory size, estimated without persisting anything.
type estimateRequest struct {
	TargetDepartments []string `json:"target_departments"`
	IncludeUserIDs    []string `json:"include_user_ids"`
	ExcludeUserIDs    []string `json:"exclude_user_ids"`
	SamplingPercent   int      `json:"sampling_percent"`
	TotalPopulation   int      `json:"total_population"`
}

func (h *Handlers) EstimateTargets(w http.ResponseWriter, r *http.Request) {
	var req estimateRequest
	if !httputil.Decode(w, r, &req) {
		return
	}
	if req.SamplingPercent == 0 {
		req.SamplingPercent = 100
	}
	estimate := targeting.EstimateTargetCount(&domain.Campaign{
		TargetDepartments: req.TargetDepartments,
		IncludeUserIDs:    req.IncludeUserIDs,
		ExcludeUserIDs:    req.ExcludeUserIDs,
		SamplingPercent:   req.SamplingPercent,
	}, req.TotalPopulation)
	httputil.OK(w, map[string]int{"estimated_targets": estimate})
}

// EstimateCampaignTargets estimates against a saved campaign's rules.
func (h *Handlers) EstimateCampaignTargets(w http.ResponseWriter, r *http.Request) {
	c, err := h.campaigns.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.FromError(w, err)
		return
	}
	population := queryInt(r, "population", 0)
	estimate := targeting.EstimateTargetCount(c, population)
	httputil.OK(w, map[string]int{"estimated_targets": estimate})
}
