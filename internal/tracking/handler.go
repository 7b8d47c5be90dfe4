package tracking

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// 1x1 transparent GIF
var pixelGIF = []byte{
	0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00,
	0x80, 0x00, 0x00, 0xff, 0xff, 0xff, 0x00, 0x00, 0x00, 0x2c,
	0x00, 0x00, 0x00, 0x00, 0x01, 0x00, 0x01, 0x00, 0x00, 0x02,
	0x02, 0x44, 0x01, 0x00, 0x3b,
}

// Handler exposes the public tracking routes.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}/p", h.HandlePixel)
	r.Get("/{token}/l/{linkID}", h.HandleClick)
	r.Post("/{token}/form", h.HandleForm)
	r.Post("/{token}/report", h.HandleReport)
	r.Get("/health", h.HandleHealth)
	return r
}

func (h *Handler) HandlePixel(w http.ResponseWriter, r *http.Request) {
	h.svc.RecordOpen(r.Context(), h.hit(r))
	h.servePixel(w)
}

func (h *Handler) HandleClick(w http.ResponseWriter, r *http.Request) {
	hit := h.hit(r)
	hit.LinkID = chi.URLParam(r, "linkID")
	h.servePage(w, h.svc.RecordClick(r.Context(), hit))
}

func (h *Handler) HandleForm(w http.ResponseWriter, r *http.Request) {
	// Drain and discard whatever was posted. Field values never leave
	// this function.
	io.Copy(io.Discard, r.Body)
	r.Body.Close()

	h.servePage(w, h.svc.RecordSubmission(r.Context(), h.hit(r)))
}

func (h *Handler) HandleReport(w http.ResponseWriter, r *http.Request) {
	h.servePage(w, h.svc.RecordReport(r.Context(), h.hit(r)))
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (h *Handler) hit(r *http.Request) Hit {
	return Hit{
		Token:     chi.URLParam(r, "token"),
		IP:        realIP(r),
		UserAgent: r.UserAgent(),
	}
}

func (h *Handler) servePixel(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
	w.Write(pixelGIF)
}

func (h *Handler) servePage(w http.ResponseWriter, html string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Write([]byte(html))
}

func realIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx > 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return xff
	}
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
