package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"royalty-dashboard/internal/errors"
	"royalty-dashboard/internal/models"
	"royalty-dashboard/internal/observability"
	"royalty-dashboard/internal/services"
)

const (
	version      = "1.0.0"
	cacheControl = "private, max-age=60"
)

type APIHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// render parses the query filters and runs the pipeline. On failure the error
// response has already been written.
func (h *APIHandlers) render(w http.ResponseWriter, r *http.Request) (*models.Dashboard, bool) {
	req, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	params, err := req.Params()
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return h.analytics.Render(r.Context(), params), true
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
}

func (h *APIHandlers) write(w http.ResponseWriter, data any) {
	errors.WriteSuccessWithHeaders(w, data, map[string]string{"Cache-Control": cacheControl})
}

func (h *APIHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d)
	}
}

func (h *APIHandlers) HandleSummary(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, map[string]any{
			"summary": d.Summary,
			"kpis":    d.KPIs,
		})
	}
}

func (h *APIHandlers) HandleTimeline(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d.Timeline)
	}
}

func (h *APIHandlers) HandleDistributors(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d.ByDistributor)
	}
}

func (h *APIHandlers) HandleClassifications(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d.ByClassification)
	}
}

func (h *APIHandlers) HandleStores(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d.ByStore)
	}
}

func (h *APIHandlers) HandleCountries(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d.ByCountry)
	}
}

func (h *APIHandlers) HandleTopTracks(w http.ResponseWriter, r *http.Request) {
	if d, ok := h.render(w, r); ok {
		h.write(w, d.TopTracks)
	}
}

func (h *APIHandlers) HandleFilters(w http.ResponseWriter, r *http.Request) {
	h.write(w, h.analytics.Options())
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	table := h.analytics.Table()
	if len(table.Columns) == 0 {
		h.fail(w, r, errors.ServiceUnavailable("Source table not loaded"))
		return
	}

	errors.WriteSuccess(w, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   version,
		"records":   table.Len(),
	})
}

func (h *APIHandlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	errors.WriteSuccess(w, h.analytics.Stats())
}
