package handlers

import (
	"context"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"

	"royalty-dashboard/internal/errors"
	"royalty-dashboard/internal/observability"
	"royalty-dashboard/internal/services"
	"royalty-dashboard/internal/ui/templates"
)

type SSEHandlers struct {
	analytics *services.Analytics
	logger    *slog.Logger
}

func NewSSEHandlers(analytics *services.Analytics, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		analytics: analytics,
		logger:    logger,
	}
}

// HandleDashboard serves the full page with the default filter state.
func (h *SSEHandlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	opts := h.analytics.Options()
	req := &FilterRequest{
		From:            opts.MinDate,
		To:              opts.MaxDate,
		Distributors:    opts.DefaultDistributors,
		Classifications: opts.DefaultClassifications,
		Stores:          opts.DefaultStores,
		Countries:       opts.DefaultCountries,
	}
	params, err := req.Params()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	d := h.analytics.Render(r.Context(), params)

	signals, err := templates.InitialSignals(opts, d.Timeline)
	if err != nil {
		h.fail(w, r, errors.InternalWrap(err, "Could not encode signals"))
		return
	}

	page := templates.Page(templates.PageData{
		Options:   opts,
		Dashboard: d,
		Exports:   exportLinks(req.Query()),
		Signals:   signals,
	})
	templ.Handler(page, templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.fail(w, r, errors.InternalWrap(err, "Could not render dashboard"))
		})
	})).ServeHTTP(w, r)
}

// HandleRefresh reads the filter signals, reruns the pipeline and patches
// the KPI cards, tables and export links. The timeline goes back as a signal.
func (h *SSEHandlers) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	req, err := parseSignals(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	params, err := req.Params()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	d := h.analytics.Render(r.Context(), params)
	log := observability.LoggerFrom(r.Context(), h.logger)

	fragments := []templ.Component{
		templates.KPIs(d),
		templates.Tables(d),
		templates.Exports(exportLinks(req.Query())),
	}
	rendered := make([]string, 0, len(fragments))
	for _, c := range fragments {
		html, err := renderString(r.Context(), c)
		if err != nil {
			log.Error("render fragment", "error", err)
			h.fail(w, r, errors.InternalWrap(err, "Could not render dashboard"))
			return
		}
		rendered = append(rendered, html)
	}

	signals, err := json.Marshal(map[string]any{
		"timeline": d.Timeline,
		"rowCount": d.Summary.RowCount,
	})
	if err != nil {
		log.Error("marshal timeline signals", "error", err)
		return
	}

	sse := datastar.NewSSE(w, r)
	for _, html := range rendered {
		if err := sse.PatchElements(html); err != nil {
			log.Warn("patch elements", "error", err)
			return
		}
	}
	if err := sse.PatchSignals(signals); err != nil {
		log.Warn("patch signals", "error", err)
		return
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, observability.LoggerFrom(r.Context(), h.logger), err, observability.GetRequestID(r.Context()))
}

func renderString(ctx context.Context, c templ.Component) (string, error) {
	var sb strings.Builder
	if err := c.Render(ctx, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func exportLinks(q url.Values) templates.ExportLinks {
	suffix := ""
	if encoded := q.Encode(); encoded != "" {
		suffix = "?" + encoded
	}
	return templates.ExportLinks{
		CSV:  template.URL("/export/csv" + suffix),
		XLSX: template.URL("/export/xlsx" + suffix),
	}
}
