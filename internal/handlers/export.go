package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"royalty-dashboard/internal/errors"
	"royalty-dashboard/internal/models"
	"royalty-dashboard/internal/observability"
	"royalty-dashboard/internal/services"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (h *APIHandlers) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "csv", "text/csv; charset=utf-8", services.CSVFilename, services.WriteCSV)
}

func (h *APIHandlers) HandleExportXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "xlsx", xlsxContentType, services.XLSXFilename, services.WriteXLSX)
}

// export buffers the whole file so a write failure still produces a JSON
// error instead of a truncated download.
func (h *APIHandlers) export(w http.ResponseWriter, r *http.Request, format, contentType, filename string, write func(io.Writer, *models.Table) error) {
	req, err := parseQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	params, err := req.Params()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ctx, span := observability.StartSpan(r.Context(), "export."+format)
	defer span.End()

	table := h.analytics.Filter(params)

	var buf bytes.Buffer
	if err := write(&buf, table); err != nil {
		observability.RecordError(span, err)
		h.fail(w, r.WithContext(ctx), errors.ExportFailed(err, format))
		return
	}

	observability.LoggerFrom(ctx, h.logger).Info("export generated",
		"format", format,
		"rows", table.Len(),
		"bytes", buf.Len(),
	)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("export write interrupted", "format", format, "error", err)
	}
}
