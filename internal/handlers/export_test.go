package handlers

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestHandleExportCSV(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleExportCSV(rec, httptest.NewRequest(http.MethodGet, "/export/csv?distributor=ONErpm", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="royalties_filtered.csv"`, rec.Header().Get("Content-Disposition"))

	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "period", rows[0][0])
	assert.Equal(t, "2024-01-05", rows[1][0])
	assert.Equal(t, "1200.5", rows[1][1])
	assert.Equal(t, "Song C", rows[2][5])
}

func TestHandleExportXLSX(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleExportXLSX(rec, httptest.NewRequest(http.MethodGet, "/export/xlsx?country=PT", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "royalties_filtered.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("royalties")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Believe", rows[1][3])
}

func TestHandleExport_InvalidParams(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleExportCSV(rec, httptest.NewRequest(http.MethodGet, "/export/csv?to=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestHandleExport_EmptyResult(t *testing.T) {
	h := NewAPIHandlers(createTestAnalytics(), testLogger)

	rec := httptest.NewRecorder()
	h.HandleExportCSV(rec, httptest.NewRequest(http.MethodGet, "/export/csv?store=Tidal", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	rows, err := csv.NewReader(rec.Body).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}
