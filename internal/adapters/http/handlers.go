package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pixeltoplanet/carbonfooter-service/internal/application"
	"github.com/pixeltoplanet/carbonfooter-service/internal/contracts"
	"github.com/pixeltoplanet/carbonfooter-service/internal/domain"
)

type Handler struct {
	service *application.Service
}

func NewHandler(service *application.Service) *Handler {
	return &Handler{service: service}
}

func pageIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Handler) pageView(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid page id", requestIDFromContext(r.Context()))
		return
	}
	result, err := h.service.HandlePageView(r.Context(), pageID, actorFromContext(r.Context()))
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	if result.Decision == application.DecisionFailed {
		writeError(w, http.StatusBadGateway, "measurement_failed", "measurement failed; will retry on a later view", requestIDFromContext(r.Context()))
		return
	}
	resp := contracts.PageViewResponse{PageID: pageID, Decision: string(result.Decision)}
	if result.Payload != nil {
		payload := toPayloadResponse(pageID, *result.Payload)
		resp.Payload = &payload
	}
	writeSuccess(w, http.StatusOK, "page view recorded", resp)
}

func (h *Handler) measurePage(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid page id", requestIDFromContext(r.Context()))
		return
	}
	emissions, err := h.service.ProcessPage(r.Context(), pageID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "page measured", contracts.MeasureResponse{PageID: pageID, Emissions: emissions})
}

func (h *Handler) pageEmissions(w http.ResponseWriter, r *http.Request) {
	pageID, ok := pageIDParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_input", "invalid page id", requestIDFromContext(r.Context()))
		return
	}
	payload, err := h.service.GetPagePayload(r.Context(), pageID)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	if payload == nil {
		writeError(w, http.StatusNotFound, "not_found", "page has no emissions data", requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "page emissions", toPayloadResponse(pageID, *payload))
}

func (h *Handler) siteStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetSiteStats(r.Context())
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	resp := contracts.SiteStatsResponse{
		AverageEmissions:  stats.AverageEmissions,
		MeasuredPages:     stats.MeasuredPages,
		TotalEmissions:    stats.TotalEmissions,
		GreenHost:         stats.GreenHost,
		ResourceBreakdown: stats.ResourceBreakdown,
	}
	if stats.LastMeasuredAt > 0 {
		resp.LastMeasuredAt = time.Unix(stats.LastMeasuredAt, 0).UTC().Format(time.RFC3339)
	}
	writeSuccess(w, http.StatusOK, "site stats", resp)
}

func (h *Handler) heaviestPages(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_input", "invalid limit", requestIDFromContext(r.Context()))
			return
		}
		limit = parsed
	}
	rows, err := h.service.HeaviestPages(r.Context(), limit)
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.PageWeightResponse, 0, len(rows))
	for _, row := range rows {
		out = append(out, contracts.PageWeightResponse{PageID: row.PageID, Title: row.Title, Emissions: row.Emissions, PageSize: row.PageSize})
	}
	writeSuccess(w, http.StatusOK, "heaviest pages", out)
}

func (h *Handler) untestedPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.service.UntestedPages(r.Context())
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.UntestedPageResponse, 0, len(pages))
	for _, page := range pages {
		out = append(out, contracts.UntestedPageResponse{PageID: page.PageID, Title: page.Title})
	}
	writeSuccess(w, http.StatusOK, "untested pages", out)
}

func (h *Handler) clearData(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.service.ClearAllData(r.Context())
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	writeSuccess(w, http.StatusOK, "all emissions data cleared", contracts.ClearDataResponse{DeletedEntries: deleted})
}

func (h *Handler) exportData(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ExportData(r.Context())
	if err != nil {
		code, c := mapDomainError(err)
		writeError(w, code, c, err.Error(), requestIDFromContext(r.Context()))
		return
	}
	out := make([]contracts.ExportEntryResponse, 0, len(entries))
	for _, entry := range entries {
		resp := contracts.ExportEntryResponse{
			ID:               entry.ID,
			Title:            entry.Title,
			CurrentEmissions: entry.CurrentEmissions,
			History:          make([]contracts.ExportHistoryEntry, 0, len(entry.History)),
		}
		for _, point := range entry.History {
			resp.History = append(resp.History, contracts.ExportHistoryEntry{Date: point.Date, Value: point.Value})
		}
		out = append(out, resp)
	}
	writeSuccess(w, http.StatusOK, "emissions export", out)
}

func toPayloadResponse(pageID int64, payload domain.Payload) contracts.PayloadResponse {
	return contracts.PayloadResponse{
		PageID:    pageID,
		Emissions: payload.Emissions,
		PageSize:  payload.PageSize,
		UpdatedAt: payload.UpdatedAt,
		Source:    string(payload.Source),
		Stale:     payload.Stale,
	}
}
