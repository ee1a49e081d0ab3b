package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"afasrapport/internal/core"
	"afasrapport/internal/export"
	"afasrapport/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady pings every registered dependency.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, p := range s.checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": s.now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics provides request and security metrics in plain text format
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	traceMetrics := s.traceMiddleware.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	securityMetrics := s.securityDetector.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n%s %v\n\n", name, help, name, kind, name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_requests_in_flight", "gauge", "Requests currently being served", traceMetrics.InFlight)
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", int64(time.Since(s.started).Seconds()))
}

func (s *Server) viewFor(w http.ResponseWriter, r *http.Request, withChecks bool) (*core.FinancialView, bool) {
	rng, err := parseRange(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	view, err := s.reports.View(r.Context(), rng, withChecks)
	if err != nil {
		s.fail(w, r, log.OpBuild, err)
		return nil, false
	}
	return view, true
}

func (s *Server) handleFinancialView(w http.ResponseWriter, r *http.Request) {
	withChecks, _ := strconv.ParseBool(r.URL.Query().Get("checks"))
	view, ok := s.viewFor(w, r, withChecks)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleFinancialViewXLSX(w http.ResponseWriter, r *http.Request) {
	view, ok := s.viewFor(w, r, false)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, view); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	filename := fmt.Sprintf("financieel-overzicht-%s-%s.xlsx", view.Summary.DateRange.Start, view.Summary.DateRange.End)
	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, err := s.reports.Results(r.Context(), rng)
	if err != nil {
		s.fail(w, r, log.OpBuild, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleReportGroups(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	groups, err := s.reports.ReportGroups(r.Context(), rng)
	if err != nil {
		s.fail(w, r, log.OpBuild, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups})
}

type mappingsPayload struct {
	Mappings []core.CategoryMapping `json:"mappings"`
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	rng, err := parseRange(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mappings, err := s.reports.Mappings(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	unmapped, err := s.reports.UnmappedCategories(r.Context(), rng)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"mappings": mappings, "unmapped": unmapped})
}

func (s *Server) handleSaveMappings(w http.ResponseWriter, r *http.Request) {
	var body mappingsPayload
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for i := range body.Mappings {
		body.Mappings[i].Category = strings.TrimSpace(body.Mappings[i].Category)
		body.Mappings[i].ReportGroup = strings.TrimSpace(body.Mappings[i].ReportGroup)
	}
	if err := s.reports.SaveMappings(r.Context(), body.Mappings); err != nil {
		s.fail(w, r, log.OpValidate, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"saved": len(body.Mappings)})
}

func (s *Server) handleSuggestMappings(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	rng, err := parseRange(r, s.now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unmapped, err := s.reports.UnmappedCategories(r.Context(), rng)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	mappings, err := s.reports.Mappings(r.Context())
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}

	groups := existingGroups(mappings)
	suggestions, err := s.assistant.SuggestMappings(r.Context(), unmapped, groups)
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Mapping suggestion failed", err, log.OpAsk, nil)
		writeError(w, http.StatusBadGateway, "assistant did not return usable suggestions")
		return
	}
	writeJSON(w, http.StatusOK, mappingsPayload{Mappings: suggestions})
}

func existingGroups(mappings []core.CategoryMapping) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range mappings {
		if !seen[m.ReportGroup] {
			seen[m.ReportGroup] = true
			out = append(out, m.ReportGroup)
		}
	}
	sort.Strings(out)
	return out
}

type refreshRequest struct {
	StartYear int    `json:"startYear"`
	EndYear   int    `json:"endYear"`
	Reason    string `json:"reason"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if s.refresh == nil {
		writeError(w, http.StatusServiceUnavailable, "refresh is not configured")
		return
	}

	year := s.now().Year()
	req := refreshRequest{StartYear: year, EndYear: year, Reason: "api"}
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if req.StartYear == 0 {
		req.StartYear = year
	}
	if req.EndYear == 0 {
		req.EndYear = req.StartYear
	}

	outcome, err := s.refresh.RequestRefresh(r.Context(), req.StartYear, req.EndYear, req.Reason)
	if err != nil {
		s.fail(w, r, log.OpRefresh, err)
		return
	}
	status := http.StatusOK
	if outcome.Queued {
		status = http.StatusAccepted
	}
	writeJSON(w, status, outcome)
}

type chatRequest struct {
	ConversationID string `json:"conversationId"`
	Question       string `json:"question"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	view, ok := s.viewFor(w, r, true)
	if !ok {
		return
	}
	answer, err := s.assistant.Ask(r.Context(), req.ConversationID, req.Question, view)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		log.FromContext(r.Context()).WithComponent(log.ComponentAssistant).
			LogError(r.Context(), "Assistant request failed", err, log.OpAsk, nil)
		writeError(w, http.StatusBadGateway, "assistant request failed")
		return
	}
	writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, "assistant is not configured")
		return
	}
	id := r.PathValue("id")
	messages, err := s.assistant.History(r.Context(), id)
	if err != nil {
		s.fail(w, r, log.OpList, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"conversationId": id, "messages": messages})
}

func (s *Server) handleExportSheets(w http.ResponseWriter, r *http.Request) {
	if s.sheets == nil {
		writeError(w, http.StatusServiceUnavailable, "Google Sheets export is not configured")
		return
	}
	view, ok := s.viewFor(w, r, false)
	if !ok {
		return
	}
	ref, err := s.sheets.ExportView(r.Context(), view)
	if err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentSheets).
			LogError(r.Context(), "Sheets export failed", err, log.OpExport, nil)
		writeError(w, http.StatusBadGateway, "sheets export failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"range": ref})
}
