package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"afasrapport/internal/assistant"
	"afasrapport/internal/backend"
	"afasrapport/internal/core"
	"afasrapport/internal/finview"
	"afasrapport/internal/log"
	"afasrapport/internal/middleware/ratelimit"
	"afasrapport/internal/middleware/security"
	"afasrapport/internal/middleware/trace"
	"afasrapport/internal/services"
	"afasrapport/internal/sheets"
)

// Ports the server depends on.
type (
	ReportProvider interface {
		View(ctx context.Context, rng core.PeriodRange, withChecks bool) (*core.FinancialView, error)
		Results(ctx context.Context, rng core.PeriodRange) ([]core.MonthResult, error)
		ReportGroups(ctx context.Context, rng core.PeriodRange) ([]finview.GroupTotal, error)
		UnmappedCategories(ctx context.Context, rng core.PeriodRange) ([]string, error)
		Mappings(ctx context.Context) ([]core.CategoryMapping, error)
		SaveMappings(ctx context.Context, mappings []core.CategoryMapping) error
	}

	RefreshRequester interface {
		RequestRefresh(ctx context.Context, startYear, endYear int, reason string) (services.RefreshOutcome, error)
	}

	ChatAssistant interface {
		Ask(ctx context.Context, conversationID, question string, view *core.FinancialView) (assistant.Answer, error)
		History(ctx context.Context, conversationID string) ([]core.ChatMessage, error)
		SuggestMappings(ctx context.Context, categories, existingGroups []string) ([]core.CategoryMapping, error)
	}
)

// Deps wires the server. Refresh, Assistant and Sheets are optional; their
// endpoints answer 503 when unset.
type Deps struct {
	Reports   ReportProvider
	Refresh   RefreshRequester
	Assistant ChatAssistant
	Sheets    sheets.ViewExporter
	Checks    map[string]backend.Pinger
	Logger    *log.Logger
	// RateLimit overrides ratelimit.DefaultConfig when RequestsPerMinute is set.
	RateLimit ratelimit.Config
}

type Server struct {
	http.Server

	reports   ReportProvider
	refresh   RefreshRequester
	assistant ChatAssistant
	sheets    sheets.ViewExporter
	checks    map[string]backend.Pinger
	logger    *log.Logger

	rateLimiter      *ratelimit.Limiter
	securityDetector *security.Detector
	traceMiddleware  *trace.Middleware
	started          time.Time
	now              func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	rlConfig := ratelimit.DefaultConfig()
	if deps.RateLimit.RequestsPerMinute > 0 {
		rlConfig = deps.RateLimit
	}

	s := &Server{
		reports:          deps.Reports,
		refresh:          deps.Refresh,
		assistant:        deps.Assistant,
		sheets:           deps.Sheets,
		checks:           deps.Checks,
		logger:           logger.WithComponent(log.ComponentHTTP),
		rateLimiter:      ratelimit.NewLimiter(rlConfig),
		securityDetector: security.NewDetector(logger),
		traceMiddleware:  trace.NewMiddleware(),
		started:          time.Now(),
		now:              time.Now,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)

	mux.HandleFunc("GET /api/v2/financial-view", s.handleFinancialView)
	mux.HandleFunc("GET /api/v2/financial-view.xlsx", s.handleFinancialViewXLSX)
	mux.HandleFunc("GET /api/v2/results", s.handleResults)
	mux.HandleFunc("GET /api/v2/report-groups", s.handleReportGroups)
	mux.HandleFunc("GET /api/v2/category-mappings", s.handleListMappings)
	mux.HandleFunc("POST /api/v2/category-mappings", s.handleSaveMappings)
	mux.HandleFunc("POST /api/v2/category-mappings/suggest", s.handleSuggestMappings)

	mux.HandleFunc("POST /api/v2/refresh", s.handleRefresh)
	mux.HandleFunc("POST /api/v2/chat", s.handleChat)
	mux.HandleFunc("GET /api/v2/chat/{id}", s.handleChatHistory)
	mux.HandleFunc("POST /api/v2/export/sheets", s.handleExportSheets)

	var handler http.Handler = mux
	handler = s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP)(handler)
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = s.securityDetector.Middleware(true)(handler)
	handler = log.Middleware(logger, trace.RequestID)(handler)
	handler = s.traceMiddleware.Middleware(handler)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// Refreshes and model calls run inline.
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  2 * time.Minute,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
