package log

import "afasrapport/internal/core"

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldUserAgent  = "user_agent"
	FieldSuccess    = "success"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldStartYear  = "start_year"
	FieldEndYear    = "end_year"
	FieldRange      = "range"
	FieldRecords    = "records"
	FieldMonths     = "months"
	FieldConnector  = "connector"
	FieldPage       = "page"
	FieldAttempt    = "attempt"
	FieldCacheKey   = "cache_key"
	FieldCacheTier  = "cache_tier"
	FieldMessageID  = "message_id"
	FieldConvID     = "conversation_id"
	FieldModel      = "model"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentReport    = "report"
	ComponentRefresh   = "refresh"
	ComponentAFAS      = "afas"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentScheduler = "scheduler"
	ComponentSheets    = "sheets"
	ComponentExport    = "export"
	ComponentAssistant = "assistant"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentBackend   = "backend"
)

// Operations defines standard operation names
const (
	OpRead     = "read"
	OpList     = "list"
	OpBuild    = "build"
	OpFetch    = "fetch"
	OpRefresh  = "refresh"
	OpPublish  = "publish"
	OpConsume  = "consume"
	OpExport   = "export"
	OpAsk      = "ask"
	OpValidate = "validate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields is a builder for structured log attributes.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error text; nil errors are skipped.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithRange adds the requested reporting period.
func (f LogFields) WithRange(rng core.PeriodRange) LogFields {
	f[FieldRange] = rng.String()
	return f
}

// WithView adds the headline numbers of a built financial view.
func (f LogFields) WithView(view *core.FinancialView) LogFields {
	if view == nil {
		return f
	}
	f[FieldRecords] = view.Summary.TotalRecords
	f[FieldMonths] = view.Summary.MonthsWithData
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
