package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldSource       = "source"
	FieldReason       = "reason"
	FieldRow          = "row"
	FieldTransactions = "transactions"
	FieldSkipped      = "skipped"
	FieldPayers       = "payers"
	FieldTotalExpense = "total_expense"
	FieldUsagePercent = "usage_percent"
	FieldOverAmount   = "over_amount"
	FieldIdealBudget  = "ideal_budget"
	FieldMaxBudget    = "max_budget"
	FieldGeneration   = "generation"
	FieldMessageID    = "message_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentEngine    = "engine"
	ComponentDashboard = "dashboard"
	ComponentLedger    = "ledger"
	ComponentStorage   = "storage"
	ComponentSheets    = "sheets"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentBackend   = "backend"
	ComponentRateLimit = "rate_limit"
)

// Operations defines standard operation names
const (
	OpRefresh  = "refresh"
	OpWhatIf   = "what_if"
	OpSnapshot = "snapshot"
	OpAppend   = "append"
	OpImport   = "import"
	OpConsume  = "consume"
	OpPublish  = "publish"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeMalformedRecord = "malformed_record"
	ErrorTypeBudgetConfig    = "invalid_budget_config"
	ErrorTypeSource          = "source_error"
	ErrorTypeInternal        = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithComponent adds component field
func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

// WithRequestID adds request ID field
func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

// WithClientIP adds client IP field
func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBudget adds the two thresholds
func (f LogFields) WithBudget(ideal, maximum decimal.Decimal) LogFields {
	f[FieldIdealBudget] = ideal.String()
	f[FieldMaxBudget] = maximum.String()
	return f
}

// WithTotals adds the headline figures of a recomputation
func (f LogFields) WithTotals(total, usagePercent, over decimal.Decimal, transactions, payers int) LogFields {
	f[FieldTotalExpense] = total.StringFixed(2)
	f[FieldUsagePercent] = usagePercent.StringFixed(1)
	f[FieldOverAmount] = over.StringFixed(2)
	f[FieldTransactions] = transactions
	f[FieldPayers] = payers
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	return f
}

// WithHTTPResponse adds HTTP response fields
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
