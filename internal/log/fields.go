package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldUserID     = "user_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldQuery      = "query"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldClientIP   = "client_ip"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldExpenseID  = "expense_id"
)

// Component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentAuth      = "auth"
	ComponentExpense   = "expense"
	ComponentAnalytics = "analytics"
	ComponentInsights  = "insights"
	ComponentStorage   = "storage"
	ComponentEvents    = "events"
	ComponentRateLimit = "rate_limit"
)

// Operation names.
const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpGenerate = "generate"
	OpParse    = "parse"
	OpPublish  = "publish"
	OpMigrate  = "migrate"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
