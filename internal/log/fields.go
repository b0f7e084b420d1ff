package log

// Common field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldScreen     = "screen"
	FieldCollection = "collection"
	FieldRecordID   = "record_id"
	FieldAction     = "action"
	FieldRowIndex   = "row_index"
)

// Standard component names.
const (
	ComponentApp     = "app"
	ComponentGrid    = "grid"
	ComponentServer  = "server"
	ComponentAPI     = "api"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentRest    = "rest"
)
