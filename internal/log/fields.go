package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldImage     = "image"
	FieldFolder    = "folder"
	FieldReceiptID = "receipt_id"
	FieldStore     = "store"
	FieldGenre     = "genre"
	FieldTotal     = "total"
	FieldItemCount = "item_count"
	FieldFailure   = "failure"
	FieldState     = "state"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentIngest  = "ingest"
	ComponentExtract = "extract"
	ComponentImaging = "imaging"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
)
