package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldClientIP  = "client_ip"
	FieldMethod    = "method"
	FieldPath      = "path"
	FieldStatus    = "status"
	FieldDuration  = "duration_ms"
	FieldError     = "error"

	FieldUserID   = "user_id"
	FieldUsername = "username"
	FieldRole     = "role"
	FieldTripID   = "trip_id"
	FieldRefuelID = "refuel_id"
	FieldRecordID = "record_id"
	FieldKind     = "kind"
	FieldDate     = "date"
	FieldAmount   = "amount"
	FieldYear     = "year"
	FieldMonth    = "month"
	FieldRowRef   = "row_ref"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentAuth    = "auth"
	ComponentExport  = "export"
)
