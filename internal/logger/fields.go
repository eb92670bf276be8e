package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Tracing Fields (Context level)
// Propagated through the analysis call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the analysis job ID
	FieldJobID = "job_id"

	// FieldBatchID is the batch run ID
	FieldBatchID = "batch_id"

	// FieldAttachmentID is the image attachment being analyzed
	FieldAttachmentID = "attachment_id"

	// FieldLanguage is the target language of a run
	FieldLanguage = "language"

	// FieldProvider is the vision provider name
	FieldProvider = "provider"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldReviewer is the reviewer subject from an auth token
	FieldReviewer = "reviewer"
)

// ============================================
// Metric Fields (Entry level)
// Used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"

	// FieldScore is a final blended score
	FieldScore = "score"

	// FieldStep is the pipeline step name
	FieldStep = "step"
)
