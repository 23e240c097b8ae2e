// Package errors provides structured error handling for the telemetry layer.
package errors

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Validation errors
	CodeEventKindMissing    Code = "EVENT_KIND_MISSING"
	CodeEventKindMalformed  Code = "EVENT_KIND_MALFORMED"
	CodeEventIDMissing      Code = "EVENT_ID_MISSING"
	CodeDuplicateEventID    Code = "DUPLICATE_EVENT_ID"
	CodeSessionIDMissing    Code = "SESSION_ID_MISSING"
	CodeRoundIndexNegative  Code = "ROUND_INDEX_NEGATIVE"
	CodeGazeSampleMalformed Code = "GAZE_SAMPLE_MALFORMED"

	// Storage errors
	CodeStorageUnavailable   Code = "STORAGE_UNAVAILABLE"
	CodeStorageAppendFailed  Code = "STORAGE_APPEND_FAILED"
	CodeStorageQueryFailed   Code = "STORAGE_QUERY_FAILED"
	CodeRoundFileWriteFailed Code = "ROUND_FILE_WRITE_FAILED"
	CodeReportWriteFailed    Code = "REPORT_WRITE_FAILED"
	CodeSessionSealed        Code = "SESSION_SEALED"
	CodeNotFound             Code = "NOT_FOUND"

	// Delivery errors
	CodeEndpointUnreachable Code = "ENDPOINT_UNREACHABLE"
	CodeEndpointRejected    Code = "ENDPOINT_REJECTED"
	CodeMarkerQueueFull     Code = "MARKER_QUEUE_FULL"
	CodeRecordingControl    Code = "RECORDING_CONTROL_FAILED"
)

// Class groups codes into the three failure families the pipeline
// distinguishes when deciding whether to abort, retry, or drop.
type Class string

const (
	// ClassValidation marks malformed input rejected before any side effect.
	ClassValidation Class = "VALIDATION"
	// ClassStorage marks durable-sink failures that bound-retry then surface.
	ClassStorage Class = "STORAGE"
	// ClassDelivery marks remote-marker failures that are logged and dropped.
	ClassDelivery Class = "DELIVERY"
	// ClassUnknown marks errors outside the taxonomy.
	ClassUnknown Class = "UNKNOWN"
)

// ErrorClass maps codes to their failure family.
func (c Code) ErrorClass() Class {
	switch c {
	case CodeEventKindMissing,
		CodeEventKindMalformed,
		CodeEventIDMissing,
		CodeDuplicateEventID,
		CodeSessionIDMissing,
		CodeRoundIndexNegative,
		CodeGazeSampleMalformed:
		return ClassValidation

	case CodeStorageUnavailable,
		CodeStorageAppendFailed,
		CodeStorageQueryFailed,
		CodeRoundFileWriteFailed,
		CodeReportWriteFailed,
		CodeSessionSealed,
		CodeNotFound:
		return ClassStorage

	case CodeEndpointUnreachable,
		CodeEndpointRejected,
		CodeMarkerQueueFull,
		CodeRecordingControl:
		return ClassDelivery

	default:
		return ClassUnknown
	}
}
