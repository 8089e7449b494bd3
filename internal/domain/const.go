package domain

const (
	// Journal constants
	REVISION_SUBJECT_PREFIX = "history"
	REVISION_STREAM_NAME    = "HISTORY"

	// Service name reported to logs and sentry
	SERVICE_NAME = "ff-history"
)
