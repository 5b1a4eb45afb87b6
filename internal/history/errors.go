package history

import "codeberg.org/mutker/dashmon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")
	ErrInvalidBatch  = errors.ErrorCode("history_invalid_batch")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("history_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("history_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("history_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("history_transaction_failed")
	ErrQueryFailed            = errors.ErrorCode("history_query_failed")

	// Storage Errors
	ErrStorageInit  = errors.ErrInitHistory
	ErrStorageClose = errors.ErrCloseHistory

	// Recording Errors
	ErrRecordFailed   = errors.ErrRecordHistory
	ErrInvalidSample  = errors.ErrorCode("history_invalid_sample")
	ErrRecorderClosed = errors.ErrorCode("history_recorder_closed")

	ErrOperationTimeout = errors.ErrTimeout
)
