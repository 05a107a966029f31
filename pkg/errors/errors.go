package errors

import "fmt"

// Common error types.
var (
	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigDirectory   = fmt.Errorf("failed to create config directory")
	ErrConfigFileCreate  = fmt.Errorf("failed to create config file")
	ErrConfigFileRename  = fmt.Errorf("failed to replace config file")

	// Singer message errors.
	ErrUnknownMessageType = fmt.Errorf("unknown message type")
	ErrMessageMissingKey  = fmt.Errorf("message is missing a required key")
	ErrLineTooLong        = fmt.Errorf("input line exceeds maximum length")

	// Schema and record errors.
	ErrSchemaInvalid = fmt.Errorf("schema is invalid")
	ErrRecordInvalid = fmt.Errorf("record does not conform to schema")

	// Batch errors.
	ErrBatchTooLarge = fmt.Errorf("a single record exceeds the request size limit")
	ErrBatchEmpty    = fmt.Errorf("cannot serialize an empty batch")

	// Gate errors.
	ErrGateRejected    = fmt.Errorf("gate rejected the batch")
	ErrGateUnreachable = fmt.Errorf("error connecting to the gate")

	// Spool errors.
	ErrSpoolUpload    = fmt.Errorf("failed to upload batch to spool storage")
	ErrSpoolNotify    = fmt.Errorf("failed to notify spool of uploaded batch")
	ErrSpoolDirectory = fmt.Errorf("spool staging directory cannot be empty")

	// Hook errors.
	ErrHookTypeEmpty = fmt.Errorf("hook type cannot be empty")
	ErrHookExecution = fmt.Errorf("error executing hook")
	ErrHookScript    = fmt.Errorf("hook script error")
	ErrHookLoad      = fmt.Errorf("failed to load hook")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
