package hook

// HookType represents the type of hook.
type HookType string

// Supported hook types.
const (
	PreRecord HookType = "pre-record"
	PostBatch HookType = "post-batch"
)

// RecordContext is passed to pre-record hooks.
type RecordContext struct {
	Stream string
	Record map[string]interface{}
}

// BatchContext is passed to post-batch hooks after a batch is persisted.
type BatchContext struct {
	Stream     string
	NumRecords int
	NumBytes   int
}

// RecordResult is what a pre-record hook did to a record.
type RecordResult struct {
	// Record is the possibly rewritten record.
	Record map[string]interface{}

	// Drop is true when the hook discarded the record.
	Drop bool
}

// Executor defines the interface for running hook scripts.
type Executor interface {
	// ExecutePreRecord runs the pre-record hook against one record.
	ExecutePreRecord(ctx RecordContext) (*RecordResult, error)

	// ExecutePostBatch runs the post-batch hook after a batch was persisted.
	ExecutePostBatch(ctx BatchContext) error

	// HasScript checks if a script exists for the specified hook type.
	HasScript(hookType HookType) bool
}
