// Package hook runs user-supplied Tengo scripts at points of the record
// pipeline. A pre-record script can rewrite or drop records before
// validation; a post-batch script observes persisted batches.
package hook

import (
	"os"
	"sync"

	"github.com/cperrin88/gostitch/pkg/errors"
	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// TengoExecutor handles the execution of Tengo scripts.
type TengoExecutor struct {
	scripts map[HookType]string
	mutex   sync.RWMutex
}

// NewTengoExecutor creates a new Tengo script executor.
func NewTengoExecutor() *TengoExecutor {
	return &TengoExecutor{
		scripts: make(map[HookType]string),
	}
}

// ExecutePreRecord runs the pre-record script against one record. The script
// sees the globals `stream` and `record`; it may rewrite `record`, set
// `drop = true` to discard it, or set `err` to fail the run.
func (e *TengoExecutor) ExecutePreRecord(ctx RecordContext) (*RecordResult, error) {
	if !e.HasScript(PreRecord) {
		return &RecordResult{Record: ctx.Record}, nil
	}

	compiled, err := e.run(PreRecord, map[string]interface{}{
		"stream": ctx.Stream,
		"record": ctx.Record,
		"drop":   false,
	})
	if err != nil {
		return nil, err
	}

	if drop, ok := compiled.Get("drop").Value().(bool); ok && drop {
		return &RecordResult{Drop: true}, nil
	}

	record, ok := compiled.Get("record").Value().(map[string]interface{})
	if !ok {
		return nil, errors.Wrapf(errors.ErrHookScript, "%s: record is no longer a map", PreRecord)
	}
	return &RecordResult{Record: record}, nil
}

// ExecutePostBatch runs the post-batch script. The script sees the globals
// `stream`, `num_records` and `num_bytes`.
func (e *TengoExecutor) ExecutePostBatch(ctx BatchContext) error {
	if !e.HasScript(PostBatch) {
		return nil
	}

	_, err := e.run(PostBatch, map[string]interface{}{
		"stream":      ctx.Stream,
		"num_records": ctx.NumRecords,
		"num_bytes":   ctx.NumBytes,
	})
	return err
}

func (e *TengoExecutor) run(hookType HookType, vars map[string]interface{}) (*tengo.Compiled, error) {
	e.mutex.RLock()
	script := e.scripts[hookType]
	e.mutex.RUnlock()

	scriptInstance := tengo.NewScript([]byte(script))
	scriptInstance.SetImports(stdlib.GetModuleMap("fmt", "math", "text", "times"))

	for k, v := range vars {
		if err := scriptInstance.Add(k, v); err != nil {
			return nil, errors.Wrapf(errors.ErrHookExecution, "%s: %v", hookType, err)
		}
	}

	compiled, err := scriptInstance.Run()
	if err != nil {
		return nil, errors.Wrapf(errors.ErrHookExecution, "%s: %v", hookType, err)
	}

	if errVar := compiled.Get("err"); errVar != nil {
		switch v := errVar.Value().(type) {
		case error:
			return nil, errors.Wrap(errors.ErrHookScript, v.Error())
		case string:
			if v != "" {
				return nil, errors.Wrap(errors.ErrHookScript, v)
			}
		}
	}

	return compiled, nil
}

// AddScript adds or updates a script for the specified hook type.
func (e *TengoExecutor) AddScript(hookType HookType, script string) error {
	if hookType == "" {
		return errors.ErrHookTypeEmpty
	}
	e.mutex.Lock()
	defer e.mutex.Unlock()
	e.scripts[hookType] = script
	return nil
}

// AddScriptFile loads a script from disk for the specified hook type.
func (e *TengoExecutor) AddScriptFile(hookType HookType, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(errors.ErrHookLoad, "%s: %v", path, err)
	}
	return e.AddScript(hookType, string(content))
}

// RemoveScript removes the script for the specified hook type.
func (e *TengoExecutor) RemoveScript(hookType HookType) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	delete(e.scripts, hookType)
}

// HasScript checks if a script exists for the specified hook type.
func (e *TengoExecutor) HasScript(hookType HookType) bool {
	e.mutex.RLock()
	defer e.mutex.RUnlock()
	_, exists := e.scripts[hookType]
	return exists
}
