package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cperrin88/gostitch/pkg/config"
	"github.com/cperrin88/gostitch/test/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunEndToEnd(t *testing.T) {
	gate := testutil.NewFakeGate()
	defer gate.Close()

	cfg, err := config.LoadConfig(testutil.WriteConfig(t, gate.URL()))
	require.NoError(t, err)

	var stateOut bytes.Buffer
	orch, err := buildOrchestrator(cfg, false, &stateOut)
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"type":"SCHEMA","stream":"users","schema":{"type":"object","properties":{"id":{"type":"string"}}},"key_properties":["id"]}`,
		`{"type":"RECORD","stream":"users","record":{"id":"u1"}}`,
		`{"type":"RECORD","stream":"users","record":{"id":"u2"}}`,
		`{"type":"STATE","value":{"bookmarks":{"users":"u2"}}}`,
	}, "\n")

	require.NoError(t, orch.Run(context.Background(), strings.NewReader(input)))

	bodies := gate.Bodies()
	require.Len(t, bodies, 1)

	var body struct {
		TableName string                   `json:"table_name"`
		KeyNames  []string                 `json:"key_names"`
		Messages  []map[string]interface{} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(bodies[0], &body))
	assert.Equal(t, "users", body.TableName)
	assert.Equal(t, []string{"id"}, body.KeyNames)
	assert.Len(t, body.Messages, 2)

	assert.Equal(t, "{\"bookmarks\":{\"users\":\"u2\"}}\n", stateOut.String())
}

func TestRunEndToEnd_DryRun(t *testing.T) {
	gate := testutil.NewFakeGate()
	defer gate.Close()

	cfg, err := config.LoadConfig(testutil.WriteConfig(t, gate.URL()))
	require.NoError(t, err)

	var stateOut bytes.Buffer
	orch, err := buildOrchestrator(cfg, true, &stateOut)
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"type":"SCHEMA","stream":"users","schema":{"type":"object"},"key_properties":[]}`,
		`{"type":"RECORD","stream":"users","record":{"id":"u1"}}`,
		`{"type":"STATE","value":{"n":1}}`,
	}, "\n")

	require.NoError(t, orch.Run(context.Background(), strings.NewReader(input)))

	assert.Empty(t, gate.Bodies(), "dry run must not reach the gate")
	assert.Equal(t, "{\"n\":1}\n", stateOut.String())
}

func TestBuildHooks_MissingScriptFile(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Hooks.PreRecord = "/does/not/exist.tengo"

	_, err := buildHooks(cfg)
	assert.Error(t, err)
}
