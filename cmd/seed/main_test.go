package main

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestDispatchUnknownCommand(t *testing.T) {
	a := &app{logger: zerolog.Nop()}
	err := a.dispatch(context.Background(), "tag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown command: tag")
}

func TestHandleRequestRejectsBadPayload(t *testing.T) {
	err := handleRequest(context.Background(), json.RawMessage(`"run"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal event")
}

func TestPrintSchemas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSchemas(&buf))

	out := buf.String()
	assert.Contains(t, out, "# Transaction")
	assert.Contains(t, out, "# Course\n")
	assert.Contains(t, out, "# CourseProgress")
	assert.Contains(t, out, `"completedLessons"`)
}

func TestRootCommandHasSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "reset", "create-tables", "load", "status", "schema"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestSchemaCommand(t *testing.T) {
	root := newRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"schema"})

	require.NoError(t, root.Execute())
	assert.Contains(t, buf.String(), `"instructor"`)
}
