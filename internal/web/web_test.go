package web

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDefaultPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, DefaultPage()))

	out := buf.String()
	assert.Contains(t, out, "<title>MovieRecs AI</title>")
	assert.Contains(t, out, `placeholder="Enter a number or movie details..."`)
	assert.Contains(t, out, `/api/chat/stream`)
}

func TestRenderEscapesSessionID(t *testing.T) {
	p := DefaultPage()
	p.SessionID = `"><script>alert(1)</script>`

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, p))
	assert.NotContains(t, buf.String(), "<script>alert(1)</script>")
}

func TestPageKeepsInputDisabledWhileStreaming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, DefaultPage()))
	out := buf.String()

	assert.Contains(t, out, `$("input").disabled = state.loading;`)
	assert.Contains(t, out, `$("loading").hidden = !state.loading || state.streaming;`)
	assert.Contains(t, out, "state.streaming = true;")
	assert.NotContains(t, out, "state.messages.push(live);\n        state.loading = false;")
}
