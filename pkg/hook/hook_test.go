package hook

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequest(t *testing.T) {
	in := strings.NewReader(`{"event":"edit","workspace_root":"/work","path":"a.go","old_span":"foo","new_span":"foobar"}`)

	req, err := ReadRequest(in)
	require.NoError(t, err)

	assert.Equal(t, EventEdit, req.Event)
	assert.Equal(t, "/work", req.WorkspaceRoot)
	assert.Equal(t, "a.go", req.Path)
	assert.Equal(t, 3, req.Delta())
}

func TestReadRequest_Malformed(t *testing.T) {
	_, err := ReadRequest(strings.NewReader("not json"))
	assert.Error(t, err)
}

func TestRequest_Delta(t *testing.T) {
	assert.Equal(t, -4, (&Request{OldSpan: "abcdef", NewSpan: "ab"}).Delta())
	assert.Equal(t, 0, (&Request{OldSpan: "same", NewSpan: "xxxx"}).Delta())
	assert.Equal(t, 5, (&Request{NewSpan: "added"}).Delta())
}

func TestRequest_Size(t *testing.T) {
	assert.Equal(t, 4096, (&Request{ByteLength: 4096, Content: "short"}).Size(), "explicit byte_length wins")
	assert.Equal(t, 5, (&Request{Content: "hello"}).Size())
	assert.Equal(t, 0, (&Request{}).Size())
}

func TestResponse_Write(t *testing.T) {
	var buf bytes.Buffer
	resp := &Response{Decision: DecisionBlock, AgentMessage: "keep going"}
	require.NoError(t, resp.Write(&buf))

	var decoded Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, DecisionBlock, decoded.Decision)
	assert.Equal(t, "keep going", decoded.AgentMessage)

	// Empty messages are omitted on the wire.
	assert.NotContains(t, buf.String(), "human_message")
}
