package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequest(t *testing.T) {
	req, err := NewRequest(1, MethodListTools, nil)
	require.NoError(t, err)

	data, err := json.Marshal(req)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, string(data))

	req, err = NewRequest(7, MethodListTools, PaginatedParams{Cursor: "next"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), req.ID)
	assert.JSONEq(t, `{"cursor":"next"}`, string(req.Params))

	_, err = NewRequest(2, "bad", make(chan int))
	assert.Error(t, err)
}

func TestNewNotificationHasNoID(t *testing.T) {
	n, err := NewNotification(MethodInitialized, nil)
	require.NoError(t, err)

	data, err := json.Marshal(n)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, string(data))
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "result", input: `{"jsonrpc":"2.0","id":1,"result":{}}`},
		{name: "null result", input: `{"jsonrpc":"2.0","id":1,"result":null}`},
		{name: "error", input: `{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"nope"}}`},
		{name: "notification", input: `{"jsonrpc":"2.0","method":"notifications/message","params":{}}`, wantErr: true},
		{name: "empty object", input: `{}`, wantErr: true},
		{name: "not json", input: `event: message`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				assert.False(t, IsResponse([]byte(tt.input)))
				return
			}
			require.NoError(t, err)
			assert.True(t, resp.HasID(1))
		})
	}
}

func TestResponseHasID(t *testing.T) {
	numeric := &Response{ID: json.RawMessage(`3`)}
	assert.True(t, numeric.HasID(3))
	assert.False(t, numeric.HasID(4))

	str := &Response{ID: json.RawMessage(`"3"`)}
	assert.True(t, str.HasID(3))

	missing := &Response{}
	assert.False(t, missing.HasID(0))
}

func TestResponseErrorAndResult(t *testing.T) {
	resp, err := ParseResponse([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"Method not found","data":{"m":"roots/list"}}}`))
	require.NoError(t, err)
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)
	assert.Equal(t, "rpc error -32601: Method not found", resp.Error.Error())
	assert.Error(t, resp.DecodeResult(&struct{}{}))

	resp, err = ParseResponse([]byte(`{"jsonrpc":"2.0","id":1,"result":{"protocolVersion":"2025-03-26","capabilities":{"tools":{"listChanged":true}},"serverInfo":{"name":"a","version":"1"}}}`))
	require.NoError(t, err)

	var init InitializeResult
	require.NoError(t, resp.DecodeResult(&init))
	assert.Equal(t, "a", init.ServerInfo.Name)
	assert.Equal(t, []string{"tools"}, init.Capabilities.Keys())
}

func TestToolKeepsSchemaOrder(t *testing.T) {
	var result ListToolsResult
	require.NoError(t, json.Unmarshal([]byte(`{"tools":[{"name":"add","extra":1,"inputSchema":{"type":"object","required":["b","a"],"properties":{"b":{},"a":{}}}}]}`), &result))

	require.Len(t, result.Tools, 1)
	props, ok := result.Tools[0].InputSchema.Get("properties")
	require.True(t, ok)
	assert.Equal(t, []string{"b", "a"}, props.Keys())
}

func TestValidateResponseEnvelope(t *testing.T) {
	assert.NoError(t, ValidateResponseEnvelope([]byte(`{"jsonrpc":"2.0","id":1,"result":{"tools":[]}}`)))
	assert.NoError(t, ValidateResponseEnvelope([]byte(`{"jsonrpc":"2.0","id":"1","error":{"code":-1,"message":"x"}}`)))

	assert.Error(t, ValidateResponseEnvelope([]byte(`{"jsonrpc":"1.0","id":1,"result":{}}`)))
	assert.Error(t, ValidateResponseEnvelope([]byte(`{"jsonrpc":"2.0","id":1}`)))
	assert.Error(t, ValidateResponseEnvelope([]byte(`{"jsonrpc":"2.0","id":1,"result":{},"error":{"code":1,"message":"x"}}`)))
	assert.Error(t, ValidateResponseEnvelope([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":"x","message":"x"}}`)))
	assert.Error(t, ValidateResponseEnvelope([]byte(`not json`)))
}
