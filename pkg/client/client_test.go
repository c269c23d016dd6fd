package client

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/mcp-fingerprint/internal/testutil"
	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
)

func newClient(t *testing.T, endpoint string, mode transport.SessionMode, opts ...Option) *Client {
	t.Helper()
	cfg := transport.DefaultConfig(endpoint)
	cfg.SessionMode = mode
	cfg.RequestTimeout = 500 * time.Millisecond
	tr, err := transport.New(cfg)
	require.NoError(t, err)
	return New(tr, opts...)
}

func TestRetrieveDescriptor(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithServerInfo("calc", "2.1.0"),
		testutil.WithCapabilities(`{"tools":{"listChanged":true},"prompts":{}}`),
		testutil.WithTools(
			`{"name":"add","description":"Add two numbers","inputSchema":{"type":"object"},"annotations":{"x":1}}`,
			`{"name":"sub","inputSchema":{"type":"object"}}`,
		),
		testutil.WithResources(`{"uri":"file:///readme","name":"readme","mimeType":"text/plain"}`),
		testutil.WithPrompts(`{"name":"greet","arguments":[{"name":"who"}]}`),
		testutil.WithRoots(`{"uri":"file:///work","name":"work"}`),
		testutil.WithRequireSession(true),
	)

	c := newClient(t, srv.URL, transport.SessionModeHeader)
	d := c.RetrieveDescriptor(context.Background())

	require.True(t, d.Reachable(), d.Error)
	assert.Empty(t, d.Failures)
	assert.Equal(t, srv.URL, d.Endpoint)
	assert.Equal(t, "calc", d.ServerInfo.Name)
	assert.Equal(t, "2.1.0", d.ServerInfo.Version)
	assert.Equal(t, "2025-03-26", d.ProtocolVersion)
	assert.Equal(t, []string{"tools", "prompts"}, d.Capabilities.Keys())

	require.Len(t, d.Tools, 2)
	assert.Equal(t, "add", d.Tools[0].Name)
	assert.Equal(t, "Add two numbers", d.Tools[0].Description)
	assert.Equal(t, `{"type":"object"}`, d.Tools[0].InputSchema.String())

	require.Len(t, d.Resources, 1)
	assert.Equal(t, "file:///readme", d.Resources[0].URITemplate)
	require.Len(t, d.Prompts, 1)
	assert.Equal(t, 1, d.Prompts[0].Arguments.Len())
	require.Len(t, d.Roots, 1)
	assert.Equal(t, "work", d.Roots[0].Label())
	assert.False(t, d.Normalized)

	assert.Equal(t, []string{"initialize", "tools/list", "resources/list", "prompts/list", "roots/list", "ping"}, srv.Methods())
	assert.Equal(t, StateDone, c.State())
	assert.Equal(t, "fake-session", c.SessionID())
}

func TestRetrieveDescriptorRequestShape(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	c := newClient(t, srv.URL, transport.SessionModeHeader, WithName("probe"), WithVersion("9.9.9"), WithProtocolVersion("2024-11-05"))
	c.RetrieveDescriptor(context.Background())

	reqs := srv.Requests()
	require.NotEmpty(t, reqs)
	for i, r := range reqs {
		assert.JSONEq(t, string(rune('1'+i)), string(r.ID), "ids are sequential from 1")
	}

	var params map[string]interface{}
	require.NoError(t, json.Unmarshal(reqs[0].Params, &params))
	assert.Equal(t, "2024-11-05", params["protocolVersion"])
	assert.Equal(t, map[string]interface{}{}, params["capabilities"])
	assert.Equal(t, map[string]interface{}{"name": "probe", "version": "9.9.9"}, params["clientInfo"])

	assert.Equal(t, "", reqs[0].SessionID)
	for _, r := range reqs[1:] {
		assert.Equal(t, "fake-session", r.SessionID, r.Method)
	}
}

func TestRetrieveDescriptorEventIDSessions(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithSessionMode(testutil.SessionEventID),
		testutil.WithSessionID("legacy42"),
		testutil.WithRequireSession(true),
		testutil.WithTools(`{"name":"add","inputSchema":{}}`),
	)

	c := newClient(t, srv.URL, transport.SessionModeEventID)
	d := c.RetrieveDescriptor(context.Background())

	require.True(t, d.Reachable(), d.Error)
	assert.Empty(t, d.Failures)
	assert.Len(t, d.Tools, 1)
	assert.Equal(t, "legacy42", c.SessionID())
}

func TestRetrieveDescriptorStreamingBodies(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithStreaming(true),
		testutil.WithPrompts(`{"name":"p"}`),
	)

	d := newClient(t, srv.URL, transport.SessionModeHeader).RetrieveDescriptor(context.Background())
	require.True(t, d.Reachable(), d.Error)
	assert.Len(t, d.Prompts, 1)
	assert.True(t, d.Prompts[0].Arguments.IsNull())
}

func TestInitializeFailureShortCircuits(t *testing.T) {
	for name, failure := range map[string]testutil.Failure{
		"rpc error":   testutil.FailRPCError,
		"http status": testutil.FailHTTPStatus,
		"malformed":   testutil.FailMalformed,
	} {
		t.Run(name, func(t *testing.T) {
			srv := testutil.NewFakeServer(t, testutil.WithFailure("initialize", failure))

			c := newClient(t, srv.URL, transport.SessionModeHeader)
			d := c.RetrieveDescriptor(context.Background())

			assert.False(t, d.Reachable())
			assert.NotEmpty(t, d.Error)
			assert.Nil(t, d.Tools)
			assert.Nil(t, d.Resources)
			assert.Nil(t, d.Prompts)
			assert.Nil(t, d.Roots)
			assert.Equal(t, []string{"initialize"}, srv.Methods(), "nothing is sent after a failed initialize")
			assert.Equal(t, StateDone, c.State())
			assert.False(t, c.Ready())
		})
	}
}

func TestUnreachableServer(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	endpoint := srv.URL
	srv.Close()

	d := newClient(t, endpoint, transport.SessionModeHeader).RetrieveDescriptor(context.Background())
	assert.False(t, d.Reachable())
	assert.Contains(t, d.Error, "Failed to connect")
}

func TestPartialFailureIsolation(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithTools(`{"name":"a"}`),
		testutil.WithResources(`{"uri":"r://1","name":"r1"}`),
		testutil.WithPrompts(`{"name":"p1"}`),
		testutil.WithFailure("resources/list", testutil.FailHang),
		testutil.WithFailure("roots/list", testutil.FailRPCError),
		testutil.WithFailure("ping", testutil.FailHTTPStatus),
	)

	d := newClient(t, srv.URL, transport.SessionModeHeader).RetrieveDescriptor(context.Background())

	require.True(t, d.Reachable())
	assert.Len(t, d.Tools, 1)
	assert.Nil(t, d.Resources)
	assert.Len(t, d.Prompts, 1)
	assert.Nil(t, d.Roots)

	require.Len(t, d.Failures, 3)
	assert.Equal(t, protocol.MethodListResources, d.Failures[0].Method)
	assert.Contains(t, d.Failures[0].Error, "timed out")
	assert.Equal(t, protocol.MethodListRoots, d.Failures[1].Method)
	assert.Equal(t, protocol.MethodPing, d.Failures[2].Method)
	assert.True(t, d.FailedMethod(protocol.MethodPing))
	assert.False(t, d.FailedMethod(protocol.MethodListTools))

	assert.Equal(t, []string{"initialize", "tools/list", "resources/list", "prompts/list", "roots/list", "ping"}, srv.Methods())
}

func TestEmptyListsAreNotFailures(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	d := newClient(t, srv.URL, transport.SessionModeHeader).RetrieveDescriptor(context.Background())

	require.True(t, d.Reachable())
	assert.NotNil(t, d.Tools)
	assert.Empty(t, d.Tools)
	assert.NotNil(t, d.Roots)
	assert.Empty(t, d.Failures)
}

func TestListBeforeInitializeFailsFast(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	c := newClient(t, srv.URL, transport.SessionModeHeader)
	ctx := context.Background()

	calls := map[string]func() error{
		protocol.MethodListTools:     func() error { _, err := c.ListTools(ctx); return err },
		protocol.MethodListResources: func() error { _, err := c.ListResources(ctx); return err },
		protocol.MethodListPrompts:   func() error { _, err := c.ListPrompts(ctx); return err },
		protocol.MethodListRoots:     func() error { _, err := c.ListRoots(ctx); return err },
	}
	for method, call := range calls {
		err := call()
		require.Error(t, err, method)
		assert.True(t, mcperrors.IsCode(err, mcperrors.CodeServerNotReady), method)
		assert.True(t, mcperrors.IsCategory(err, mcperrors.CategoryState))
		assert.Contains(t, err.Error(), method)
	}
	assert.Empty(t, srv.Requests(), "nothing is sent before initialize")

	require.NoError(t, c.Ping(ctx), "ping is allowed before initialize")
	assert.Equal(t, []string{"ping"}, srv.Methods())
	assert.Equal(t, StateCreated, c.State())
}

func TestListAfterFailedInitializeIsNotReady(t *testing.T) {
	srv := testutil.NewFakeServer(t, testutil.WithFailure("initialize", testutil.FailRPCError))
	c := newClient(t, srv.URL, transport.SessionModeHeader)

	_, err := c.Initialize(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateErrored, c.State())
	assert.True(t, mcperrors.IsRemote(err))

	_, err = c.ListTools(context.Background())
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeServerNotReady))
}

func TestInitializeTwice(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	c := newClient(t, srv.URL, transport.SessionModeHeader)

	result, err := c.Initialize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fake-server", result.ServerInfo.Name)
	assert.Same(t, result, c.InitializeResult())
	assert.Equal(t, StateInitialized, c.State())

	_, err = c.Initialize(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeInvalidSequence))
	assert.Equal(t, []string{"initialize"}, srv.Methods())

	d := c.RetrieveDescriptor(context.Background())
	assert.False(t, d.Reachable(), "a used client cannot retrieve again")
}

func TestPagination(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithPageSize(2),
		testutil.WithTools(`{"name":"a"}`, `{"name":"b"}`, `{"name":"c"}`, `{"name":"d"}`, `{"name":"e"}`),
	)
	c := newClient(t, srv.URL, transport.SessionModeHeader)
	_, err := c.Initialize(context.Background())
	require.NoError(t, err)

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 5)
	assert.Equal(t, "e", tools[4].Name)

	reqs := srv.Requests()
	require.Len(t, reqs, 4)
	assert.Empty(t, reqs[1].Params)
	assert.JSONEq(t, `{"cursor":"page-2"}`, string(reqs[2].Params))
	assert.JSONEq(t, `{"cursor":"page-4"}`, string(reqs[3].Params))
}

func TestPaginationPageLimit(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithPageSize(1),
		testutil.WithTools(`{"name":"a"}`, `{"name":"b"}`, `{"name":"c"}`),
	)
	c := newClient(t, srv.URL, transport.SessionModeHeader, WithMaxPages(2))
	_, err := c.Initialize(context.Background())
	require.NoError(t, err)

	_, err = c.ListTools(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeProtocolError))
	assert.Contains(t, err.Error(), "more than 2 pages")
}

func TestPaginationRepeatedCursor(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithTools(`{"name":"a"}`),
		testutil.WithPrompts(`{"name":"p1"}`),
		testutil.WithRepeatedCursor("tools/list", "loop"),
	)

	d := newClient(t, srv.URL, transport.SessionModeHeader).RetrieveDescriptor(context.Background())

	require.True(t, d.Reachable(), d.Error)
	assert.Nil(t, d.Tools)
	assert.Len(t, d.Prompts, 1, "later listings still run")
	require.Len(t, d.Failures, 1)
	assert.Equal(t, protocol.MethodListTools, d.Failures[0].Method)
	assert.Contains(t, d.Failures[0].Error, `repeated cursor "loop"`)

	assert.Equal(t, []string{"initialize", "tools/list", "tools/list", "resources/list", "prompts/list", "roots/list", "ping"}, srv.Methods())
	assert.JSONEq(t, `{"cursor":"loop"}`, string(srv.Requests()[2].Params))
}

func TestListRootsMakesOneRequest(t *testing.T) {
	srv := testutil.NewFakeServer(t,
		testutil.WithRoots(`{"uri":"file:///work","name":"work"}`, `{"uri":"file:///home"}`),
		testutil.WithRepeatedCursor("roots/list", "more"),
	)
	c := newClient(t, srv.URL, transport.SessionModeHeader)

	_, err := c.ListRoots(context.Background())
	require.Error(t, err)
	assert.True(t, mcperrors.IsCode(err, mcperrors.CodeServerNotReady))

	_, err = c.Initialize(context.Background())
	require.NoError(t, err)

	roots, err := c.ListRoots(context.Background())
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, "file:///home", roots[1].URI)

	assert.Equal(t, []string{"initialize", "roots/list"}, srv.Methods(), "nextCursor is not followed")
	assert.Empty(t, srv.Requests()[1].Params)
}

func TestInitializedNotification(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	c := newClient(t, srv.URL, transport.SessionModeHeader, WithInitializedNotification(true))
	c.RetrieveDescriptor(context.Background())

	reqs := srv.Requests()
	require.GreaterOrEqual(t, len(reqs), 2)
	assert.Equal(t, protocol.MethodInitialized, reqs[1].Method)
	assert.Empty(t, reqs[1].ID)
	assert.JSONEq(t, "2", string(reqs[2].ID), "notifications consume no id")
}

func TestNoNotificationByDefault(t *testing.T) {
	srv := testutil.NewFakeServer(t)
	newClient(t, srv.URL, transport.SessionModeHeader).RetrieveDescriptor(context.Background())
	assert.NotContains(t, srv.Methods(), protocol.MethodInitialized)
}

func TestRetrieveDescriptorDoesNotLeakGoroutines(t *testing.T) {
	srv := testutil.NewFakeServer(t, testutil.WithTools(`{"name":"a"}`))

	detector := testutil.NewGoroutineLeakDetector(t).
		SetAllowedGrowth(4). // idle keep-alive connections of the shared transport
		SetStabilizeDelay(100 * time.Millisecond)
	detector.Start()

	for i := 0; i < 5; i++ {
		d := newClient(t, srv.URL, transport.SessionModeHeader).RetrieveDescriptor(context.Background())
		require.True(t, d.Reachable())
	}
	srv.CloseClientConnections()

	detector.Check()
}
