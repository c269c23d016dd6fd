package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/looplab/fsm"

	"github.com/ajitpratap0/mcp-fingerprint/pkg/descriptor"
	mcperrors "github.com/ajitpratap0/mcp-fingerprint/pkg/errors"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/logging"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/protocol"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/transport"
	"github.com/ajitpratap0/mcp-fingerprint/pkg/value"
)

// Session states.
const (
	StateCreated      = "created"
	StateInitializing = "initializing"
	StateInitialized  = "initialized"
	StateListing      = "listing"
	StateDone         = "done"
	StateErrored      = "errored"
)

const (
	eventInitialize    = "initialize"
	eventInitSucceeded = "init_succeeded"
	eventInitFailed    = "init_failed"
	eventList          = "list"
	eventFinish        = "finish"
)

// Client drives one session against one server. It is not meant to be shared
// between endpoints; create one per endpoint.
type Client struct {
	transport transport.Transport
	logger    logging.Logger
	machine   *fsm.FSM

	name            string
	version         string
	protocolVersion string
	sendInitialized bool
	maxPages        int

	mu     sync.RWMutex
	result *protocol.InitializeResult
}

// Option configures a Client.
type Option func(*Client)

// WithName sets the client name sent in clientInfo
func WithName(name string) Option {
	return func(c *Client) {
		c.name = name
	}
}

// WithVersion sets the client version sent in clientInfo
func WithVersion(version string) Option {
	return func(c *Client) {
		c.version = version
	}
}

// WithProtocolVersion sets the protocol revision requested on initialize
func WithProtocolVersion(version string) Option {
	return func(c *Client) {
		c.protocolVersion = version
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithInitializedNotification makes Initialize send
// notifications/initialized after a successful handshake.
func WithInitializedNotification(enabled bool) Option {
	return func(c *Client) {
		c.sendInitialized = enabled
	}
}

// WithMaxPages bounds how many pages one list call follows.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxPages = n
		}
	}
}

// New creates a client that talks through t.
func New(t transport.Transport, options ...Option) *Client {
	c := &Client{
		transport:       t,
		logger:          logging.NewNop(),
		name:            "mcp-fingerprint",
		version:         "1.0.0",
		protocolVersion: protocol.ProtocolRevision,
		maxPages:        DefaultMaxPages,
	}
	for _, option := range options {
		option(c)
	}
	c.logger = c.logger.WithFields(
		logging.String("component", "client"),
		logging.String("endpoint", t.Endpoint()),
	)

	c.machine = fsm.NewFSM(
		StateCreated,
		fsm.Events{
			{Name: eventInitialize, Src: []string{StateCreated}, Dst: StateInitializing},
			{Name: eventInitSucceeded, Src: []string{StateInitializing}, Dst: StateInitialized},
			{Name: eventInitFailed, Src: []string{StateInitializing}, Dst: StateErrored},
			{Name: eventList, Src: []string{StateInitialized}, Dst: StateListing},
			{Name: eventFinish, Src: []string{StateInitialized, StateListing, StateErrored}, Dst: StateDone},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				c.logger.Debug("session state changed",
					logging.String("event", e.Event),
					logging.String("from", e.Src),
					logging.String("to", e.Dst))
			},
		},
	)
	return c
}

// State returns the current session state.
func (c *Client) State() string { return c.machine.Current() }

// SessionID returns the session token held by the transport.
func (c *Client) SessionID() string { return c.transport.SessionID() }

// Endpoint returns the server URL.
func (c *Client) Endpoint() string { return c.transport.Endpoint() }

// InitializeResult returns the handshake result, or nil before a successful
// initialize.
func (c *Client) InitializeResult() *protocol.InitializeResult {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.result
}

// Ready reports whether listing calls may be sent.
func (c *Client) Ready() bool {
	switch c.machine.Current() {
	case StateInitialized, StateListing:
		return true
	case StateDone:
		return c.InitializeResult() != nil
	default:
		return false
	}
}

// fire moves the state machine. Transitions run even when ctx is cancelled
// so a failed call still settles the session.
func (c *Client) fire(ctx context.Context, event string) error {
	if err := c.machine.Event(context.WithoutCancel(ctx), event); err != nil {
		return mcperrors.InvalidSequence(
			fmt.Sprintf("a state allowing %s", event),
			c.machine.Current(),
		).WithDetail(err.Error())
	}
	return nil
}

// call sends one request and turns an error response into an MCPError.
func (c *Client) call(ctx context.Context, method string, params interface{}) (*protocol.Response, error) {
	resp, err := c.transport.Invoke(ctx, method, params)
	if err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, mcperrors.ForCall(mcperrors.FromJSONRPCError(resp.Error), method, c.transport.Endpoint(), 0)
	}
	return resp, nil
}

func (c *Client) decode(method string, resp *protocol.Response, v interface{}) error {
	if err := resp.DecodeResult(v); err != nil {
		return mcperrors.ForCall(mcperrors.MalformedResponse(method, "", err), method, c.transport.Endpoint(), 0)
	}
	return nil
}

// Initialize performs the handshake. It may be called once per client.
func (c *Client) Initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	if err := c.fire(ctx, eventInitialize); err != nil {
		return nil, err
	}

	result, err := c.initialize(ctx)
	if err != nil {
		c.logger.WithError(err).Warn("initialize failed")
		_ = c.fire(ctx, eventInitFailed)
		return nil, err
	}

	c.mu.Lock()
	c.result = result
	c.mu.Unlock()
	if err := c.fire(ctx, eventInitSucceeded); err != nil {
		return nil, err
	}

	c.logger.Info("session initialized",
		logging.String("server", result.ServerInfo.Name),
		logging.String("server_version", result.ServerInfo.Version),
		logging.String("protocol_version", result.ProtocolVersion),
		logging.Bool("session", c.transport.SessionID() != ""))

	if c.sendInitialized {
		if err := c.transport.Notify(ctx, protocol.MethodInitialized, nil); err != nil {
			c.logger.WithError(err).Warn("initialized notification failed")
		}
	}
	return result, nil
}

func (c *Client) initialize(ctx context.Context) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ProtocolVersion: c.protocolVersion,
		Capabilities:    value.EmptyObject(),
		ClientInfo:      protocol.Implementation{Name: c.name, Version: c.version},
	}
	resp, err := c.call(ctx, protocol.MethodInitialize, params)
	if err != nil {
		return nil, err
	}

	var result protocol.InitializeResult
	if err := c.decode(protocol.MethodInitialize, resp, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Ping checks that the server answers. It is allowed in any state.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.call(ctx, protocol.MethodPing, nil)
	return err
}

func (c *Client) requireReady(method string) error {
	if c.Ready() {
		return nil
	}
	return mcperrors.ServerNotReady(method, c.machine.Current())
}

// ListTools returns every tool the server lists.
func (c *Client) ListTools(ctx context.Context) ([]protocol.Tool, error) {
	return listAll(ctx, c, protocol.MethodListTools, func(resp *protocol.Response) ([]protocol.Tool, string, error) {
		var page protocol.ListToolsResult
		err := c.decode(protocol.MethodListTools, resp, &page)
		return page.Tools, page.NextCursor, err
	})
}

// ListResources returns every resource the server lists.
func (c *Client) ListResources(ctx context.Context) ([]protocol.Resource, error) {
	return listAll(ctx, c, protocol.MethodListResources, func(resp *protocol.Response) ([]protocol.Resource, string, error) {
		var page protocol.ListResourcesResult
		err := c.decode(protocol.MethodListResources, resp, &page)
		return page.Resources, page.NextCursor, err
	})
}

// ListPrompts returns every prompt the server lists.
func (c *Client) ListPrompts(ctx context.Context) ([]protocol.Prompt, error) {
	return listAll(ctx, c, protocol.MethodListPrompts, func(resp *protocol.Response) ([]protocol.Prompt, string, error) {
		var page protocol.ListPromptsResult
		err := c.decode(protocol.MethodListPrompts, resp, &page)
		return page.Prompts, page.NextCursor, err
	})
}

// ListRoots returns the roots the server lists. roots/list is not paginated,
// so exactly one request is made.
func (c *Client) ListRoots(ctx context.Context) ([]protocol.Root, error) {
	if err := c.requireReady(protocol.MethodListRoots); err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, protocol.MethodListRoots, nil)
	if err != nil {
		return nil, err
	}

	var result protocol.ListRootsResult
	if err := c.decode(protocol.MethodListRoots, resp, &result); err != nil {
		return nil, err
	}
	if result.Roots == nil {
		return []protocol.Root{}, nil
	}
	return result.Roots, nil
}

// RetrieveDescriptor runs the discovery sequence: initialize, then the four
// listings and a ping. It never returns an error. A failed initialize yields
// a descriptor with only Error set; any later failure is recorded in
// Failures and leaves that field unset. The result is not normalized.
func (c *Client) RetrieveDescriptor(ctx context.Context) *descriptor.Descriptor {
	endpoint := c.transport.Endpoint()

	result, err := c.Initialize(ctx)
	if err != nil {
		_ = c.fire(ctx, eventFinish)
		return descriptor.Failed(endpoint, err)
	}

	d := &descriptor.Descriptor{Endpoint: endpoint}
	d.ApplyInitialize(result)

	_ = c.fire(ctx, eventList)

	if tools, err := c.ListTools(ctx); err != nil {
		c.absorb(d, protocol.MethodListTools, err)
	} else {
		d.Tools = convert(tools, descriptor.ToolFromWire)
	}

	if resources, err := c.ListResources(ctx); err != nil {
		c.absorb(d, protocol.MethodListResources, err)
	} else {
		d.Resources = convert(resources, descriptor.ResourceFromWire)
	}

	if prompts, err := c.ListPrompts(ctx); err != nil {
		c.absorb(d, protocol.MethodListPrompts, err)
	} else {
		d.Prompts = convert(prompts, descriptor.PromptFromWire)
	}

	if roots, err := c.ListRoots(ctx); err != nil {
		c.absorb(d, protocol.MethodListRoots, err)
	} else {
		d.Roots = convert(roots, descriptor.RootFromWire)
	}

	if err := c.Ping(ctx); err != nil {
		c.absorb(d, protocol.MethodPing, err)
	}

	_ = c.fire(ctx, eventFinish)

	c.logger.Debug("descriptor retrieved",
		logging.Int("tools", len(d.Tools)),
		logging.Int("resources", len(d.Resources)),
		logging.Int("prompts", len(d.Prompts)),
		logging.Int("roots", len(d.Roots)),
		logging.Int("failures", len(d.Failures)))
	return d
}

func (c *Client) absorb(d *descriptor.Descriptor, method string, err error) {
	d.RecordFailure(method, err)
	c.logger.WithError(err).Warn("discovery call failed", logging.String("method", method))
}

func convert[W, S any](items []W, fn func(W) S) []S {
	out := make([]S, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}
