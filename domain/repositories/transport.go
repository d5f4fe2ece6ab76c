package repositories

// Handlers are the four hooks the ingestion layer attaches to an agent
// transport. Unset hooks are simply not invoked; attaching a zero value
// detaches everything.
type Handlers struct {
	OnMessage func(data []byte)
	OnOpen    func()
	OnClose   func()
	OnError   func(err error)
}

// AgentTransport abstracts the socket that delivers agent envelopes. The
// transport preserves per-connection message order; the consumer never
// reorders.
type AgentTransport interface {
	// Send writes one text frame to the agent.
	Send(data []byte) error
	// SetHandlers installs the lifecycle and message hooks.
	SetHandlers(h Handlers)
	// URL returns the websocket address the transport is bound to.
	URL() string
	// Close tears the connection down.
	Close() error
}
