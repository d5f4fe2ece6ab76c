package usecase

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/conversation"
	"github.com/vinylgrove/companion/domain/repositories"
	"github.com/vinylgrove/companion/internal/observability"
	"github.com/vinylgrove/companion/internal/protocol"
)

const (
	// DefaultTurnTimeout expires a turn that stops emitting frames
	// without ever signalling completion.
	DefaultTurnTimeout = 2 * time.Minute

	watchdogInterval = 15 * time.Second
)

// Ingestor owns the agent transport: it decodes inbound envelopes into
// frames and dispatches the resulting events into the conversation store.
// It is the only component that writes stream events.
type Ingestor struct {
	transport repositories.AgentTransport
	store     *conversation.Store
	endpoint  string
	logger    *zap.Logger
	metrics   *observability.Metrics

	onProcessingDone func()
	onTurnCommitted  func(conversation.Message)
	turnTimeout      time.Duration

	mu         sync.Mutex
	processing bool
	lastFrame  map[string]time.Time

	stopWatchdog chan struct{}
	watchdogOnce sync.Once
}

// IngestorOption customizes an Ingestor.
type IngestorOption func(*Ingestor)

// WithProcessingDone registers the callback fired when a turn finishes,
// successfully or via the stall watchdog. The rest of the application
// uses it to re-enable input.
func WithProcessingDone(fn func()) IngestorOption {
	return func(in *Ingestor) { in.onProcessingDone = fn }
}

// WithTurnObserver registers the callback fired with each committed
// assistant message. The game-state extractor hangs off this hook.
func WithTurnObserver(fn func(conversation.Message)) IngestorOption {
	return func(in *Ingestor) { in.onTurnCommitted = fn }
}

// WithTurnTimeout overrides the stall watchdog window.
func WithTurnTimeout(d time.Duration) IngestorOption {
	return func(in *Ingestor) { in.turnTimeout = d }
}

// WithIngestMetrics attaches metrics collectors.
func WithIngestMetrics(m *observability.Metrics) IngestorOption {
	return func(in *Ingestor) { in.metrics = m }
}

// NewIngestor wires a transport to a conversation store. endpoint is the
// agent's HTTP base URL, used in outbound chat request envelopes.
func NewIngestor(t repositories.AgentTransport, store *conversation.Store, endpoint string, logger *zap.Logger, opts ...IngestorOption) *Ingestor {
	in := &Ingestor{
		transport:    t,
		store:        store,
		endpoint:     endpoint,
		logger:       logger,
		turnTimeout:  DefaultTurnTimeout,
		lastFrame:    make(map[string]time.Time),
		stopWatchdog: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Start attaches the transport hooks and arms the stall watchdog.
func (in *Ingestor) Start() {
	in.transport.SetHandlers(repositories.Handlers{
		OnMessage: in.handleMessage,
		OnOpen: func() {
			in.metrics.RecordTransportEvent("open")
			in.store.Dispatch(conversation.SystemNoted{Content: "Connection opened"})
		},
		OnClose: func() {
			in.metrics.RecordTransportEvent("close")
			in.store.Dispatch(conversation.SystemNoted{Content: "Connection closed"})
		},
		OnError: func(err error) {
			in.metrics.RecordTransportEvent("error")
			in.store.Dispatch(conversation.ErrorNoted{Content: fmt.Sprintf("Error: %v", err)})
		},
	})
	go in.runWatchdog()
}

// Stop detaches all transport hooks and stops the watchdog. The transport
// itself is closed by its owner.
func (in *Ingestor) Stop() {
	in.transport.SetHandlers(repositories.Handlers{})
	in.watchdogOnce.Do(func() { close(in.stopWatchdog) })
}

// Processing reports whether a turn is currently awaited.
func (in *Ingestor) Processing() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.processing
}

// handleMessage is the sole entry point for inbound transport frames.
// Undecodable payloads are dropped; envelope order per request id is
// receipt order.
func (in *Ingestor) handleMessage(raw []byte) {
	var env protocol.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		in.logger.Debug("Dropping undecodable agent payload", zap.Error(err))
		return
	}

	switch {
	case env.Type == protocol.TypeChatStream:
		var stream protocol.StreamEnvelope
		if err := json.Unmarshal(raw, &stream); err != nil {
			in.logger.Debug("Dropping malformed stream envelope", zap.Error(err))
			return
		}
		in.handleStream(stream)
	case protocol.IsInternal(env.Type):
		// Agent heartbeat/metadata channels never become messages.
	default:
		in.store.Dispatch(conversation.SystemNoted{Content: env.Type})
	}
}

func (in *Ingestor) handleStream(env protocol.StreamEnvelope) {
	if env.Done && env.Body == "" {
		// A completion for an id with no live buffer commits nothing.
		// Ignoring it outright keeps the turn observer from re-delivering
		// an earlier message.
		_, live := in.store.Snapshot().Streams[env.ID]
		if !live && !in.tracked(env.ID) {
			in.logger.Debug("Dropping completion for unknown request", zap.String("requestID", env.ID))
			return
		}
		in.store.Dispatch(conversation.StreamCompleted{RequestID: env.ID})
		if live {
			in.metrics.RecordTurnCompleted()
			in.notifyTurnCommitted()
		}
		in.finishTurn(env.ID)
		return
	}

	in.stamp(env.ID)
	for _, frame := range protocol.SplitFrames(env.Body) {
		in.metrics.RecordFrame(frame.Kind.String())
		switch frame.Kind {
		case protocol.FrameTextDelta:
			in.store.Dispatch(conversation.TextDeltaReceived{RequestID: env.ID, Text: frame.Text})
		case protocol.FrameToolStart:
			in.store.Dispatch(conversation.ToolStarted{RequestID: env.ID, Call: *frame.Tool})
		case protocol.FrameToolResult:
			in.store.Dispatch(conversation.ToolResultReceived{RequestID: env.ID, Call: *frame.Tool})
		case protocol.FrameUsageDelta, protocol.FrameUsageFinal:
			in.store.Dispatch(conversation.UsageReceived{RequestID: env.ID, Usage: *frame.Usage})
		case protocol.FrameMeta:
			// Carries nothing actionable.
		}
	}
}

// SendChat submits a user message: it builds the chat request envelope
// from prior user/assistant history plus the new entry, sends it over the
// transport, and appends the user message locally.
func (in *Ingestor) SendChat(content string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	var history []protocol.HistoryEntry
	for _, m := range in.store.Snapshot().Messages {
		if m.Role != conversation.RoleUser && m.Role != conversation.RoleAssistant {
			continue
		}
		history = append(history, protocol.HistoryEntry{
			ID:        m.ID,
			Role:      string(m.Role),
			Content:   m.Content,
			CreatedAt: now,
		})
	}
	history = append(history, protocol.HistoryEntry{
		ID:        uuid.NewString(),
		Role:      string(conversation.RoleUser),
		Content:   content,
		CreatedAt: now,
	})

	body, err := json.Marshal(protocol.ChatPayload{Messages: history})
	if err != nil {
		return fmt.Errorf("encode chat payload: %w", err)
	}

	requestID := uuid.NewString()
	envelope, err := json.Marshal(protocol.ChatRequestEnvelope{
		ID:   requestID,
		Type: protocol.TypeChatRequest,
		URL:  in.endpoint,
		Init: protocol.RequestInit{
			Method:  "POST",
			Headers: map[string]string{"Content-Type": "application/json"},
			Body:    string(body),
		},
	})
	if err != nil {
		return fmt.Errorf("encode chat request: %w", err)
	}

	if err := in.transport.Send(envelope); err != nil {
		return fmt.Errorf("send chat request: %w", err)
	}

	in.mu.Lock()
	in.processing = true
	in.lastFrame[requestID] = time.Now()
	in.mu.Unlock()

	in.store.Dispatch(conversation.UserMessageSubmitted{Content: content})
	return nil
}

func (in *Ingestor) notifyTurnCommitted() {
	if in.onTurnCommitted == nil {
		return
	}
	if m, ok := in.store.LastCompleteAssistant(); ok {
		in.onTurnCommitted(m)
	}
}

func (in *Ingestor) tracked(requestID string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	_, ok := in.lastFrame[requestID]
	return ok
}

func (in *Ingestor) stamp(requestID string) {
	in.mu.Lock()
	in.lastFrame[requestID] = time.Now()
	in.mu.Unlock()
}

func (in *Ingestor) finishTurn(requestID string) {
	in.mu.Lock()
	delete(in.lastFrame, requestID)
	in.processing = len(in.lastFrame) > 0
	done := in.onProcessingDone
	in.mu.Unlock()
	if done != nil {
		done()
	}
}

// runWatchdog expires turns that stop emitting frames without a
// completion signal, committing whatever partial content accumulated and
// surfacing an error message. Without it a dropped connection mid-stream
// would leave the processing flag stuck forever.
func (in *Ingestor) runWatchdog() {
	ticker := time.NewTicker(watchdogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			in.expireStalledTurns()
		case <-in.stopWatchdog:
			return
		}
	}
}

func (in *Ingestor) expireStalledTurns() {
	now := time.Now()
	in.mu.Lock()
	var stalled []string
	for id, last := range in.lastFrame {
		if now.Sub(last) > in.turnTimeout {
			stalled = append(stalled, id)
		}
	}
	in.mu.Unlock()

	for _, id := range stalled {
		in.logger.Warn("Assistant turn stalled, expiring", zap.String("requestID", id))
		in.metrics.RecordTurnTimedOut()
		_, live := in.store.Snapshot().Streams[id]
		in.store.Dispatch(conversation.ErrorNoted{Content: "Assistant response timed out"})
		in.store.Dispatch(conversation.StreamCompleted{RequestID: id})
		if live {
			in.notifyTurnCommitted()
		}
		in.finishTurn(id)
	}
}
