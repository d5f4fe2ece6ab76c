package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/conversation"
	"github.com/vinylgrove/companion/internal/observability"
)

// DefaultSyncInterval is how often the reconciler pulls the
// server-authoritative character state.
const DefaultSyncInterval = 10 * time.Second

// historyEntry is one persisted message from the agent's history endpoint.
type historyEntry struct {
	ID              string                        `json:"id"`
	Role            string                        `json:"role"`
	Content         string                        `json:"content"`
	ToolInvocations []conversation.ToolInvocation `json:"toolInvocations"`
	Usage           *conversation.Usage           `json:"usage"`
}

// debugState is the shape of the agent's debug-state endpoint.
type debugState struct {
	Character *CharacterSnapshot `json:"character"`
}

// Reconciler pulls server-authoritative state into the local stores: one
// history bootstrap at startup plus a periodic character-state sync. The
// server always wins on the periodic path.
type Reconciler struct {
	baseURL   string
	client    *http.Client
	store     *conversation.Store
	companion *Companion
	logger    *zap.Logger
	metrics   *observability.Metrics
	interval  time.Duration

	onHistory func(conversation.Message)
}

// ReconcilerOption configures a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithSyncInterval overrides the periodic sync interval.
func WithSyncInterval(d time.Duration) ReconcilerOption {
	return func(r *Reconciler) {
		if d > 0 {
			r.interval = d
		}
	}
}

// WithHistoryObserver registers a callback invoked with the last complete
// assistant message after a history bootstrap, so overlays derived from
// conversation state can catch up.
func WithHistoryObserver(fn func(conversation.Message)) ReconcilerOption {
	return func(r *Reconciler) {
		r.onHistory = fn
	}
}

// WithSyncMetrics attaches observability counters.
func WithSyncMetrics(m *observability.Metrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// NewReconciler builds a reconciler against the agent's HTTP base URL.
func NewReconciler(baseURL string, client *http.Client, store *conversation.Store, companion *Companion, logger *zap.Logger, opts ...ReconcilerOption) *Reconciler {
	if client == nil {
		client = http.DefaultClient
	}
	r := &Reconciler{
		baseURL:   baseURL,
		client:    client,
		store:     store,
		companion: companion,
		logger:    logger,
		interval:  DefaultSyncInterval,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// BootstrapHistory replaces the local conversation with the server's
// persisted history. The replacement also drops any stream buffers, so
// it runs once at startup, before steady-state streaming begins. An
// empty server log leaves local state alone.
func (r *Reconciler) BootstrapHistory(ctx context.Context) error {
	var entries []historyEntry
	if err := r.getJSON(ctx, "/get-messages", &entries); err != nil {
		return fmt.Errorf("fetch history: %w", err)
	}
	if len(entries) == 0 {
		r.logger.Info("No persisted history to bootstrap")
		return nil
	}

	messages := make([]conversation.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, conversation.Message{
			ID:      e.ID,
			Role:    conversation.Role(e.Role),
			Status:  conversation.StatusComplete,
			Content: e.Content,
			Tools:   e.ToolInvocations,
			Usage:   e.Usage,
		})
	}

	r.store.Dispatch(conversation.HistoryReplaced{Messages: messages})
	r.logger.Info("History bootstrapped", zap.Int("messages", len(messages)))

	if r.onHistory != nil {
		if last, ok := r.store.LastCompleteAssistant(); ok {
			r.onHistory(last)
		}
	}
	return nil
}

// BootstrapState pulls character state once, applying it only when the
// server copy is newer than the local one. A bootstrap races the user's
// first optimistic edit; the gate keeps a fresh local edit from being
// clobbered by a stale server read.
func (r *Reconciler) BootstrapState(ctx context.Context) error {
	snap, err := r.fetchState(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	if r.companion.ApplySnapshotIfNewer(*snap) {
		r.logger.Info("Character state bootstrapped", zap.String("character", snap.ID))
	}
	return nil
}

// SyncState pulls character state and applies it unconditionally.
func (r *Reconciler) SyncState(ctx context.Context) error {
	snap, err := r.fetchState(ctx)
	if err != nil {
		return err
	}
	if snap == nil {
		return nil
	}
	r.companion.ApplySnapshot(*snap)
	return nil
}

// Run performs the startup bootstraps and then syncs character state on an
// interval until the context is cancelled. Individual failures are logged
// and swallowed; the loop keeps going.
func (r *Reconciler) Run(ctx context.Context) {
	if err := r.BootstrapHistory(ctx); err != nil {
		r.metrics.RecordSync("failure")
		r.logger.Warn("History bootstrap failed", zap.Error(err))
	} else {
		r.metrics.RecordSync("success")
	}
	if err := r.BootstrapState(ctx); err != nil {
		r.metrics.RecordSync("failure")
		r.logger.Warn("State bootstrap failed", zap.Error(err))
	} else {
		r.metrics.RecordSync("success")
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := r.SyncState(ctx); err != nil {
				r.metrics.RecordSync("failure")
				r.logger.Warn("State sync failed", zap.Error(err))
			} else {
				r.metrics.RecordSync("success")
			}
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reconciler) fetchState(ctx context.Context) (*CharacterSnapshot, error) {
	var state debugState
	if err := r.getJSON(ctx, "/api/debug/state", &state); err != nil {
		return nil, fmt.Errorf("fetch state: %w", err)
	}
	return state.Character, nil
}

func (r *Reconciler) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
