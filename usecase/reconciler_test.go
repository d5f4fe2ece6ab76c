package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/character"
	"github.com/vinylgrove/companion/domain/conversation"
)

func TestBootstrapHistoryReplacesConversation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/get-messages" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "user:1", "role": "user", "content": "Hello"},
			{"id": "assistant:2", "role": "assistant", "content": "Hi there",
				"usage": map[string]int{"promptTokens": 3, "completionTokens": 4}},
		})
	}))
	defer srv.Close()

	store := conversation.NewStore()
	store.Dispatch(conversation.UserMessageSubmitted{Content: "stale local"})

	var observed []conversation.Message
	r := NewReconciler(srv.URL, srv.Client(), store, nil, zap.NewNop(),
		WithHistoryObserver(func(m conversation.Message) { observed = append(observed, m) }))

	if err := r.BootstrapHistory(context.Background()); err != nil {
		t.Fatalf("BootstrapHistory() error = %v", err)
	}

	msgs := store.Snapshot().Messages
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2: %+v", len(msgs), msgs)
	}
	if msgs[0].Content != "Hello" || msgs[1].Content != "Hi there" {
		t.Errorf("messages = %+v", msgs)
	}
	if msgs[1].Status != conversation.StatusComplete {
		t.Errorf("bootstrapped message status = %q", msgs[1].Status)
	}
	if msgs[1].Usage == nil || msgs[1].Usage.CompletionTokens != 4 {
		t.Errorf("bootstrapped usage = %+v", msgs[1].Usage)
	}
	if store.Snapshot().Seq < 2 {
		t.Errorf("sequence = %d, want fast-forward past history", store.Snapshot().Seq)
	}
	if len(observed) != 1 || observed[0].ID != "assistant:2" {
		t.Errorf("history observer saw %+v", observed)
	}
}

func TestBootstrapHistorySynthesizesMissingIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"role": "user", "content": "a"},
			{"role": "assistant", "content": "b"},
		})
	}))
	defer srv.Close()

	store := conversation.NewStore()
	r := NewReconciler(srv.URL, srv.Client(), store, nil, zap.NewNop())

	if err := r.BootstrapHistory(context.Background()); err != nil {
		t.Fatalf("BootstrapHistory() error = %v", err)
	}
	msgs := store.Snapshot().Messages
	if msgs[0].ID != "user:1" || msgs[1].ID != "assistant:2" {
		t.Errorf("ids = %q, %q", msgs[0].ID, msgs[1].ID)
	}
}

func TestBootstrapHistorySkipsEmptyServerLog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{})
	}))
	defer srv.Close()

	store := conversation.NewStore()
	store.Dispatch(conversation.SystemNoted{Content: "Connection opened"})

	var observed int
	r := NewReconciler(srv.URL, srv.Client(), store, nil, zap.NewNop(),
		WithHistoryObserver(func(conversation.Message) { observed++ }))

	if err := r.BootstrapHistory(context.Background()); err != nil {
		t.Fatalf("BootstrapHistory() error = %v", err)
	}

	msgs := store.Snapshot().Messages
	if len(msgs) != 1 || msgs[0].Content != "Connection opened" {
		t.Errorf("local messages wiped by an empty server log: %+v", msgs)
	}
	if observed != 0 {
		t.Errorf("history observer fired %d times for an empty log", observed)
	}
}

func TestBootstrapStateRespectsGate(t *testing.T) {
	serverSync := int64(0)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/debug/state" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"character": map[string]any{
				"id":       "groovy",
				"stats":    character.Stats{Happiness: 20, Energy: 20, Intelligence: 20},
				"lastSync": serverSync,
			},
		})
	}))
	defer srv.Close()

	companion := NewCompanion(srv.URL, srv.Client(), zap.NewNop(), nil)
	if err := companion.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	local := companion.View().LastSync
	r := NewReconciler(srv.URL, srv.Client(), nil, companion, zap.NewNop())

	serverSync = local - 1
	if err := r.BootstrapState(context.Background()); err != nil {
		t.Fatalf("BootstrapState() error = %v", err)
	}
	if companion.View().Stats != character.DefaultStats {
		t.Errorf("stale server state applied at bootstrap: %+v", companion.View().Stats)
	}

	serverSync = local + 1
	if err := r.BootstrapState(context.Background()); err != nil {
		t.Fatalf("BootstrapState() error = %v", err)
	}
	if companion.View().Stats.Happiness != 20 {
		t.Errorf("newer server state not applied: %+v", companion.View().Stats)
	}
}

func TestSyncStateServerAlwaysWins(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"character": map[string]any{
				"id":       "groovy",
				"stats":    character.Stats{Happiness: 33, Energy: 44, Intelligence: 55},
				"lastSync": 1,
			},
		})
	}))
	defer srv.Close()

	companion := NewCompanion(srv.URL, srv.Client(), zap.NewNop(), nil)
	if err := companion.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	r := NewReconciler(srv.URL, srv.Client(), nil, companion, zap.NewNop())

	// Local is newer than the server copy, yet the periodic path still
	// overwrites it.
	if err := r.SyncState(context.Background()); err != nil {
		t.Fatalf("SyncState() error = %v", err)
	}
	got := companion.View().Stats
	want := character.Stats{Happiness: 33, Energy: 44, Intelligence: 55}
	if got != want {
		t.Errorf("stats = %+v, want %+v", got, want)
	}
}

func TestSyncStateToleratesMissingCharacter(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer srv.Close()

	companion := NewCompanion(srv.URL, srv.Client(), zap.NewNop(), nil)
	r := NewReconciler(srv.URL, srv.Client(), nil, companion, zap.NewNop())

	if err := r.SyncState(context.Background()); err != nil {
		t.Errorf("SyncState() error = %v, want nil for empty state", err)
	}
}

func TestSyncStateErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	r := NewReconciler(srv.URL, srv.Client(), nil, nil, zap.NewNop())
	if err := r.SyncState(context.Background()); err == nil {
		t.Error("SyncState() succeeded against a failing server")
	}
}
