package usecase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/character"
)

func TestSelectUnknownCharacter(t *testing.T) {
	c := NewCompanion("http://unused", nil, zap.NewNop(), nil)
	if err := c.Select("dracula"); err == nil {
		t.Error("Select(dracula) succeeded, want error")
	}
	if c.Selected() {
		t.Error("Selected() = true after failed select")
	}
}

func TestSelectResetsToDefaults(t *testing.T) {
	c := NewCompanion("http://unused", nil, zap.NewNop(), nil)
	if err := c.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	v := c.View()
	if v.Character == nil || v.Character.ID != "groovy" {
		t.Fatalf("view character = %+v", v.Character)
	}
	if v.Stats != character.DefaultStats {
		t.Errorf("stats = %+v, want defaults", v.Stats)
	}
	if v.Mood != character.MoodHappy {
		t.Errorf("mood = %q, want %q", v.Mood, character.MoodHappy)
	}
}

func TestFeedAppliesOptimisticallyAndPushes(t *testing.T) {
	var pushed map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/sync-stats" {
			t.Errorf("push hit %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&pushed); err != nil {
			t.Errorf("decode push body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewCompanion(srv.URL, srv.Client(), zap.NewNop(), nil)
	if err := c.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := c.Feed(context.Background(), "coffee"); err != nil {
		t.Fatalf("Feed() error = %v", err)
	}

	v := c.View()
	want := character.DefaultStats.Apply(character.Effect{Energy: 20, Happiness: 10, Intelligence: 5})
	if v.Stats != want {
		t.Errorf("stats after coffee = %+v, want %+v", v.Stats, want)
	}
	if pushed == nil {
		t.Fatal("no stat push reached the server")
	}
	if pushed["characterId"] != "groovy" {
		t.Errorf("pushed characterId = %v", pushed["characterId"])
	}
}

func TestFeedSurvivesPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewCompanion(srv.URL, srv.Client(), zap.NewNop(), nil)
	if err := c.Select("globby"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := c.Feed(context.Background(), "music"); err != nil {
		t.Fatalf("Feed() error = %v, want nil on push failure", err)
	}
	if got := c.View().Stats.Happiness; got != 85 {
		t.Errorf("happiness = %d, want optimistic 85", got)
	}
}

func TestFeedUnknownItem(t *testing.T) {
	c := NewCompanion("http://unused", nil, zap.NewNop(), nil)
	if err := c.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if err := c.Feed(context.Background(), "pizza"); err == nil {
		t.Error("Feed(pizza) succeeded, want error")
	}
}

func TestApplySnapshotOverwritesWholly(t *testing.T) {
	c := NewCompanion("http://unused", nil, zap.NewNop(), nil)
	if err := c.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	c.ApplySnapshot(CharacterSnapshot{
		ID:       "globby",
		Stats:    character.Stats{Happiness: 10, Energy: 150, Intelligence: -5},
		LastSync: 42,
	})

	v := c.View()
	if v.Character.ID != "globby" {
		t.Errorf("character = %q, want globby", v.Character.ID)
	}
	want := character.Stats{Happiness: 10, Energy: 100, Intelligence: 0}
	if v.Stats != want {
		t.Errorf("stats = %+v, want clamped %+v", v.Stats, want)
	}
	if v.LastSync != 42 {
		t.Errorf("lastSync = %d, want 42", v.LastSync)
	}
}

func TestApplySnapshotIfNewerGates(t *testing.T) {
	c := NewCompanion("http://unused", nil, zap.NewNop(), nil)
	if err := c.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	local := c.View().LastSync

	stale := CharacterSnapshot{ID: "groovy", Stats: character.Stats{Happiness: 1, Energy: 1, Intelligence: 1}, LastSync: local - 1}
	if c.ApplySnapshotIfNewer(stale) {
		t.Error("stale snapshot applied")
	}
	if c.View().Stats != character.DefaultStats {
		t.Errorf("stats changed by stale snapshot: %+v", c.View().Stats)
	}

	fresh := stale
	fresh.LastSync = local + 1
	if !c.ApplySnapshotIfNewer(fresh) {
		t.Error("newer snapshot not applied")
	}
	if c.View().Stats.Happiness != 1 {
		t.Errorf("stats = %+v after newer snapshot", c.View().Stats)
	}
}

func TestDecayWaitsForIdle(t *testing.T) {
	c := NewCompanion("http://unused", nil, zap.NewNop(), nil)
	if err := c.Select("groovy"); err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	c.decayTick(time.Now().Add(30 * time.Minute))
	if c.View().Stats != character.DefaultStats {
		t.Errorf("stats decayed before the idle threshold: %+v", c.View().Stats)
	}

	c.decayTick(time.Now().Add(2 * time.Hour))
	want := character.DefaultStats.Decayed()
	if got := c.View().Stats; got != want {
		t.Errorf("stats = %+v after idle decay, want %+v", got, want)
	}
}
