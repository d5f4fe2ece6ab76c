package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vinylgrove/companion/domain/character"
	"github.com/vinylgrove/companion/internal/observability"
)

// decayIdleThreshold is how long the character must sit idle before stats
// start decaying.
const decayIdleThreshold = time.Hour

// CharacterSnapshot is the server-authoritative character state returned
// by the agent's debug endpoint. LastSync is milliseconds since epoch.
type CharacterSnapshot struct {
	ID       string          `json:"id"`
	Stats    character.Stats `json:"stats"`
	LastSync int64           `json:"lastSync"`
}

// CompanionView is the read model exposed to the API layer.
type CompanionView struct {
	Character *character.Character `json:"character"`
	Stats     character.Stats      `json:"stats"`
	Mood      character.Mood       `json:"mood"`
	LastSync  int64                `json:"lastSync"`
}

// Companion owns the character's local state. Exactly two writers touch
// the stat triple: the optimistic feed action here and the reconciler's
// snapshot application. Both overwrite the whole triple, never one field,
// so the last writer winning is safe without a lock between them.
type Companion struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics

	mu              sync.RWMutex
	selected        *character.Character
	stats           character.Stats
	lastSync        int64
	lastInteraction time.Time
}

// NewCompanion returns a companion with no character selected. baseURL is
// the agent's HTTP base for the stat-sync endpoint.
func NewCompanion(baseURL string, client *http.Client, logger *zap.Logger, metrics *observability.Metrics) *Companion {
	if client == nil {
		client = http.DefaultClient
	}
	return &Companion{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
		metrics: metrics,
		stats:   character.DefaultStats,
	}
}

// Select activates a catalog character with default stats.
func (c *Companion) Select(id string) error {
	ch, ok := character.ByID(id)
	if !ok {
		return fmt.Errorf("unknown character %q", id)
	}
	now := time.Now()
	c.mu.Lock()
	c.selected = &ch
	c.stats = character.DefaultStats
	c.lastSync = now.UnixMilli()
	c.lastInteraction = now
	c.mu.Unlock()
	c.logger.Info("Character selected", zap.String("character", id))
	return nil
}

// Selected reports whether a character is active.
func (c *Companion) Selected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.selected != nil
}

// View returns the current read model.
func (c *Companion) View() CompanionView {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v := CompanionView{Stats: c.stats, Mood: character.MoodNeutral, LastSync: c.lastSync}
	if c.selected != nil {
		ch := *c.selected
		v.Character = &ch
		v.Mood = character.MoodFor(c.stats)
	}
	return v
}

// Feed applies a feed item optimistically and pushes the new triple to
// the agent. The push is fire-and-forget: a failure is logged, the local
// edit stands, and the next reconciliation settles any disagreement.
func (c *Companion) Feed(ctx context.Context, itemID string) error {
	item, ok := character.ItemByID(itemID)
	if !ok {
		return fmt.Errorf("unknown item %q", itemID)
	}

	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return fmt.Errorf("no character selected")
	}
	c.stats = c.stats.Apply(item.Effect)
	now := time.Now()
	c.lastSync = now.UnixMilli()
	c.lastInteraction = now
	stats := c.stats
	selected := *c.selected
	c.mu.Unlock()

	if err := c.pushStats(ctx, selected, stats); err != nil {
		c.metrics.RecordStatPush("failure")
		c.logger.Warn("Stat sync push failed", zap.Error(err))
	} else {
		c.metrics.RecordStatPush("success")
	}
	return nil
}

func (c *Companion) pushStats(ctx context.Context, ch character.Character, stats character.Stats) error {
	payload, err := json.Marshal(map[string]any{
		"characterId":   ch.ID,
		"characterName": ch.Name,
		"stats":         stats,
	})
	if err != nil {
		return fmt.Errorf("encode stat sync: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sync-stats", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sync-stats returned %d", resp.StatusCode)
	}
	return nil
}

// ApplySnapshot overwrites local state with the server snapshot. The
// periodic reconciliation path is unconditional: the server always wins.
func (c *Companion) ApplySnapshot(snap CharacterSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch, ok := character.ByID(snap.ID); ok {
		c.selected = &ch
	}
	c.stats = snap.Stats.Clamped()
	c.lastSync = snap.LastSync
	if snap.LastSync > 0 {
		c.lastInteraction = time.UnixMilli(snap.LastSync)
	}
}

// ApplySnapshotIfNewer overwrites only when the server's lastSync is
// strictly newer than ours. Used once at bootstrap, where local state may
// already hold an optimistic edit the user just made.
func (c *Companion) ApplySnapshotIfNewer(snap CharacterSnapshot) bool {
	c.mu.RLock()
	local := c.lastSync
	c.mu.RUnlock()
	if snap.LastSync <= local {
		return false
	}
	c.ApplySnapshot(snap)
	return true
}

// RunDecay decays stats once a minute while the character has been idle
// longer than an hour, until the context is cancelled.
func (c *Companion) RunDecay(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.decayTick(time.Now())
		case <-ctx.Done():
			return
		}
	}
}

func (c *Companion) decayTick(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return
	}
	if now.Sub(c.lastInteraction) <= decayIdleThreshold {
		return
	}
	c.stats = c.stats.Decayed()
}
