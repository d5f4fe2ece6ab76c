// Package character models the companion character: its identity, its
// bounded stat triple, and the feed items that nudge those stats.
package character

// Stat bounds. Every mutation clamps back into this range.
const (
	MinStat = 0
	MaxStat = 100
)

// Stats is the character's stat triple. Writers always replace the whole
// triple, never a single field, which is what makes the last-writer-wins
// reconciliation race safe.
type Stats struct {
	Happiness    int `json:"happiness"`
	Energy       int `json:"energy"`
	Intelligence int `json:"intelligence"`
}

// DefaultStats is the starting triple for a freshly selected character.
var DefaultStats = Stats{Happiness: 75, Energy: 75, Intelligence: 50}

// Clamp bounds a single stat value to [MinStat, MaxStat].
func Clamp(v int) int {
	if v < MinStat {
		return MinStat
	}
	if v > MaxStat {
		return MaxStat
	}
	return v
}

// Clamped returns the triple with every field bounded.
func (s Stats) Clamped() Stats {
	return Stats{
		Happiness:    Clamp(s.Happiness),
		Energy:       Clamp(s.Energy),
		Intelligence: Clamp(s.Intelligence),
	}
}

// Effect is the stat delta a feed item applies.
type Effect struct {
	Happiness    int
	Energy       int
	Intelligence int
}

// Apply returns the triple shifted by an effect and clamped.
func (s Stats) Apply(e Effect) Stats {
	return Stats{
		Happiness:    s.Happiness + e.Happiness,
		Energy:       s.Energy + e.Energy,
		Intelligence: s.Intelligence + e.Intelligence,
	}.Clamped()
}

// Decayed returns the triple after one idle decay tick.
func (s Stats) Decayed() Stats {
	return Stats{
		Happiness:    s.Happiness - 2,
		Energy:       s.Energy - 3,
		Intelligence: s.Intelligence - 1,
	}.Clamped()
}

// Mood is the derived presentation state of the character.
type Mood string

const (
	MoodExcited Mood = "excited"
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

// MoodFor derives mood from the average of happiness and energy.
func MoodFor(s Stats) Mood {
	avg := (s.Happiness + s.Energy) / 2
	switch {
	case avg >= 80:
		return MoodExcited
	case avg >= 60:
		return MoodHappy
	case avg >= 40:
		return MoodNeutral
	default:
		return MoodSad
	}
}

// Character is a selectable companion identity.
type Character struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

var catalog = []Character{
	{ID: "groovy", Name: "Groovy", Description: "The music enthusiast - vinyl expert and music historian"},
	{ID: "globby", Name: "Globby", Description: "The eco-warrior - sustainability expert and green living guru"},
}

// Catalog lists the selectable characters.
func Catalog() []Character {
	out := make([]Character, len(catalog))
	copy(out, catalog)
	return out
}

// ByID looks up a character in the catalog.
func ByID(id string) (Character, bool) {
	for _, c := range catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Character{}, false
}

// Item is something the user can feed the character.
type Item struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Effect Effect `json:"-"`
}

var items = []Item{
	{ID: "coffee", Name: "Coffee", Kind: "beverage", Effect: Effect{Energy: 20, Happiness: 10, Intelligence: 5}},
	{ID: "music", Name: "Music", Kind: "music", Effect: Effect{Happiness: 30}},
}

// Items lists the feedable item catalog.
func Items() []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// ItemByID looks up a feed item.
func ItemByID(id string) (Item, bool) {
	for _, it := range items {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}
