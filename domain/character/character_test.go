package character

import "testing"

func TestClampBounds(t *testing.T) {
	if Clamp(-5) != MinStat {
		t.Errorf("Expected %d, got %d", MinStat, Clamp(-5))
	}
	if Clamp(150) != MaxStat {
		t.Errorf("Expected %d, got %d", MaxStat, Clamp(150))
	}
	if Clamp(42) != 42 {
		t.Errorf("Expected 42, got %d", Clamp(42))
	}
}

func TestApplyClampsEachField(t *testing.T) {
	s := Stats{Happiness: 95, Energy: 10, Intelligence: 50}
	got := s.Apply(Effect{Happiness: 20, Energy: -30, Intelligence: 5})

	if got.Happiness != 100 {
		t.Errorf("Expected happiness clamped to 100, got %d", got.Happiness)
	}
	if got.Energy != 0 {
		t.Errorf("Expected energy clamped to 0, got %d", got.Energy)
	}
	if got.Intelligence != 55 {
		t.Errorf("Expected intelligence 55, got %d", got.Intelligence)
	}
}

func TestDecayed(t *testing.T) {
	got := Stats{Happiness: 1, Energy: 2, Intelligence: 0}.Decayed()
	if got.Happiness != 0 || got.Energy != 0 || got.Intelligence != 0 {
		t.Errorf("Expected decay to clamp at zero, got %+v", got)
	}

	got = DefaultStats.Decayed()
	if got.Happiness != 73 || got.Energy != 72 || got.Intelligence != 49 {
		t.Errorf("Unexpected decay result %+v", got)
	}
}

func TestMoodThresholds(t *testing.T) {
	cases := []struct {
		stats Stats
		want  Mood
	}{
		{Stats{Happiness: 90, Energy: 80}, MoodExcited},
		{Stats{Happiness: 60, Energy: 60}, MoodHappy},
		{Stats{Happiness: 40, Energy: 40}, MoodNeutral},
		{Stats{Happiness: 10, Energy: 20}, MoodSad},
	}
	for _, c := range cases {
		if got := MoodFor(c.stats); got != c.want {
			t.Errorf("MoodFor(%+v) = %s, want %s", c.stats, got, c.want)
		}
	}
}

func TestCatalogLookup(t *testing.T) {
	if _, ok := ByID("groovy"); !ok {
		t.Error("Expected groovy in catalog")
	}
	if _, ok := ByID("nobody"); ok {
		t.Error("Expected unknown character to miss")
	}
	if _, ok := ItemByID("coffee"); !ok {
		t.Error("Expected coffee item")
	}
}
