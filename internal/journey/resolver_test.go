package journey

import (
	"reflect"
	"testing"
)

func threeLevels() []Level {
	return []Level{{ID: "L0"}, {ID: "L1"}, {ID: "L2"}}
}

func boolPtr(v bool) *bool { return &v }

func statusesOf(r Resolver, levels []Level, entries []ProgressEntry) []Status {
	return r.ResolveAll(levels, entries)
}

func TestEmptyJourneyMapUnlocksOnlyFirstLevel(t *testing.T) {
	for n := 1; n <= 6; n++ {
		levels := make([]Level, n)
		for i := range levels {
			levels[i] = Level{ID: ID(rune('a' + i))}
		}
		for i := 0; i < n; i++ {
			got := ResolveStatus(levels, nil, i)
			want := StatusLocked
			if i == 0 {
				want = StatusCurrent
			}
			if got != want {
				t.Fatalf("n=%d index=%d: expected %s, got %s", n, i, want, got)
			}
		}
	}
}

func TestScenarioNoProgress(t *testing.T) {
	got := statusesOf(Resolver{}, threeLevels(), []ProgressEntry{})
	want := []Status{StatusCurrent, StatusLocked, StatusLocked}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScenarioFirstCompleted(t *testing.T) {
	entries := []ProgressEntry{{ID: "L0", Status: ProgressCompleted}}
	got := statusesOf(Resolver{}, threeLevels(), entries)
	want := []Status{StatusCompleted, StatusCurrent, StatusLocked}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestScenarioSecondInProgress(t *testing.T) {
	entries := []ProgressEntry{
		{ID: "L0", Status: ProgressCompleted},
		{ID: "L1", Status: ProgressInProgress},
	}
	got := statusesOf(Resolver{}, threeLevels(), entries)
	want := []Status{StatusCompleted, StatusCurrent, StatusLocked}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAggregateFallbackBothInterpretations(t *testing.T) {
	levels := []Level{{ID: "L0"}, {ID: "L1"}, {ID: "L2"}, {ID: "L3"}}
	// Only the in-progress row is present, so L0 and L2 fall through to
	// aggregate reasoning.
	entries := []ProgressEntry{{LevelID: "L1", Status: ProgressInProgress}}

	strict := statusesOf(Resolver{}, levels, entries)
	wantStrict := []Status{StatusCompleted, StatusCurrent, StatusLocked, StatusLocked}
	if !reflect.DeepEqual(strict, wantStrict) {
		t.Fatalf("default mode: expected %v, got %v", wantStrict, strict)
	}

	parity := statusesOf(Resolver{ParityMode: true}, levels, entries)
	wantParity := []Status{StatusCompleted, StatusCurrent, StatusCurrent, StatusLocked}
	if !reflect.DeepEqual(parity, wantParity) {
		t.Fatalf("parity mode: expected %v, got %v", wantParity, parity)
	}
}

func TestExactlyOneCurrentInDefaultMode(t *testing.T) {
	levels := []Level{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}, {ID: "5"}}
	maps := [][]ProgressEntry{
		{{ID: "1", Status: ProgressCompleted}},
		{{ID: "1", Status: ProgressCompleted}, {ID: "2", Status: ProgressCompleted}},
		{{ID: "3", Status: ProgressInProgress}},
		{{ID: "1", Status: ProgressCompleted}, {ID: "2", Status: ProgressInProgress}},
		{{ID: "4", Status: ProgressCompleted}},
		{{ID: "99"}},
	}
	for i, entries := range maps {
		count := 0
		for _, s := range (Resolver{}).ResolveAll(levels, entries) {
			if s == StatusCurrent {
				count++
			}
		}
		if count != 1 {
			t.Fatalf("map %d: expected exactly one current level, got %d", i, count)
		}
	}
}

func TestExplicitUnlockContract(t *testing.T) {
	entries := []ProgressEntry{
		{ID: "L0", Status: ProgressCompleted, Unlocked: boolPtr(true)},
		{ID: "L1", Unlocked: boolPtr(true)},
		{ID: "L2", Status: ProgressCompleted, Unlocked: boolPtr(false)},
	}
	got := statusesOf(Resolver{}, threeLevels(), entries)
	want := []Status{StatusCompleted, StatusCurrent, StatusLocked}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLegacyRowsWithoutStatusFallThrough(t *testing.T) {
	entries := []ProgressEntry{
		{ID: "L0", Status: ProgressCompleted},
		{ID: "L1"},
	}
	// L1 has a row but neither status applies, so the completed L0 unlocks it.
	got := statusesOf(Resolver{}, threeLevels(), entries)
	want := []Status{StatusCompleted, StatusCurrent, StatusLocked}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestLegacyCurrentMarker(t *testing.T) {
	entries := []ProgressEntry{{ID: "L2", MarkedCurrent: true}, {ID: "L0", Status: ProgressCompleted}}
	if got := ResolveStatus(threeLevels(), entries, 2); got != StatusCurrent {
		t.Fatalf("expected marked row to be current, got %s", got)
	}
}

func TestUnmappedInProgressLocksUnmatchedLevels(t *testing.T) {
	entries := []ProgressEntry{{ID: "elsewhere", Status: ProgressInProgress}}
	for i, s := range (Resolver{}).ResolveAll(threeLevels(), entries) {
		if s != StatusLocked {
			t.Fatalf("index %d: expected locked, got %s", i, s)
		}
	}
}

func TestUnmappedCompletedLocksUnmatchedLevels(t *testing.T) {
	entries := []ProgressEntry{{ID: "elsewhere", Status: ProgressCompleted}}
	for i, s := range (Resolver{}).ResolveAll(threeLevels(), entries) {
		if s != StatusLocked {
			t.Fatalf("index %d: expected locked, got %s", i, s)
		}
	}
}

func TestMapWithoutProgressBehavesLikeEmpty(t *testing.T) {
	entries := []ProgressEntry{{ID: "unrelated"}}
	got := statusesOf(Resolver{}, threeLevels(), entries)
	want := []Status{StatusCurrent, StatusLocked, StatusLocked}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestOutOfRangeIndexIsLocked(t *testing.T) {
	if got := ResolveStatus(threeLevels(), nil, 3); got != StatusLocked {
		t.Fatalf("expected locked past the end, got %s", got)
	}
	if got := ResolveStatus(threeLevels(), nil, -1); got != StatusLocked {
		t.Fatalf("expected locked for negative index, got %s", got)
	}
	if got := ResolveStatus(nil, nil, 0); got != StatusLocked {
		t.Fatalf("expected locked with no levels, got %s", got)
	}
}

func TestResolveIsPure(t *testing.T) {
	levels := threeLevels()
	entries := []ProgressEntry{{ID: "L0", Status: ProgressCompleted}}
	forward := []Status{}
	for i := 0; i < len(levels); i++ {
		forward = append(forward, ResolveStatus(levels, entries, i))
	}
	backward := make([]Status, len(levels))
	for i := len(levels) - 1; i >= 0; i-- {
		backward[i] = ResolveStatus(levels, entries, i)
	}
	if !reflect.DeepEqual(forward, backward) {
		t.Fatalf("order dependent results: %v vs %v", forward, backward)
	}
	if entries[0].Status != ProgressCompleted || len(entries) != 1 {
		t.Fatalf("resolver mutated its input")
	}
}

func TestPathActive(t *testing.T) {
	levels := threeLevels()
	entries := []ProgressEntry{{ID: "L0", Status: ProgressCompleted}}
	if !PathActive(levels, entries, 0, 1) {
		t.Fatalf("expected completed -> current path to be active")
	}
	if PathActive(levels, entries, 1, 2) {
		t.Fatalf("expected path into a locked level to be inactive")
	}
	if PathActive(levels, entries, 2, 3) || PathActive(levels, entries, -1, 0) {
		t.Fatalf("expected out-of-range paths to be inactive")
	}
	if PathActive(levels, nil, 1, 0) {
		t.Fatalf("expected path from a locked level to be inactive")
	}
}

func TestBuildMapCounters(t *testing.T) {
	levels := []Level{
		{ID: "1", LevelIndex: 1, PointsReward: 50},
		{ID: "2", LevelIndex: 2, PointsReward: 80},
		{ID: "3", LevelIndex: 3},
		{ID: "4", LevelIndex: 4},
	}
	entries := []ProgressEntry{
		{ID: "1", Status: ProgressCompleted},
		{ID: "2", Status: ProgressInProgress},
	}
	m := BuildMap(levels, entries)
	if m.Completed != 1 || m.Total != 4 {
		t.Fatalf("unexpected counters: %d/%d", m.Completed, m.Total)
	}
	if m.Percent != 25 {
		t.Fatalf("expected 25%%, got %v", m.Percent)
	}
	if m.Ongoing == nil || m.Ongoing.Level.ID != "2" {
		t.Fatalf("expected level 2 to be ongoing, got %#v", m.Ongoing)
	}
	if m.Ongoing.RewardText != "80 - 160" {
		t.Fatalf("unexpected reward text %q", m.Ongoing.RewardText)
	}
	if !m.Nodes[0].PathToNext || m.Nodes[1].PathToNext {
		t.Fatalf("unexpected path flags: %v %v", m.Nodes[0].PathToNext, m.Nodes[1].PathToNext)
	}
	cur, ok := m.Current()
	if !ok || cur.Index != 1 {
		t.Fatalf("expected current node at index 1, got %#v", cur)
	}
	if m.FinalReached {
		t.Fatalf("did not expect final level reached")
	}
}

func TestBuildMapDefaultsTotalWithoutLevels(t *testing.T) {
	m := BuildMap(nil, nil)
	if m.Total != 10 || m.Percent != 0 || m.Ongoing != nil {
		t.Fatalf("unexpected empty map: %#v", m)
	}
}

func TestBuildMapFinalLevelReached(t *testing.T) {
	levels := make([]Level, 10)
	entries := make([]ProgressEntry, 0, 10)
	for i := range levels {
		levels[i] = Level{ID: ID(string(rune('a' + i)))}
		if i < 9 {
			entries = append(entries, ProgressEntry{ID: levels[i].ID, Status: ProgressCompleted})
		}
	}
	entries = append(entries, ProgressEntry{ID: levels[9].ID, Status: ProgressInProgress})
	m := BuildMap(levels, entries)
	if !m.FinalReached {
		t.Fatalf("expected final level reached")
	}
	if m.AllCompleted {
		t.Fatalf("did not expect all completed with 9 completions")
	}
}

func TestRewardRange(t *testing.T) {
	if _, _, text := RewardRange(0); text != "0" {
		t.Fatalf("expected plain zero reward, got %q", text)
	}
	if lo, hi, text := RewardRange(25); lo != 25 || hi != 50 || text != "25 - 50" {
		t.Fatalf("unexpected range %d %d %q", lo, hi, text)
	}
}
