package journey

import "strconv"

// finalLevelIndex is the position of the tenth lesson, after which the map
// stops scrolling and shows the finish banner.
const finalLevelIndex = 9

// defaultTotal is shown as the denominator before any levels have loaded.
const defaultTotal = 10

type Node struct {
	Index  int
	Level  Level
	Status Status
	// PathToNext lights the connector towards the following level.
	PathToNext bool
}

type Ongoing struct {
	Level      Level
	Entry      ProgressEntry
	MinReward  int
	MaxReward  int
	RewardText string
}

// Map is the journey screen's view model.
type Map struct {
	Nodes        []Node
	Completed    int
	Total        int
	Percent      float64
	Ongoing      *Ongoing
	FinalReached bool
	AllCompleted bool
}

// Current returns the first node whose status is current.
func (m Map) Current() (Node, bool) {
	for _, n := range m.Nodes {
		if n.Status == StatusCurrent {
			return n, true
		}
	}
	return Node{}, false
}

// BuildMap resolves every level and derives the counters shown on the
// journey screen.
func (r Resolver) BuildMap(levels []Level, entries []ProgressEntry) Map {
	statuses := r.ResolveAll(levels, entries)
	nodes := make([]Node, len(levels))
	for i, lvl := range levels {
		nodes[i] = Node{Index: i, Level: lvl, Status: statuses[i]}
		if i+1 < len(levels) {
			nodes[i].PathToNext = statuses[i].Accessible() && statuses[i+1].Accessible()
		}
	}

	completed := 0
	for _, e := range entries {
		if e.Status == ProgressCompleted {
			completed++
		}
	}
	total := len(levels)
	if total == 0 {
		total = defaultTotal
	}

	m := Map{
		Nodes:        nodes,
		Completed:    completed,
		Total:        total,
		Percent:      float64(completed) / float64(total) * 100,
		AllCompleted: completed >= defaultTotal,
	}
	m.Ongoing = ongoing(levels, entries)
	if len(levels) > finalLevelIndex {
		if e, ok := findEntry(entries, levels[finalLevelIndex].ID); ok {
			m.FinalReached = e.Status == ProgressCompleted || e.Status == ProgressInProgress
		}
	}
	m.FinalReached = m.FinalReached || m.AllCompleted
	return m
}

// BuildMap builds the view model with the default Resolver.
func BuildMap(levels []Level, entries []ProgressEntry) Map {
	return Resolver{}.BuildMap(levels, entries)
}

func ongoing(levels []Level, entries []ProgressEntry) *Ongoing {
	entry, ok := firstWithStatus(entries, ProgressInProgress)
	if !ok {
		return nil
	}
	for _, lvl := range levels {
		if !entry.Matches(lvl.ID) {
			continue
		}
		minReward, maxReward, text := RewardRange(lvl.PointsReward)
		return &Ongoing{Level: lvl, Entry: entry, MinReward: minReward, MaxReward: maxReward, RewardText: text}
	}
	return nil
}

// RewardRange returns the point range a level can award: the base reward up
// to double it for a perfect run.
func RewardRange(points int) (int, int, string) {
	if points < 0 {
		points = 0
	}
	maxReward := points * 2
	if maxReward > points {
		return points, maxReward, strconv.Itoa(points) + " - " + strconv.Itoa(maxReward)
	}
	return points, maxReward, strconv.Itoa(points)
}
