package journey

// Resolver derives the display status of each level from the journey map.
// It is pure: the same inputs always give the same answer.
type Resolver struct {
	// ParityMode also marks the level right after an in-progress level as
	// current when that level has no entry of its own. By default only the
	// in-progress level is current and the next one stays locked.
	ParityMode bool
}

// ResolveStatus resolves one level with the default Resolver.
func ResolveStatus(levels []Level, entries []ProgressEntry, index int) Status {
	return Resolver{}.Resolve(levels, entries, index)
}

// Resolve returns the status of levels[index]. Out-of-range indices are locked.
func (r Resolver) Resolve(levels []Level, entries []ProgressEntry, index int) Status {
	if index < 0 || index >= len(levels) {
		return StatusLocked
	}
	if len(entries) == 0 {
		return firstOnly(index)
	}

	if entry, ok := findEntry(entries, levels[index].ID); ok {
		if entry.Unlocked != nil {
			if !*entry.Unlocked {
				return StatusLocked
			}
			if entry.Status == ProgressCompleted {
				return StatusCompleted
			}
			return StatusCurrent
		}
		switch {
		case entry.Status == ProgressCompleted:
			return StatusCompleted
		case entry.Status == ProgressInProgress, entry.MarkedCurrent:
			return StatusCurrent
		}
	}
	return r.aggregate(levels, entries, index)
}

// ResolveAll resolves every level in order.
func (r Resolver) ResolveAll(levels []Level, entries []ProgressEntry) []Status {
	out := make([]Status, len(levels))
	for i := range levels {
		out[i] = r.Resolve(levels, entries, i)
	}
	return out
}

// PathActive reports whether the connector from level `from` to level `to`
// is lit: the source must be accessible and the target must not be locked.
func (r Resolver) PathActive(levels []Level, entries []ProgressEntry, from, to int) bool {
	if from < 0 || to < 0 || from >= len(levels) || to >= len(levels) {
		return false
	}
	return r.Resolve(levels, entries, from).Accessible() && r.Resolve(levels, entries, to).Accessible()
}

// PathActive evaluates a connector with the default Resolver.
func PathActive(levels []Level, entries []ProgressEntry, from, to int) bool {
	return Resolver{}.PathActive(levels, entries, from, to)
}

func (r Resolver) aggregate(levels []Level, entries []ProgressEntry, index int) Status {
	inProgress, hasInProgress := firstWithStatus(entries, ProgressInProgress)
	if hasInProgress {
		p := levelPosition(levels, inProgress.Key())
		if p < 0 {
			return StatusLocked
		}
		switch {
		case index < p:
			return StatusCompleted
		case index == p:
			return StatusCurrent
		case index == p+1 && r.ParityMode:
			return StatusCurrent
		}
		return StatusLocked
	}

	completed := 0
	maxCompleted := -1
	for _, e := range entries {
		if e.Status != ProgressCompleted {
			continue
		}
		completed++
		if pos := levelPosition(levels, e.Key()); pos > maxCompleted {
			maxCompleted = pos
		}
	}
	if completed == 0 {
		return firstOnly(index)
	}
	if maxCompleted >= 0 {
		if index <= maxCompleted {
			return StatusCompleted
		}
		if index == maxCompleted+1 {
			return StatusCurrent
		}
	}
	return StatusLocked
}

func firstOnly(index int) Status {
	if index == 0 {
		return StatusCurrent
	}
	return StatusLocked
}

func findEntry(entries []ProgressEntry, levelID ID) (ProgressEntry, bool) {
	for _, e := range entries {
		if e.Matches(levelID) {
			return e, true
		}
	}
	return ProgressEntry{}, false
}

func firstWithStatus(entries []ProgressEntry, status ProgressStatus) (ProgressEntry, bool) {
	for _, e := range entries {
		if e.Status == status {
			return e, true
		}
	}
	return ProgressEntry{}, false
}

func levelPosition(levels []Level, id ID) int {
	if id == "" {
		return -1
	}
	for i, lvl := range levels {
		if lvl.ID == id {
			return i
		}
	}
	return -1
}
