package journey

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// DecodeJourneyMap folds whatever shape the progress endpoint returned into
// a flat entry list. It accepts a bare array or an object holding the array
// under "levels"; anything else decodes to an empty map. Rows that cannot be
// read are skipped.
func DecodeJourneyMap(data []byte) []ProgressEntry {
	rows := decodeRows(data, "levels")
	out := make([]ProgressEntry, 0, len(rows))
	for _, row := range rows {
		if entry, ok := NormalizeProgress(row); ok {
			out = append(out, entry)
		}
	}
	return out
}

// NormalizeProgress converts one raw journey row into a ProgressEntry.
func NormalizeProgress(row json.RawMessage) (ProgressEntry, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(row, &fields); err != nil || fields == nil {
		return ProgressEntry{}, false
	}
	var entry ProgressEntry
	if raw, ok := fields["id"]; ok {
		_ = entry.ID.UnmarshalJSON(raw)
	}
	if raw, ok := fields["level_id"]; ok {
		_ = entry.LevelID.UnmarshalJSON(raw)
	}

	status := progressStatus(stringField(fields, "status"))
	journeyStatus := strings.ToLower(strings.TrimSpace(stringField(fields, "journey_status")))
	if status == ProgressNotStarted {
		status = progressStatus(journeyStatus)
	}
	entry.Status = status
	entry.MarkedCurrent = journeyStatus == "current"

	// Presence alone selects the new contract, even when the value is null.
	if raw, ok := fields["is_unlocked"]; ok {
		v := truthy(raw)
		entry.Unlocked = &v
	}
	entry.Title = stringField(fields, "title")
	entry.Score = intField(fields, "score")
	return entry, true
}

// DecodeLevels reads a level list that may be a bare array or wrapped under
// "levels". Levels come back ordered by level_index when it is set.
func DecodeLevels(data []byte) []Level {
	rows := decodeRows(data, "levels")
	out := make([]Level, 0, len(rows))
	for _, row := range rows {
		var lvl Level
		if err := json.Unmarshal(row, &lvl); err != nil {
			continue
		}
		out = append(out, lvl)
	}
	for _, lvl := range out {
		if lvl.LevelIndex <= 0 {
			return out
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LevelIndex < out[j].LevelIndex })
	return out
}

// SortMaterials orders materials by order_index without disturbing ties.
func SortMaterials(materials []Material) []Material {
	out := append([]Material(nil), materials...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out
}

func decodeRows(data []byte, key string) []json.RawMessage {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil
	}
	switch data[0] {
	case '[':
		var rows []json.RawMessage
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil
		}
		return rows
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(data, &wrapper); err != nil {
			return nil
		}
		inner, ok := wrapper[key]
		if !ok {
			return nil
		}
		inner = bytes.TrimSpace(inner)
		if len(inner) == 0 || inner[0] != '[' {
			return nil
		}
		var rows []json.RawMessage
		if err := json.Unmarshal(inner, &rows); err != nil {
			return nil
		}
		return rows
	default:
		return nil
	}
}

func progressStatus(raw string) ProgressStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed":
		return ProgressCompleted
	case "in_progress":
		return ProgressInProgress
	default:
		return ProgressNotStarted
	}
}

func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func intField(fields map[string]json.RawMessage, name string) int {
	raw, ok := fields[name]
	if !ok {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return 0
	}
	return int(f)
}

func truthy(raw json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != ""
	case nil:
		return false
	default:
		return true
	}
}
