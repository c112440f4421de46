package devtools

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResolveKnownAndUnknownScenarios(t *testing.T) {
	m := NewManager()
	if got := m.Resolve("lesson_countdown"); got.Screen != ScreenLesson || got.Name != "lesson" {
		t.Fatalf("unexpected lesson scenario %#v", got)
	}
	if got := m.Resolve("toast"); got.Screen != ScreenJourney || got.Overlay != "toast" {
		t.Fatalf("unexpected toast scenario %#v", got)
	}
	if got := m.Resolve("no-such-demo"); got.Screen != ScreenJourney {
		t.Fatalf("unknown scenarios should land on the journey, got %#v", got)
	}
}

func TestSetStateWritesJSON(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "cache")
	if err := NewManager().SetState(context.Background(), dir, " journey ", true); err != nil {
		t.Fatalf("set state: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "dev_state.json"))
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	if !strings.Contains(string(b), `"state":"journey"`) || !strings.Contains(string(b), `"rendered":true`) {
		t.Fatalf("unexpected state file %s", b)
	}
}
