package lesson

import (
	"encoding/json"
	"strings"
	"testing"

	"edujourney/internal/journey"
)

func TestGetBodiesIntroductionAndMaterials(t *testing.T) {
	level := journey.Level{ID: "4", Title: " Variables\u200B ", Description: "\uFEFFLearn about variables.\x00"}
	materials := []journey.Material{
		{ID: "10", Content: json.RawMessage(`"Plain text body"`)},
		{ID: "11", Content: json.RawMessage(`"<p>Hello &amp; welcome</p>"`), ContentType: "html"},
		{ID: "12", Content: json.RawMessage(`{"type":"video","body":"https://video.example/v1","resources":[{"title":"Slides","url":"https://x/s.pdf"}]}`)},
	}
	bodies := GetBodies(level, materials)
	if len(bodies) != 4 {
		t.Fatalf("expected 4 bodies, got %d", len(bodies))
	}
	intro := bodies.At(0)
	if intro.Kind != KindIntroduction || intro.Content != "Learn about variables." || intro.Title != "Variables" {
		t.Fatalf("unexpected introduction %#v", intro)
	}
	if b := bodies.At(1); b.Content != "Plain text body" || b.ContentType != ContentText || b.Index != 0 {
		t.Fatalf("unexpected text body %#v", b)
	}
	html := bodies.At(2)
	if html.ContentType != ContentHTML || html.Text() != "Hello & welcome" {
		t.Fatalf("unexpected html body %#v text=%q", html, html.Text())
	}
	video := bodies.At(3)
	if video.ContentType != ContentVideo || video.Content != "" || video.ResourceURL != "https://video.example/v1" {
		t.Fatalf("unexpected video body %#v", video)
	}
	if len(video.Resources) != 1 || video.Resources[0].Title != "Slides" {
		t.Fatalf("expected resources from content object, got %#v", video.Resources)
	}
	if !bodies.IsLast(3) || bodies.IsLast(2) {
		t.Fatalf("unexpected last-body detection")
	}
}

func TestGetBodiesWithoutDescription(t *testing.T) {
	bodies := GetBodies(journey.Level{Title: "x"}, []journey.Material{{Content: json.RawMessage(`"only"`)}})
	if len(bodies) != 1 || bodies[0].Kind != KindMaterial {
		t.Fatalf("expected a single material body, got %#v", bodies)
	}
	if bodies[0].ID != "0" {
		t.Fatalf("expected index fallback id, got %q", bodies[0].ID)
	}
}

func TestGetBodiesCoercesOddPayloads(t *testing.T) {
	materials := []journey.Material{
		{Content: json.RawMessage(`{"type":"text","body":{"content":"nested"}}`)},
		{Content: json.RawMessage(`{"type":"text","body":{"other":1}}`)},
		{Body: json.RawMessage(`"from body field"`), Type: "html"},
		{Content: json.RawMessage(`null`), Text: json.RawMessage(`42`)},
		{Content: json.RawMessage(`{"type":"text","body":7}`)},
	}
	bodies := GetBodies(journey.Level{}, materials)
	if bodies[0].Content != "nested" {
		t.Fatalf("expected nested content, got %q", bodies[0].Content)
	}
	if bodies[1].Content != `{"other":1}` {
		t.Fatalf("expected encoded object, got %q", bodies[1].Content)
	}
	if bodies[2].Content != "from body field" || bodies[2].ContentType != "html" {
		t.Fatalf("unexpected fallback body %#v", bodies[2])
	}
	if bodies[3].Content != "" {
		t.Fatalf("expected non-string fallback to be empty, got %q", bodies[3].Content)
	}
	if bodies[4].Content != "7" {
		t.Fatalf("expected number to be stringified, got %q", bodies[4].Content)
	}
}

func TestSequenceAtPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for out-of-range body")
		}
	}()
	Sequence{{Kind: KindMaterial}}.At(1)
}

func TestSanitizeText(t *testing.T) {
	in := "\u00EF\u00BB\u00BF\uFEFF  Hi\x01 there\u200C\ttab\r\nnew\uFFFE\x7f  "
	if got := SanitizeText(in); got != "Hi there\ttab\r\nnew" {
		t.Fatalf("unexpected sanitized text %q", got)
	}
	if got := SanitizeText("bad\xffbyte"); got != "badbyte" {
		t.Fatalf("expected invalid bytes to be dropped, got %q", got)
	}
}

func TestHTMLToTextDropsScripts(t *testing.T) {
	got := HTMLToText(`<h2>Title</h2><script>alert(1)</script><ul><li>one</li><li>two</li></ul>`)
	if strings.Contains(got, "alert") || strings.Contains(got, "<") {
		t.Fatalf("expected tags and scripts removed, got %q", got)
	}
	if !strings.Contains(got, "• one") || !strings.Contains(got, "• two") {
		t.Fatalf("expected bullets, got %q", got)
	}
}
