package lesson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"edujourney/internal/journey"
)

type Kind string

const (
	KindIntroduction Kind = "introduction"
	KindMaterial     Kind = "material"
)

const (
	ContentText  = "text"
	ContentHTML  = "html"
	ContentVideo = "video"
)

// Body is one page of a lesson visit.
type Body struct {
	Kind        Kind
	ID          journey.ID
	Index       int
	Title       string
	Content     string
	ContentType string
	ResourceURL string
	Resources   []Resource
}

type Resource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Text returns the body as terminal text: HTML is flattened, everything
// else is passed through.
func (b Body) Text() string {
	if b.ContentType == ContentHTML {
		return HTMLToText(b.Content)
	}
	return b.Content
}

// Sequence is the ordered list of bodies for one lesson.
type Sequence []Body

// At returns body i. Asking for a body outside the sequence is a caller bug.
func (s Sequence) At(i int) Body {
	if i < 0 || i >= len(s) {
		panic(fmt.Sprintf("lesson: body index %d out of range [0,%d)", i, len(s)))
	}
	return s[i]
}

func (s Sequence) IsLast(i int) bool {
	return len(s) > 0 && i == len(s)-1
}

// GetBodies splits a level into pages: the description becomes an
// introduction and each material becomes its own page, in the order given.
func GetBodies(level journey.Level, materials []journey.Material) Sequence {
	bodies := make(Sequence, 0, len(materials)+1)
	if level.Description != "" {
		bodies = append(bodies, Body{
			Kind:        KindIntroduction,
			Content:     SanitizeText(level.Description),
			ContentType: ContentText,
			Title:       SanitizeText(level.Title),
		})
	}
	for i, m := range materials {
		bodies = append(bodies, materialBody(i, m))
	}
	return bodies
}

func materialBody(index int, m journey.Material) Body {
	var (
		raw         json.RawMessage
		contentType = ContentText
		resourceURL string
		resources   = m.Resources
	)
	content := bytes.TrimSpace(m.Content)

	switch {
	case isObject(content):
		var obj struct {
			Type      string          `json:"type"`
			Body      json.RawMessage `json:"body"`
			Resources json.RawMessage `json:"resources"`
		}
		_ = json.Unmarshal(content, &obj)
		raw = obj.Body
		if obj.Type != "" {
			contentType = obj.Type
		}
		if obj.Type == ContentVideo {
			resourceURL = coerce(obj.Body)
			raw = nil
		}
		if len(obj.Resources) > 0 && !isNull(obj.Resources) {
			resources = obj.Resources
		}
	case isString(content):
		raw = content
		if m.ContentType != "" {
			contentType = m.ContentType
		}
	default:
		for _, candidate := range []json.RawMessage{m.Body, m.Content, m.Text} {
			if truthy(candidate) {
				if isString(bytes.TrimSpace(candidate)) {
					raw = candidate
				}
				break
			}
		}
		switch {
		case m.ContentType != "":
			contentType = m.ContentType
		case m.Type != "":
			contentType = m.Type
		}
	}

	if resourceURL == "" {
		resourceURL = m.ResourceURL
	}
	id := m.ID
	if id == "" || id == "0" {
		id = journey.ID(strconv.Itoa(index))
	}
	return Body{
		Kind:        KindMaterial,
		ID:          id,
		Index:       index,
		Content:     SanitizeText(coerce(raw)),
		ContentType: contentType,
		ResourceURL: resourceURL,
		Resources:   decodeResources(resources),
	}
}

// coerce turns any JSON payload into display text. Objects contribute their
// body or content field, or their encoding when neither is set.
func coerce(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return ""
	case float64:
		if t == 0 {
			return ""
		}
		return strconv.FormatFloat(t, 'f', -1, 64)
	case map[string]any:
		for _, key := range []string{"body", "content"} {
			if s, ok := t[key].(string); ok && s != "" {
				return s
			}
		}
		return string(raw)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func decodeResources(raw json.RawMessage) []Resource {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || isNull(raw) {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]Resource, 0, len(items))
	for _, item := range items {
		var url string
		if err := json.Unmarshal(item, &url); err == nil {
			out = append(out, Resource{URL: url})
			continue
		}
		var r struct {
			Title string `json:"title"`
			Name  string `json:"name"`
			URL   string `json:"url"`
			Link  string `json:"link"`
		}
		if err := json.Unmarshal(item, &r); err != nil {
			continue
		}
		res := Resource{Title: r.Title, URL: r.URL}
		if res.Title == "" {
			res.Title = r.Name
		}
		if res.URL == "" {
			res.URL = r.Link
		}
		if res.URL != "" || res.Title != "" {
			out = append(out, res)
		}
	}
	return out
}

// isObject matches what a loose "typeof x === 'object'" check accepts:
// objects and arrays, but not null.
func isObject(raw json.RawMessage) bool {
	return len(raw) > 0 && (raw[0] == '{' || raw[0] == '[')
}

func isString(raw json.RawMessage) bool {
	return len(raw) > 0 && raw[0] == '"'
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func truthy(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
