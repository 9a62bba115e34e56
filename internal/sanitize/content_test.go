package sanitize

import (
	"errors"
	"testing"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

func TestContent_RejectsNonMapping(t *testing.T) {
	t.Parallel()
	_, err := Content("not a map")
	assertTag(t, err, chitter.InvalidContentStructure)
}

func TestContent_RejectsEmptyText(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name  string
		input map[string]any
	}{
		{"missing text", map[string]any{}},
		{"empty string", map[string]any{"text": ""}},
		{"non-string text", map[string]any{"text": 5}},
		{"html-only text", map[string]any{"text": "<script>alert(1)</script>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Content(tt.input)
			assertTag(t, err, chitter.InvalidTextContent)
		})
	}
}

func TestContent_AcceptsPlainText(t *testing.T) {
	t.Parallel()
	content, err := Content(map[string]any{"text": "hello"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Text != "hello" {
		t.Errorf("Text = %q, want %q", content.Text, "hello")
	}
}

func TestContent_FacetBoundaries(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		facet   map[string]any
		wantErr bool
	}{
		{"start equals end", map[string]any{"type": "mention", "start": 1.0, "end": 1.0}, true},
		{"end equals len(text)", map[string]any{"type": "mention", "start": 0.0, "end": 5.0}, false},
		{"end beyond len(text)", map[string]any{"type": "mention", "start": 0.0, "end": 6.0}, true},
		{"negative start", map[string]any{"type": "mention", "start": -1.0, "end": 2.0}, true},
		{"unknown type", map[string]any{"type": "emoji", "start": 0.0, "end": 1.0}, true},
		{"non-string value", map[string]any{"type": "code", "start": 0.0, "end": 1.0, "value": 5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Content(map[string]any{"text": "hello", "facets": []any{tt.facet}})
			if tt.wantErr {
				assertTag(t, err, chitter.InvalidFacet)
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestContent_MessageEmbed(t *testing.T) {
	t.Parallel()
	msgID := "550e8400-e29b-41d4-a716-446655440000"
	roomID := "550e8400-e29b-41d4-a716-446655440001"

	content, err := Content(map[string]any{
		"text":  "hi",
		"embed": map[string]any{"messageId": msgID, "roomId": roomID},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Embed == nil || content.Embed.Kind != chitter.EmbedMessage {
		t.Fatalf("expected a message embed, got %+v", content.Embed)
	}

	_, err = Content(map[string]any{
		"text":  "hi",
		"embed": map[string]any{"messageId": msgID, "roomId": roomID, "extra": "nope"},
	})
	assertTag(t, err, chitter.InvalidEmbed)
}

func TestContent_ExternalEmbed(t *testing.T) {
	t.Parallel()
	content, err := Content(map[string]any{
		"text": "hi",
		"embed": map[string]any{
			"uri": "https://example.com", "title": "Example", "description": "desc",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Embed == nil || content.Embed.Kind != chitter.EmbedExternal {
		t.Fatalf("expected an external embed, got %+v", content.Embed)
	}

	_, err = Content(map[string]any{
		"text":  "hi",
		"embed": map[string]any{"uri": "https://example.com", "title": "Example"},
	})
	assertTag(t, err, chitter.InvalidEmbed)
}

func TestContent_AttachmentIDsKeepsOnlyValidUUIDs(t *testing.T) {
	t.Parallel()
	content, err := Content(map[string]any{
		"text":          "hi",
		"attachmentIds": []any{"550e8400-e29b-41d4-a716-446655440000", "not-a-uuid", 5},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(content.AttachmentIDs) != 1 {
		t.Fatalf("expected 1 valid attachment id, got %d", len(content.AttachmentIDs))
	}
}

func assertTag(t *testing.T, err error, want chitter.ErrorTag) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error tag %s, got nil", want)
	}
	var tagged *chitter.TaggedError
	if !errors.As(err, &tagged) {
		t.Fatalf("expected a TaggedError, got %v", err)
	}
	if tagged.Tag != want {
		t.Errorf("tag = %s, want %s", tagged.Tag, want)
	}
}
