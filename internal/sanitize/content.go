// Package sanitize implements the pure, deterministic transform from untrusted message content into the canonical
// chitter.Content value (or a tagged content error). It has no storage or network dependencies and is safe to call
// outside any transaction.
package sanitize

import (
	"errors"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// htmlPolicy strips all markup from message text before validation, so content consisting only of HTML collapses to
// empty text rather than being stored or later rendered as live markup.
var htmlPolicy = bluemonday.StrictPolicy()

// Content validates and canonicalizes an arbitrary, untrusted input value (typically a JSON-decoded
// map[string]any) into a chitter.Content. On failure it returns a chitter.TaggedError carrying one of
// InvalidContentStructure, InvalidTextContent, InvalidFacet, or InvalidEmbed.
func Content(input any) (chitter.Content, error) {
	raw, ok := input.(map[string]any)
	if !ok {
		return chitter.Content{}, chitter.Fail(chitter.InvalidContentStructure)
	}

	text := stringField(raw, "text")
	text = htmlPolicy.Sanitize(text)
	if text == "" {
		return chitter.Content{}, chitter.Fail(chitter.InvalidTextContent)
	}

	facets, err := parseFacets(raw["facets"], text)
	if err != nil {
		return chitter.Content{}, err
	}

	embed, err := parseEmbed(raw["embed"])
	if err != nil {
		return chitter.Content{}, err
	}

	return chitter.Content{
		Text:          text,
		Facets:        facets,
		Embed:         embed,
		AttachmentIDs: parseAttachmentIDs(raw["attachmentIds"]),
	}, nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func parseFacets(raw any, text string) ([]chitter.Facet, error) {
	if raw == nil {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, chitter.Fail(chitter.InvalidFacet)
	}

	textLen := utf8.RuneCountInString(text)
	facets := make([]chitter.Facet, 0, len(list))
	for _, elem := range list {
		m, ok := elem.(map[string]any)
		if !ok {
			return nil, chitter.Fail(chitter.InvalidFacet)
		}

		typeStr, ok := m["type"].(string)
		if !ok {
			return nil, chitter.Fail(chitter.InvalidFacet)
		}
		facetType := chitter.FacetType(typeStr)
		switch facetType {
		case chitter.FacetMention, chitter.FacetLink, chitter.FacetCode:
		default:
			return nil, chitter.Fail(chitter.InvalidFacet)
		}

		start, ok := asInt(m["start"])
		if !ok {
			return nil, chitter.Fail(chitter.InvalidFacet)
		}
		end, ok := asInt(m["end"])
		if !ok {
			return nil, chitter.Fail(chitter.InvalidFacet)
		}
		if start < 0 || start >= end || end > textLen {
			return nil, chitter.Fail(chitter.InvalidFacet)
		}

		facet := chitter.Facet{Type: facetType, Start: start, End: end}
		if rawValue, present := m["value"]; present {
			value, ok := rawValue.(string)
			if !ok {
				return nil, chitter.Fail(chitter.InvalidFacet)
			}
			facet.Value = value
			facet.HasValue = true
		}
		facets = append(facets, facet)
	}
	return facets, nil
}

func parseEmbed(raw any) (*chitter.Embed, error) {
	if raw == nil {
		return nil, nil
	}
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, chitter.Fail(chitter.InvalidEmbed)
	}
	if len(m) == 0 {
		return nil, nil
	}

	_, hasMessageID := m["messageId"]
	_, hasRoomID := m["roomId"]
	if hasMessageID && hasRoomID {
		if len(m) != 2 {
			return nil, chitter.Fail(chitter.InvalidEmbed)
		}
		messageID, err := asUUID(m["messageId"])
		if err != nil {
			return nil, chitter.Fail(chitter.InvalidEmbed)
		}
		roomID, err := asUUID(m["roomId"])
		if err != nil {
			return nil, chitter.Fail(chitter.InvalidEmbed)
		}
		return &chitter.Embed{Kind: chitter.EmbedMessage, MessageID: messageID, RoomID: roomID}, nil
	}

	_, hasURI := m["uri"]
	_, hasTitle := m["title"]
	_, hasDescription := m["description"]
	if hasURI && hasTitle && hasDescription {
		_, hasThumb := m["thumb"]
		wantKeys := 3
		if hasThumb {
			wantKeys = 4
		}
		if len(m) != wantKeys {
			return nil, chitter.Fail(chitter.InvalidEmbed)
		}
		uri, ok1 := m["uri"].(string)
		title, ok2 := m["title"].(string)
		description, ok3 := m["description"].(string)
		if !ok1 || !ok2 || !ok3 {
			return nil, chitter.Fail(chitter.InvalidEmbed)
		}
		embed := &chitter.Embed{Kind: chitter.EmbedExternal, URI: uri, Title: title, Description: description}
		if hasThumb {
			thumb, ok := m["thumb"].(string)
			if !ok {
				return nil, chitter.Fail(chitter.InvalidEmbed)
			}
			embed.Thumb = thumb
			embed.HasThumb = true
		}
		return embed, nil
	}

	return nil, chitter.Fail(chitter.InvalidEmbed)
}

func parseAttachmentIDs(raw any) []uuid.UUID {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var ids []uuid.UUID
	for _, elem := range list {
		s, ok := elem.(string)
		if !ok {
			continue
		}
		id, err := uuid.Parse(s)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func asUUID(v any) (uuid.UUID, error) {
	s, ok := v.(string)
	if !ok {
		return uuid.UUID{}, errNotAString
	}
	return uuid.Parse(s)
}

var errNotAString = errors.New("value is not a string")
