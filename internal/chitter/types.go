// Package chitter defines the shared domain types, error taxonomy, and service contract implemented identically by
// the SQL-backed and in-memory storage backends.
package chitter

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role is a User's privilege level within its Room.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleParticipant Role = "participant"
)

// AttachmentType classifies the media referenced by an Attachment.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentVideo AttachmentType = "video"
	AttachmentFile  AttachmentType = "file"
)

// FacetType classifies a range annotation over a Message's text.
type FacetType string

const (
	FacetMention FacetType = "mention"
	FacetLink    FacetType = "link"
	FacetCode    FacetType = "code"
)

// Room is a tenant's entire chat world: an isolated set of users, channels, and messages.
type Room struct {
	ID              uuid.UUID  `json:"id"`
	CreatedAt       time.Time  `json:"createdAt"`
	DisplayName     string     `json:"displayName"`
	Description     string     `json:"description,omitempty"`
	LogoAttachment  *uuid.UUID `json:"logoAttachmentId,omitempty"`
	AdminInviteOnly bool       `json:"adminInviteOnly"`
}

// User belongs to exactly one Room and authenticates with an opaque bearer token.
type User struct {
	ID               uuid.UUID  `json:"id"`
	RoomID           uuid.UUID  `json:"roomId"`
	CreatedAt        time.Time  `json:"createdAt"`
	Token            string     `json:"token"`
	DisplayName      string     `json:"displayName"`
	Description      string     `json:"description,omitempty"`
	AvatarAttachment *uuid.UUID `json:"avatarAttachmentId,omitempty"`
	Role             Role       `json:"role"`
}

// Channel is a named conversation within a Room, public or private.
type Channel struct {
	ID          uuid.UUID `json:"id"`
	RoomID      uuid.UUID `json:"roomId"`
	CreatedAt   time.Time `json:"createdAt"`
	DisplayName string    `json:"displayName"`
	Description string    `json:"description,omitempty"`
	IsPrivate   bool      `json:"isPrivate"`
	CreatedBy   uuid.UUID `json:"createdBy"`
}

// Facet is a range annotation over a Message's text.
type Facet struct {
	Type  FacetType `json:"type"`
	Start int       `json:"start"`
	End   int       `json:"end"`
	Value string    `json:"-"`
	// HasValue distinguishes an absent value from an explicit empty string, since Value is optional input.
	HasValue bool `json:"-"`
}

// facetJSON is Facet's wire shape: value is present only when HasValue is set, since an explicit empty string and
// an absent value are distinct per spec.md §4.1.
type facetJSON struct {
	Type  FacetType `json:"type"`
	Start int       `json:"start"`
	End   int       `json:"end"`
	Value *string   `json:"value,omitempty"`
}

// MarshalJSON emits Value only when HasValue is true.
func (f Facet) MarshalJSON() ([]byte, error) {
	fj := facetJSON{Type: f.Type, Start: f.Start, End: f.End}
	if f.HasValue {
		fj.Value = &f.Value
	}
	return json.Marshal(fj)
}

// EmbedKind discriminates the two Embed variants.
type EmbedKind int

const (
	EmbedNone EmbedKind = iota
	EmbedMessage
	EmbedExternal
)

// Embed is a tagged union: a reference to another message in the same room, or an external link preview.
type Embed struct {
	Kind EmbedKind

	// MessageEmbed fields.
	MessageID uuid.UUID
	RoomID    uuid.UUID

	// ExternalEmbed fields.
	URI         string
	Title       string
	Description string
	Thumb       string
	HasThumb    bool
}

// messageEmbedJSON is the wire shape of a MessageEmbed, per spec.md §3: {messageId, roomId} only.
type messageEmbedJSON struct {
	MessageID uuid.UUID `json:"messageId"`
	RoomID    uuid.UUID `json:"roomId"`
}

// externalEmbedJSON is the wire shape of an ExternalEmbed, per spec.md §3: {uri, title, description, thumb?}.
type externalEmbedJSON struct {
	URI         string  `json:"uri"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Thumb       *string `json:"thumb,omitempty"`
}

// MarshalJSON emits the tagged-union shape spec.md §3 describes for Embed — a MessageEmbed's {messageId,roomId} or
// an ExternalEmbed's {uri,title,description,thumb?} — rather than the flat Kind+all-fields struct Embed holds
// internally.
func (e Embed) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case EmbedMessage:
		return json.Marshal(messageEmbedJSON{MessageID: e.MessageID, RoomID: e.RoomID})
	case EmbedExternal:
		ej := externalEmbedJSON{URI: e.URI, Title: e.Title, Description: e.Description}
		if e.HasThumb {
			ej.Thumb = &e.Thumb
		}
		return json.Marshal(ej)
	default:
		return []byte("null"), nil
	}
}

// Content is the immutable, canonical value produced by the sanitizer and stored with a Message.
type Content struct {
	Text          string       `json:"text"`
	Facets        []Facet      `json:"facets,omitempty"`
	Embed         *Embed       `json:"embed,omitempty"`
	AttachmentIDs []uuid.UUID  `json:"attachmentIds,omitempty"` // input form: ids to resolve
	Attachments   []Attachment `json:"attachments,omitempty"`   // resolved form: populated on create/edit
}

// Message is bound to exactly one of ChannelID or DirectMessageUserID.
type Message struct {
	ID                  int64      `json:"id"`
	RoomID              uuid.UUID  `json:"roomId"`
	UserID              uuid.UUID  `json:"userId"`
	CreatedAt           time.Time  `json:"createdAt"`
	Content             Content    `json:"content"`
	ChannelID           *uuid.UUID `json:"channelId,omitempty"`
	DirectMessageUserID *uuid.UUID `json:"directMessageUserId,omitempty"`
	Edited              bool       `json:"edited"`
}

// Attachment is an uploaded media record owned by a User.
type Attachment struct {
	ID        uuid.UUID      `json:"id"`
	Type      AttachmentType `json:"type"`
	UserID    uuid.UUID      `json:"userId"`
	FileName  string         `json:"fileName"`
	Path      string         `json:"path"`
	Width     *int           `json:"width,omitempty"`
	Height    *int           `json:"height,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}
