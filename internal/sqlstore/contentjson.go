package sqlstore

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/chitter-chat/chitter-server/internal/chitter"
)

// contentJSON is the JSONB shape stored in messages.content. It mirrors chitter.Content but flattens the tagged
// Embed union into a single struct with an explicit kind discriminator, and stores fully resolved attachment
// records rather than bare ids — attachments are resolved once, at create/edit time, and never re-joined on read.
type contentJSON struct {
	Text        string           `json:"text"`
	Facets      []facetJSON      `json:"facets,omitempty"`
	Embed       *embedJSON       `json:"embed,omitempty"`
	Attachments []attachmentJSON `json:"attachments,omitempty"`
}

type facetJSON struct {
	Type  string  `json:"type"`
	Start int     `json:"start"`
	End   int     `json:"end"`
	Value *string `json:"value,omitempty"`
}

type embedJSON struct {
	Kind        string     `json:"kind"`
	MessageID   *uuid.UUID `json:"messageId,omitempty"`
	RoomID      *uuid.UUID `json:"roomId,omitempty"`
	URI         string     `json:"uri,omitempty"`
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	Thumb       string     `json:"thumb,omitempty"`
}

type attachmentJSON struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	UserID    uuid.UUID `json:"userId"`
	FileName  string    `json:"fileName"`
	Path      string    `json:"path"`
	Width     *int      `json:"width,omitempty"`
	Height    *int      `json:"height,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toAttachmentJSON(a chitter.Attachment) attachmentJSON {
	return attachmentJSON{
		ID: a.ID, Type: string(a.Type), UserID: a.UserID, FileName: a.FileName, Path: a.Path,
		Width: a.Width, Height: a.Height, CreatedAt: a.CreatedAt,
	}
}

func fromAttachmentJSON(a attachmentJSON) chitter.Attachment {
	return chitter.Attachment{
		ID: a.ID, Type: chitter.AttachmentType(a.Type), UserID: a.UserID, FileName: a.FileName, Path: a.Path,
		Width: a.Width, Height: a.Height, CreatedAt: a.CreatedAt,
	}
}

// marshalContent builds the stored JSONB payload for content, given attachments already resolved and owned.
func marshalContent(content chitter.Content, attachments []chitter.Attachment) ([]byte, error) {
	cj := contentJSON{Text: content.Text}
	for _, f := range content.Facets {
		fj := facetJSON{Type: string(f.Type), Start: f.Start, End: f.End}
		if f.HasValue {
			fj.Value = &f.Value
		}
		cj.Facets = append(cj.Facets, fj)
	}
	if content.Embed != nil {
		ej := &embedJSON{}
		switch content.Embed.Kind {
		case chitter.EmbedMessage:
			ej.Kind = "message"
			ej.MessageID = &content.Embed.MessageID
			ej.RoomID = &content.Embed.RoomID
		case chitter.EmbedExternal:
			ej.Kind = "external"
			ej.URI = content.Embed.URI
			ej.Title = content.Embed.Title
			ej.Description = content.Embed.Description
			if content.Embed.HasThumb {
				ej.Thumb = content.Embed.Thumb
			}
		}
		cj.Embed = ej
	}
	for _, a := range attachments {
		cj.Attachments = append(cj.Attachments, toAttachmentJSON(a))
	}
	return json.Marshal(cj)
}

// unmarshalContent reconstructs a chitter.Content from its stored JSONB form.
func unmarshalContent(raw []byte) (chitter.Content, error) {
	var cj contentJSON
	if err := json.Unmarshal(raw, &cj); err != nil {
		return chitter.Content{}, err
	}

	content := chitter.Content{Text: cj.Text}
	for _, fj := range cj.Facets {
		f := chitter.Facet{Type: chitter.FacetType(fj.Type), Start: fj.Start, End: fj.End}
		if fj.Value != nil {
			f.Value = *fj.Value
			f.HasValue = true
		}
		content.Facets = append(content.Facets, f)
	}
	if cj.Embed != nil {
		switch cj.Embed.Kind {
		case "message":
			content.Embed = &chitter.Embed{Kind: chitter.EmbedMessage}
			if cj.Embed.MessageID != nil {
				content.Embed.MessageID = *cj.Embed.MessageID
			}
			if cj.Embed.RoomID != nil {
				content.Embed.RoomID = *cj.Embed.RoomID
			}
		case "external":
			content.Embed = &chitter.Embed{
				Kind: chitter.EmbedExternal, URI: cj.Embed.URI, Title: cj.Embed.Title, Description: cj.Embed.Description,
			}
			if cj.Embed.Thumb != "" {
				content.Embed.Thumb = cj.Embed.Thumb
				content.Embed.HasThumb = true
			}
		}
	}
	for _, aj := range cj.Attachments {
		a := fromAttachmentJSON(aj)
		content.Attachments = append(content.Attachments, a)
		content.AttachmentIDs = append(content.AttachmentIDs, a.ID)
	}
	return content, nil
}
