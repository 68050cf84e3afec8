package model

// Message is a channel message.
type Message struct {
	ID          Snowflake    `json:"id"`
	ChannelID   Snowflake    `json:"channel_id"`
	Author      User         `json:"author"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments"`
	Timestamp   Timestamp    `json:"timestamp"`
}

type Attachment struct {
	ID          Snowflake `json:"id"`
	Filename    string    `json:"filename"`
	URL         string    `json:"url"`
	ContentType *string   `json:"content_type,omitempty"`
	Width       *int      `json:"width,omitempty"`
	Height      *int      `json:"height,omitempty"`
}

// IsImage reports whether the attachment declares an image content type.
func (a Attachment) IsImage() bool {
	return a.ContentType != nil && len(*a.ContentType) >= 6 && (*a.ContentType)[:6] == "image/"
}
