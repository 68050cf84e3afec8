package model

import "accord/internal/model/enum"

type Guild struct {
	ID       Snowflake `json:"id"`
	Name     string    `json:"name"`
	Icon     *string   `json:"icon,omitempty"`
	Channels []Channel `json:"channels"`
}

type Channel struct {
	ID            Snowflake        `json:"id"`
	Type          enum.ChannelType `json:"type"`
	Name          *string          `json:"name,omitempty"`
	Position      *int             `json:"position,omitempty"`
	ParentID      *Snowflake       `json:"parent_id,omitempty"`
	LastMessageID *Snowflake       `json:"last_message_id,omitempty"`
	Recipients    []User           `json:"recipients,omitempty"`
}

// Presence is a status change for one user.
type Presence struct {
	UserID Snowflake   `json:"user_id"`
	Status enum.Status `json:"status"`
}

// Typing reports a user starting to type in a channel.
type Typing struct {
	UserID    Snowflake  `json:"user_id"`
	ChannelID Snowflake  `json:"channel_id"`
	GuildID   *Snowflake `json:"guild_id,omitempty"`
	Timestamp int64      `json:"timestamp"`
}
