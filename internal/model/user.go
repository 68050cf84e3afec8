package model

import (
	"strings"

	"accord/internal/model/enum"
)

const avatarCDN = "https://cdn.discordapp.com/avatars/"

// User is a gateway user. Optional fields are nil when absent from the payload.
type User struct {
	ID         Snowflake    `json:"id"`
	Username   string       `json:"username"`
	GlobalName *string      `json:"global_name,omitempty"`
	Avatar     *string      `json:"avatar,omitempty"`
	Status     *enum.Status `json:"status,omitempty"`
}

// DisplayName prefers the global name over the username.
func (u User) DisplayName() string {
	if u.GlobalName != nil && *u.GlobalName != "" {
		return *u.GlobalName
	}
	return u.Username
}

// AvatarURL returns the 64px avatar image URL, or "" when the user has no avatar.
// Animated hashes use gif, everything else webp.
func (u User) AvatarURL() string {
	if u.Avatar == nil || *u.Avatar == "" {
		return ""
	}
	hash := *u.Avatar
	ext := ".webp"
	if strings.HasPrefix(hash, "a_") {
		ext = ".gif"
	}
	return avatarCDN + string(u.ID) + "/" + hash + ext + "?size=64"
}

// WithStatus returns a copy of u carrying status.
func (u User) WithStatus(status enum.Status) User {
	u.Status = &status
	return u
}
