package gateway

import (
	"accord/internal/model/enum"
	"accord/internal/schema"
)

type identifyPayload struct {
	Capabilities int             `json:"capabilities"`
	Compress     bool            `json:"compress"`
	Token        string          `json:"token"`
	Properties   Properties      `json:"properties"`
	Presence     presencePayload `json:"presence"`
}

type presencePayload struct {
	Activities []activity  `json:"activities"`
	Status     enum.Status `json:"status"`
	Since      *int64      `json:"since"`
	AFK        bool        `json:"afk"`
}

type activity struct {
	Name string            `json:"name"`
	Type enum.ActivityType `json:"type"`
}

// identifyFrame builds the op 2 frame. Payload compression is never requested;
// transport compression is negotiated through the URL.
func identifyFrame(cfg Config) schema.Outbound {
	presence := presencePayload{
		Activities: []activity{},
		Status:     cfg.Identify.Presence.Status,
		AFK:        cfg.Identify.Presence.AFK,
	}
	if presence.Status == "" {
		presence.Status = enum.StatusOnline
	}
	if name := cfg.Identify.Presence.Activity; name != "" {
		presence.Activities = append(presence.Activities, activity{Name: name, Type: cfg.Identify.Presence.ActivityType})
	}
	return schema.Outbound{
		Op: schema.OpIdentify,
		D: identifyPayload{
			Capabilities: cfg.Identify.Capabilities,
			Compress:     false,
			Token:        cfg.Token,
			Properties:   cfg.Identify.Properties,
			Presence:     presence,
		},
	}
}
