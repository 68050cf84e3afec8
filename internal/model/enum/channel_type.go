package enum

// ChannelType is the wire value of a channel's type.
type ChannelType int

const (
	ChannelGuildText          ChannelType = 0
	ChannelDM                 ChannelType = 1
	ChannelGuildVoice         ChannelType = 2
	ChannelGroupDM            ChannelType = 3
	ChannelGuildCategory      ChannelType = 4
	ChannelGuildAnnouncement  ChannelType = 5
	ChannelAnnouncementThread ChannelType = 10
	ChannelPublicThread       ChannelType = 11
	ChannelPrivateThread      ChannelType = 12
	ChannelGuildStageVoice    ChannelType = 13
	ChannelGuildDirectory     ChannelType = 14
	ChannelGuildForum         ChannelType = 15
	ChannelGuildMedia         ChannelType = 16
)

// IsPrivate reports whether the channel is a direct or group message channel.
func (t ChannelType) IsPrivate() bool {
	return t == ChannelDM || t == ChannelGroupDM
}

// IsThread reports whether the channel is a thread.
func (t ChannelType) IsThread() bool {
	return t == ChannelAnnouncementThread || t == ChannelPublicThread || t == ChannelPrivateThread
}

// IsTextual reports whether messages can be posted to the channel.
func (t ChannelType) IsTextual() bool {
	switch t {
	case ChannelGuildText, ChannelDM, ChannelGroupDM, ChannelGuildAnnouncement,
		ChannelAnnouncementThread, ChannelPublicThread, ChannelPrivateThread:
		return true
	default:
		return false
	}
}
