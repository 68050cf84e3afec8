package gateway

import (
	"accord/internal/bus"
	"accord/internal/model"
	"accord/internal/model/enum"
	"accord/internal/obs"
)

// Me is the topic the session's own user is published under.
const Me model.Snowflake = "me"

// Events holds one bus per domain event kind.
type Events struct {
	messages  *bus.Bus[model.Message]
	presences *bus.Bus[model.Presence]
	typing    *bus.Bus[model.Typing]
	users     *bus.Bus[model.User]
	guilds    *bus.Bus[model.Guild]
	states    *bus.Bus[State]
	metrics   *obs.Metrics
}

func newEvents(metrics *obs.Metrics) *Events {
	return &Events{
		messages:  bus.New[model.Message](),
		presences: bus.New[model.Presence](),
		typing:    bus.New[model.Typing](),
		users:     bus.New[model.User](),
		guilds:    bus.New[model.Guild](),
		states:    bus.New[State](),
		metrics:   metrics,
	}
}

func (e *Events) publishMessage(m model.Message) {
	e.messages.Publish(bus.Topic(m.ChannelID), m)
	e.metrics.IncEvent(enum.EventKindMessage)
}

func (e *Events) publishPresence(p model.Presence) {
	e.presences.Publish(bus.Topic(p.UserID), p)
	e.metrics.IncEvent(enum.EventKindPresence)
}

func (e *Events) publishTyping(t model.Typing) {
	e.typing.Publish(bus.Topic(t.ChannelID), t)
	e.metrics.IncEvent(enum.EventKindTyping)
}

func (e *Events) publishUser(topic model.Snowflake, u model.User) {
	e.users.Publish(bus.Topic(topic), u)
	e.metrics.IncEvent(enum.EventKindUser)
}

func (e *Events) publishGuild(g model.Guild) {
	e.guilds.Publish(bus.Topic(g.ID), g)
	e.metrics.IncEvent(enum.EventKindGuild)
}

func (e *Events) publishState(s State) {
	e.states.Publish(bus.All, s)
	e.metrics.IncEvent(enum.EventKindState)
}

func (e *Events) close() {
	e.messages.Close()
	e.presences.Close()
	e.typing.Close()
	e.users.Close()
	e.guilds.Close()
	e.states.Close()
}

// MessagesFor subscribes to messages created in one channel.
func (s *Session) MessagesFor(channelID model.Snowflake) *bus.Subscription[model.Message] {
	return s.events.messages.Subscribe(bus.Topic(channelID))
}

// Messages subscribes to messages in every channel.
func (s *Session) Messages() *bus.Subscription[model.Message] {
	return s.events.messages.Subscribe(bus.All)
}

// PresenceFor subscribes to status changes of one user.
func (s *Session) PresenceFor(userID model.Snowflake) *bus.Subscription[model.Presence] {
	return s.events.presences.Subscribe(bus.Topic(userID))
}

func (s *Session) Presences() *bus.Subscription[model.Presence] {
	return s.events.presences.Subscribe(bus.All)
}

// TypingIn subscribes to typing notifications in one channel.
func (s *Session) TypingIn(channelID model.Snowflake) *bus.Subscription[model.Typing] {
	return s.events.typing.Subscribe(bus.Topic(channelID))
}

func (s *Session) Typing() *bus.Subscription[model.Typing] {
	return s.events.typing.Subscribe(bus.All)
}

// Users subscribes to every user the session learns about, including the session's own user.
func (s *Session) Users() *bus.Subscription[model.User] {
	return s.events.users.Subscribe(bus.All)
}

// UsersFor subscribes to one user id. Pass Me for the session's own user.
func (s *Session) UsersFor(userID model.Snowflake) *bus.Subscription[model.User] {
	return s.events.users.Subscribe(bus.Topic(userID))
}

func (s *Session) Guilds() *bus.Subscription[model.Guild] {
	return s.events.guilds.Subscribe(bus.All)
}

func (s *Session) GuildFor(guildID model.Snowflake) *bus.Subscription[model.Guild] {
	return s.events.guilds.Subscribe(bus.Topic(guildID))
}

// States subscribes to lifecycle transitions.
func (s *Session) States() *bus.Subscription[State] {
	return s.events.states.Subscribe(bus.All)
}
