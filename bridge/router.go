package bridge

import (
	"github.com/ahti123/slack-irc/chat"
)

// Event types funneled onto Bridge.events. Every field is copied out of
// the originating callback so run() never touches foreign-goroutine state.
type (
	chatOpenEvent         struct{}
	chatMessageEvent      struct{ msg chat.Message }
	chatPresenceEvent     struct{ change chat.PresenceChange }
	chatUserChangeEvent   struct{ change chat.UserChange }
	chatErrorEvent        struct{ err error }
	botRegisteredEvent    struct{}
	botAbortedEvent       struct{}
	botMessageEvent       struct{ author, host, channel, text string }
	botNoticeEvent        struct{ author, channel, text string }
	botActionEvent        struct{ author, host, channel, text string }
	botInviteEvent        struct{ channel, by string }
	botJoinEvent          struct{ nick, channel string }
	botPartEvent          struct{ nick, channel string }
	botQuitEvent          struct{ nick, reason string }
	botKickEvent          struct{ channel, nick, by, reason string }
	botTopicEvent         struct{ channel, topic string }

	shadowNamesEvent          struct {
		userID string
		joined []string
	}
	shadowKickedEvent struct{ userID, channel, by, reason string }
	shadowNickInvalidEvent struct{ userID string }
	shadowAbortedEvent     struct{ userID string }
	shadowPrivateMessageEvent struct{ userID, fromNick, text string }
	awayExpiredEvent          struct {
		userID     string
		generation int
	}
)

// subscribeChat registers Bridge's handlers on the Chat client. Each
// handler only ever copies data and sends it onto the actor channel.
func (b *Bridge) subscribeChat() {
	b.chat.OnOpen(func() { b.send(chatOpenEvent{}) })
	b.chat.OnMessage(func(m chat.Message) { b.send(chatMessageEvent{m}) })
	b.chat.OnPresenceChange(func(p chat.PresenceChange) { b.send(chatPresenceEvent{p}) })
	b.chat.OnUserChange(func(u chat.UserChange) { b.send(chatUserChangeEvent{u}) })
	b.chat.OnError(func(err error) { b.send(chatErrorEvent{err}) })
}

// --- ircbot.Events ---

func (b *Bridge) OnBotRegistered() { b.send(botRegisteredEvent{}) }
func (b *Bridge) OnBotAborted()    { b.send(botAbortedEvent{}) }
func (b *Bridge) OnBotMessage(author, host, channel, text string) {
	b.send(botMessageEvent{author, host, channel, text})
}
func (b *Bridge) OnBotNotice(author, channel, text string) {
	b.send(botNoticeEvent{author, channel, text})
}
func (b *Bridge) OnBotAction(author, host, channel, text string) {
	b.send(botActionEvent{author, host, channel, text})
}
func (b *Bridge) OnBotInvite(channel, by string) { b.send(botInviteEvent{channel, by}) }
func (b *Bridge) OnBotJoin(nick, channel string) { b.send(botJoinEvent{nick, channel}) }
func (b *Bridge) OnBotPart(nick, channel string) { b.send(botPartEvent{nick, channel}) }
func (b *Bridge) OnBotQuit(nick, reason string)  { b.send(botQuitEvent{nick, reason}) }
func (b *Bridge) OnBotKick(channel, nick, by, reason string) {
	b.send(botKickEvent{channel, nick, by, reason})
}
func (b *Bridge) OnBotTopic(channel, topic string) { b.send(botTopicEvent{channel, topic}) }

// --- ircshadow.EventSink ---

func (b *Bridge) OnShadowNames(userID string, joined []string) {
	b.send(shadowNamesEvent{userID, joined})
}
func (b *Bridge) OnShadowKicked(userID, channel, by, reason string) {
	b.send(shadowKickedEvent{userID, channel, by, reason})
}
func (b *Bridge) OnShadowNickInvalid(userID string) { b.send(shadowNickInvalidEvent{userID}) }
func (b *Bridge) OnShadowAborted(userID string)     { b.send(shadowAbortedEvent{userID}) }
func (b *Bridge) OnShadowPrivateMessage(userID, fromNick, text string) {
	b.send(shadowPrivateMessageEvent{userID, fromNick, text})
}
func (b *Bridge) OnAwayExpired(userID string, generation int) {
	b.send(awayExpiredEvent{userID, generation})
}

// storeResolvers adapts chat.Store to textxform's ChannelResolver and
// UserResolver interfaces.
type storeResolvers struct {
	store chat.Store
}

func (s *storeResolvers) ResolveChannelName(id string) (string, bool) {
	ch, ok := s.store.GetChannelGroupOrDMByID(id)
	if !ok {
		return "", false
	}
	return ch.Name, true
}

func (s *storeResolvers) ResolveUserName(id string) (string, bool) {
	u, ok := s.store.GetUserByID(id)
	if !ok {
		return "", false
	}
	return u.Name, true
}
