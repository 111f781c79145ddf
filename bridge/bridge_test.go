package bridge

import (
	"testing"

	"github.com/ahti123/slack-irc/chat"
	"github.com/ahti123/slack-irc/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChat struct {
	posts []postCall
}

type postCall struct {
	channelID, text string
	opts            chat.PostOptions
}

func (f *fakeChat) OnOpen(func())                        {}
func (f *fakeChat) OnMessage(func(chat.Message))          {}
func (f *fakeChat) OnPresenceChange(func(chat.PresenceChange)) {}
func (f *fakeChat) OnUserChange(func(chat.UserChange))    {}
func (f *fakeChat) OnUserRemoved(func(string))            {}
func (f *fakeChat) OnError(func(error))                   {}
func (f *fakeChat) Open() error                           { return nil }
func (f *fakeChat) Close() error                           { return nil }
func (f *fakeChat) PostMessage(channelID, text string, opts chat.PostOptions) error {
	f.posts = append(f.posts, postCall{channelID, text, opts})
	return nil
}
func (f *fakeChat) OpenDirectMessage(userID string) (string, error) { return "DM" + userID, nil }

type fakeStore struct {
	users    map[string]chat.User
	channels map[string]chat.Channel
	byName   map[string]chat.Channel
}

func (f *fakeStore) GetUserByID(id string) (chat.User, bool) { u, ok := f.users[id]; return u, ok }
func (f *fakeStore) GetChannelByID(id string) (chat.Channel, bool) {
	c, ok := f.channels[id]
	return c, ok
}
func (f *fakeStore) GetChannelGroupOrDMByID(id string) (chat.Channel, bool) {
	c, ok := f.channels[id]
	return c, ok
}
func (f *fakeStore) GetChannelOrGroupByName(name string) (chat.Channel, bool) {
	c, ok := f.byName[name]
	return c, ok
}
func (f *fakeStore) GetBotByUserID(id string) bool { return f.users[id].IsBot }
func (f *fakeStore) ActiveUserID() string          { return "BOTID" }

func newTestBridge(t *testing.T) (*Bridge, *fakeChat, *fakeStore) {
	c := &fakeChat{}
	s := &fakeStore{
		users:    map[string]chat.User{},
		channels: map[string]chat.Channel{},
		byName:   map[string]chat.Channel{},
	}
	cfg := Config{
		IRCServer:     "irc.example.com:6697",
		IRCNickname:   "bridge",
		CommandPrefix: "!",
		ChannelMapping: map[string]string{
			"#general": "irc-room",
		},
	}
	b, err := New(cfg, c, s)
	require.NoError(t, err)
	return b, c, s
}

func TestNewRejectsInvalidChannelMapping(t *testing.T) {
	c := &fakeChat{}
	s := &fakeStore{}
	_, err := New(Config{ChannelMapping: map[string]string{"#a": ""}}, c, s)
	assert.Error(t, err)
}

func TestHandleChatMessageDropsUnmappedChannel(t *testing.T) {
	b, c, s := newTestBridge(t)
	s.channels["C1"] = chat.Channel{ID: "C1", Name: "random"}

	b.handle(chatMessageEvent{chat.Message{Type: "message", ChannelID: "C1", UserID: "U1", Text: "hi"}})
	assert.Empty(t, c.posts)
}

func TestHandleChatMessageRoutesCommand(t *testing.T) {
	b, c, s := newTestBridge(t)
	s.channels["C1"] = chat.Channel{ID: "C1", Name: "general"}

	b.handle(chatMessageEvent{chat.Message{Type: "message", ChannelID: "C1", UserID: "U1", Text: "!online"}})

	require.Len(t, c.posts, 1)
	assert.Equal(t, "C1", c.posts[0].channelID)
	assert.Contains(t, c.posts[0].text, "no users online")
}

func TestHandleChatMessageDropsFilteredMessage(t *testing.T) {
	c := &fakeChat{}
	s := &fakeStore{
		users:    map[string]chat.User{},
		channels: map[string]chat.Channel{"C1": {ID: "C1", Name: "general"}},
		byName:   map[string]chat.Channel{},
	}
	cfg := Config{
		IRCNickname:          "bridge",
		CommandPrefix:        "!",
		ChannelMapping:       map[string]string{"#general": "irc-room"},
		ChatFilteredMessages: []string{"*secret*"},
	}
	b, err := New(cfg, c, s)
	require.NoError(t, err)

	b.handle(chatMessageEvent{chat.Message{Type: "message", ChannelID: "C1", UserID: "U1", Text: "this is secret info"}})
	assert.Empty(t, c.posts)
}

func TestHandleChatMessageDropsEmptyAfterTransform(t *testing.T) {
	b, c, s := newTestBridge(t)
	s.channels["C1"] = chat.Channel{ID: "C1", Name: "general"}

	b.handle(chatMessageEvent{chat.Message{Type: "message", ChannelID: "C1", UserID: "U1", Text: "   "}})
	assert.Empty(t, c.posts)
	assert.False(t, b.queues.HasPending("U1"))
}

func TestHandleChatMessageEnqueuesMappedMessage(t *testing.T) {
	b, _, s := newTestBridge(t)
	s.channels["C1"] = chat.Channel{ID: "C1", Name: "general"}

	b.handle(chatMessageEvent{chat.Message{Type: "message", ChannelID: "C1", UserID: "U1", Text: "hello there"}})
	assert.True(t, b.queues.HasPending("U1"))
}

func TestBotTopicEventPopulatesCache(t *testing.T) {
	b, _, _ := newTestBridge(t)

	b.handle(botTopicEvent{channel: "#irc-room", topic: "welcome"})

	topic, ok := b.Topic("#IRC-ROOM")
	require.True(t, ok)
	assert.Equal(t, "welcome", topic)
}

func newKickTestBridge(t *testing.T) (*Bridge, *fakeChat, *fakeStore) {
	c := &fakeChat{}
	s := &fakeStore{
		users:    map[string]chat.User{},
		channels: map[string]chat.Channel{"C1": {ID: "C1", Name: "general"}},
		byName:   map[string]chat.Channel{"#general": {ID: "C1", Name: "general"}},
	}
	cfg := Config{
		IRCServer:        "127.0.0.1:1", // nothing listens here; the async dial is refused fast and harmlessly
		IRCNickname:      "bridge",
		CommandPrefix:    "!",
		ChannelMapping:   map[string]string{"#general": "irc-room"},
		MaxShadowRetries: 1,
	}
	b, err := New(cfg, c, s)
	require.NoError(t, err)
	return b, c, s
}

// A shadow's own IRC connection and the bridge bot's connection both
// observe the same broadcast KICK, so both a botKickEvent and a
// shadowKickedEvent land in the actor for one physical kick with no
// ordering guarantee between them. Exactly one Chat notice must result,
// regardless of which arrives first.
func TestKickRelayDoesNotDuplicateAcrossEventOrdering(t *testing.T) {
	for _, first := range []string{"bot", "shadow"} {
		t.Run(first, func(t *testing.T) {
			b, c, _ := newKickTestBridge(t)

			b.registry.Ensure("U1", "victim")
			shadow, ok := b.registry.Get("U1")
			require.True(t, ok)
			nick := shadow.Nick()

			botEvent := botKickEvent{channel: "irc-room", nick: nick, by: "op", reason: "spam"}
			shadowEvent := shadowKickedEvent{userID: "U1", channel: "irc-room", by: "op", reason: "spam"}

			if first == "bot" {
				b.handle(botEvent)
				b.handle(shadowEvent)
			} else {
				b.handle(shadowEvent)
				b.handle(botEvent)
			}

			require.Len(t, c.posts, 1)
			assert.Contains(t, c.posts[0].text, nick)
		})
	}
}

func TestHandleBotKickPostsForNonShadowNick(t *testing.T) {
	b, c, _ := newKickTestBridge(t)

	b.handle(botKickEvent{channel: "irc-room", nick: "realuser", by: "op", reason: "spam"})

	require.Len(t, c.posts, 1)
	assert.Contains(t, c.posts[0].text, "realuser")
}

// fakeShadow is a dispatchTarget stub letting tests control exactly which
// channels a shadow has joined, without a live IRC connection.
type fakeShadow struct {
	joined map[string]bool
	said   []struct{ channel, text string }
	acted  []struct{ channel, text string }
}

func (f *fakeShadow) HasJoined(channel string) bool { return f.joined[channel] }
func (f *fakeShadow) Say(channel, text string) {
	f.said = append(f.said, struct{ channel, text string }{channel, text})
}
func (f *fakeShadow) Action(channel, text string) {
	f.acted = append(f.acted, struct{ channel, text string }{channel, text})
}

// Bridge.dispatch must stop draining a user's queue at the first IRC
// channel their shadow hasn't joined, leaving later channels' messages
// queued rather than skipping ahead to them.
func TestDispatchStopsAtFirstUnjoinedChannel(t *testing.T) {
	b, _, _ := newTestBridge(t)

	shadow := &fakeShadow{joined: map[string]bool{"irc-room": true}}
	b.getShadow = func(userID string) (dispatchTarget, bool) {
		if userID != "U1" {
			return nil, false
		}
		return shadow, true
	}

	b.queues.Enqueue("U1", "irc-room", queue.Entry{Text: "first"})
	b.queues.Enqueue("U1", "irc-other", queue.Entry{Text: "second"})

	b.dispatch("U1")

	require.Len(t, shadow.said, 1)
	assert.Equal(t, "irc-room", shadow.said[0].channel)
	assert.Equal(t, "first", shadow.said[0].text)

	assert.True(t, b.queues.HasPending("U1"))
	assert.Contains(t, b.queues.Channels("U1"), "irc-other")
	assert.NotContains(t, b.queues.Channels("U1"), "irc-room")
}

// Once the previously-blocking channel is joined, dispatch drains it on
// the next call rather than requiring a fresh enqueue.
func TestDispatchDrainsRemainingChannelOnceJoined(t *testing.T) {
	b, _, _ := newTestBridge(t)

	shadow := &fakeShadow{joined: map[string]bool{"irc-room": true}}
	b.getShadow = func(userID string) (dispatchTarget, bool) { return shadow, true }

	b.queues.Enqueue("U1", "irc-room", queue.Entry{Text: "first"})
	b.queues.Enqueue("U1", "irc-other", queue.Entry{Text: "second"})
	b.dispatch("U1")

	shadow.joined["irc-other"] = true
	b.dispatch("U1")

	require.Len(t, shadow.said, 2)
	assert.Equal(t, "irc-other", shadow.said[1].channel)
	assert.Equal(t, "second", shadow.said[1].text)
	assert.False(t, b.queues.HasPending("U1"))
}
