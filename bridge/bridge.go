// Package bridge wires together every other package into the running
// relay: Chat and IRC event subscription, the shadow-client lifecycle,
// message queuing/dispatch, and command handling.
//
// Bridge is the single owner of its mutable state (ShadowRegistry,
// MessageQueues, ChannelMap, topic cache). Every mutation happens inside
// run(), which drains a single channel that every event source (Chat RTM
// callbacks, the bot connection, every shadow connection) funnels into,
// so no lock is needed to protect that state.
package bridge

import (
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ahti123/slack-irc/chat"
	"github.com/ahti123/slack-irc/chatpost"
	"github.com/ahti123/slack-irc/channelmap"
	"github.com/ahti123/slack-irc/command"
	"github.com/ahti123/slack-irc/emoji"
	"github.com/ahti123/slack-irc/ircbot"
	"github.com/ahti123/slack-irc/ircshadow"
	"github.com/ahti123/slack-irc/nickpolicy"
	"github.com/ahti123/slack-irc/queue"
	"github.com/ahti123/slack-irc/textxform"
)

// StatusNotices toggles IRC join/part/quit relay to Chat.
type StatusNotices struct {
	Join  bool
	Leave bool
}

// Config is the bridge's immutable configuration.
type Config struct {
	IRCServer          string
	IRCNickname        string
	UseTLS             bool
	InsecureSkipVerify bool
	ServerPassword     string
	WebIRCPass         string
	PrejoinCommands    []string
	AutoSendCommands   []string

	ChannelMapping map[string]string
	ChatToken      string

	CommandPrefix string
	StatusNotices StatusNotices
	NickSuffix    string
	IdleTimeout   time.Duration

	MaxShadowRetries int
	MaxBotRetries    int
	FloodProtection  bool
	MessageDelay     time.Duration

	AvatarTemplate string
	MuteSlackbot   bool

	IRCIgnores           []string
	ChatFilteredMessages []string

	Debug         bool
	DebugPresence bool
}

// Bridge is the sole owner of ShadowRegistry, MessageQueues, and
// ChannelMap, mutated only from run().
type Bridge struct {
	cfg    Config
	chat   chat.Client
	store  chat.Store
	poster *chatpost.Poster

	channels  *channelmap.ChannelMap
	registry  *ircshadow.Registry
	bot       *ircbot.Bot
	queues    *queue.Queues
	transform *textxform.Transformer
	commands  *command.Parser

	ircIgnores  []glob.Glob
	chatIgnores []glob.Glob

	topics map[string]string // lowercased IRC channel -> last known topic

	// getShadow looks up userID's dispatch target. Defaults to registry.Get,
	// overridable in tests to substitute a fake shadow.
	getShadow func(userID string) (dispatchTarget, bool)

	events chan interface{}
	done   chan struct{}
}

// New constructs a Bridge. store is consulted read-only for user/channel
// lookups; chatClient is the RTM+web-API connection the bridge subscribes
// to and posts through.
func New(cfg Config, chatClient chat.Client, store chat.Store) (*Bridge, error) {
	channels, err := channelmap.New(cfg.ChannelMapping)
	if err != nil {
		return nil, errors.Wrap(err, "invalid channel mapping")
	}

	ircIgnores, err := compileGlobs(cfg.IRCIgnores)
	if err != nil {
		return nil, errors.Wrap(err, "invalid irc ignore pattern")
	}
	chatIgnores, err := compileGlobs(cfg.ChatFilteredMessages)
	if err != nil {
		return nil, errors.Wrap(err, "invalid chat filtered-message pattern")
	}

	if cfg.NickSuffix == "" {
		cfg.NickSuffix = nickpolicy.DefaultSuffix
	}

	b := &Bridge{
		cfg:         cfg,
		chat:        chatClient,
		store:       store,
		channels:    channels,
		queues:      queue.New(),
		ircIgnores:  ircIgnores,
		chatIgnores: chatIgnores,
		topics:      make(map[string]string),
		events:      make(chan interface{}, 256),
		done:        make(chan struct{}),
	}

	shadowPrejoin := append(append([]string{}, cfg.PrejoinCommands...), channels.JoinCommand())

	b.registry = ircshadow.NewRegistry(ircshadow.Config{
		Server:             cfg.IRCServer,
		UseTLS:             cfg.UseTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ServerPassword:     cfg.ServerPassword,
		WebIRCPass:         cfg.WebIRCPass,
		PrejoinCommands:    shadowPrejoin,
		NickSuffix:         cfg.NickSuffix,
		IdleTimeout:        cfg.IdleTimeout,
		MaxRetries:         cfg.MaxShadowRetries,
		FloodProtection:    cfg.FloodProtection,
		MessageDelay:       cfg.MessageDelay,
		Debug:              cfg.Debug,
	}, b)

	b.bot = ircbot.New(ircbot.Config{
		Server:             cfg.IRCServer,
		Nickname:           cfg.IRCNickname,
		UseTLS:             cfg.UseTLS,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
		ServerPassword:     cfg.ServerPassword,
		Channels:           channels.IRCChannels(),
		AutoSendCommands:   cfg.AutoSendCommands,
		FloodProtection:    cfg.FloodProtection,
		MessageDelay:       cfg.MessageDelay,
		MaxRetries:         cfg.MaxBotRetries,
		Debug:              cfg.Debug,
	}, b)

	table := emoji.New(nil)
	b.transform = textxform.New(&storeResolvers{store}, &storeResolvers{store}, b.registry, table)

	b.poster = &chatpost.Poster{
		Client:         chatClient,
		AvatarTemplate: cfg.AvatarTemplate,
		BotNickname:    cfg.IRCNickname,
	}

	b.commands = command.New(cfg.CommandPrefix, b.registry, b, b.channels)

	b.getShadow = func(userID string) (dispatchTarget, bool) {
		c, ok := b.registry.Get(userID)
		if !ok {
			return nil, false
		}
		return c, true
	}

	return b, nil
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %q", p)
		}
		out = append(out, g)
	}
	return out, nil
}

// Topic implements command.TopicLookup.
func (b *Bridge) Topic(ircChannel string) (string, bool) {
	t, ok := b.topics[normalizeChannel(ircChannel)]
	return t, ok
}

// Open subscribes to both services and starts the actor loop. It blocks
// while the bot's IRC connection is dialled (until it succeeds or its
// retries run out), then starts the Chat connection, whose events arrive
// asynchronously.
func (b *Bridge) Open() error {
	b.subscribeChat()
	go b.run()
	b.bot.Connect()
	return b.chat.Open()
}

// Close tears down both connections and stops the actor loop.
func (b *Bridge) Close() error {
	close(b.done)
	b.bot.Quit("shutting down")
	return b.chat.Close()
}

// run is the sole goroutine that ever mutates registry, queues, or topics.
func (b *Bridge) run() {
	for {
		select {
		case <-b.done:
			return
		case ev := <-b.events:
			b.handle(ev)
		}
	}
}

func (b *Bridge) send(ev interface{}) {
	select {
	case b.events <- ev:
	case <-b.done:
	}
}

func (b *Bridge) handle(ev interface{}) {
	switch e := ev.(type) {
	case chatOpenEvent:
		b.handleChatOpen()
	case chatMessageEvent:
		b.handleChatMessage(e.msg)
	case chatPresenceEvent:
		b.handlePresenceChange(e.change)
	case chatUserChangeEvent:
		b.handleUserChange(e.change)
	case chatErrorEvent:
		log.WithError(e.err).Warnln("chat transport error")

	case botRegisteredEvent:
		log.Infoln("bridge bot registered on IRC")
	case botAbortedEvent:
		log.Fatalln("bridge bot exhausted its IRC connection retries")
	case botMessageEvent:
		b.relayBotMessage(e.author, e.host, e.channel, e.text)
	case botActionEvent:
		b.relayBotMessage(e.author, e.host, e.channel, "_"+e.text+"_")
	case botNoticeEvent:
		b.relayBotNotice(e.author, e.channel, e.text)
	case botInviteEvent:
		b.handleInvite(e.channel, e.by)
	case botJoinEvent:
		b.handleStatusNotice(e.nick, e.channel, "joined")
	case botPartEvent:
		b.handleStatusNotice(e.nick, e.channel, "left")
	case botQuitEvent:
		b.handleStatusNotice(e.nick, "", "quit IRC ("+e.reason+")")
	case botKickEvent:
		b.handleBotKick(e.channel, e.nick, e.by, e.reason)
	case botTopicEvent:
		b.topics[normalizeChannel(e.channel)] = e.topic

	case shadowNamesEvent:
		b.dispatch(e.userID)
	case shadowKickedEvent:
		b.handleShadowKicked(e.userID, e.channel, e.by, e.reason)
	case shadowNickInvalidEvent:
		b.handleShadowNickInvalid(e.userID)
	case shadowAbortedEvent:
		b.registry.Remove(e.userID)
		b.queues.DropUser(e.userID)
	case shadowPrivateMessageEvent:
		log.WithField("user", e.userID).WithField("from", e.fromNick).Debugln("ignoring private message to shadow")
	case awayExpiredEvent:
		if b.registry.IsCurrentGeneration(e.userID, e.generation) {
			reason := "Chat user went away."
			if shadow, ok := b.registry.Get(e.userID); ok {
				reason = "Chat user " + shadow.ChatName + " went away."
			}
			b.registry.Destroy(e.userID, reason)
			b.queues.DropUser(e.userID)
		}
	}
}

func normalizeChannel(ch string) string {
	return strings.ToLower(ch)
}
