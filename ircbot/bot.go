// Package ircbot implements the single "official" IRC connection used for
// IRC→Chat relay and for anything not covered by a per-user shadow: the
// home connection that owns the bridge's own nickname and channel joins,
// kept distinct from the per-user connections ircshadow manages.
package ircbot

import (
	"crypto/tls"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	irc "github.com/qaisjp/go-ircevent"
)

// Config carries the bot connection's options.
type Config struct {
	Server             string
	Nickname           string
	UseTLS             bool
	InsecureSkipVerify bool
	ServerPassword     string
	Channels           []string
	AutoSendCommands   []string
	FloodProtection    bool
	MessageDelay       time.Duration
	MaxRetries         int
	Debug              bool
}

// Events receives every notification the bot connection produces. As with
// ircshadow.EventSink, implementations are expected to forward these onto
// the Bridge actor's channel rather than mutate shared state from the
// connection's own goroutine.
type Events interface {
	OnBotRegistered()
	OnBotAborted()
	OnBotMessage(author, host, channel, text string)
	OnBotNotice(author, channel, text string)
	OnBotAction(author, host, channel, text string)
	OnBotInvite(channel, by string)
	OnBotJoin(nick, channel string)
	OnBotPart(nick, channel string)
	OnBotQuit(nick, reason string)
	OnBotKick(channel, nick, by, reason string)
	OnBotTopic(channel, topic string)
}

// Bot is the single IRC connection under the bridge's own nickname.
type Bot struct {
	cfg    Config
	conn   *irc.Connection
	events Events
	dial   func(conn *irc.Connection, server string) error
}

// New constructs a Bot. The connection is not started until Connect.
func New(cfg Config, events Events) *Bot {
	b := &Bot{
		cfg:    cfg,
		conn:   irc.IRC(cfg.Nickname, cfg.Nickname),
		events: events,
		dial:   defaultDial,
	}
	b.attachCallbacks()
	return b
}

func defaultDial(conn *irc.Connection, server string) error {
	if err := conn.Connect(server); err != nil {
		return err
	}
	go conn.Loop()
	return nil
}

// Connect dials the server, making up to cfg.MaxRetries attempts with
// exponential backoff between them. Exhausting retries is fatal for the bot connection:
// it reports OnBotAborted rather than silently vanishing like a shadow does.
func (b *Bot) Connect() {
	b.conn.UseTLS = b.cfg.UseTLS
	if b.cfg.InsecureSkipVerify {
		b.conn.TLSConfig = &tls.Config{InsecureSkipVerify: true} // nolint:gosec
	}
	b.conn.Password = b.cfg.ServerPassword
	b.conn.Debug = b.cfg.Debug
	b.conn.FloodProtection = b.cfg.FloodProtection
	if b.cfg.MessageDelay > 0 {
		b.conn.SendDelay = b.cfg.MessageDelay
	}

	retries := b.cfg.MaxRetries
	if retries <= 0 {
		retries = 10
	}

	backoff := time.Second
	for attempt := 0; attempt < retries; attempt++ {
		if err := b.dial(b.conn, b.cfg.Server); err == nil {
			return
		} else if attempt == retries-1 {
			log.WithError(err).Errorln("bot connection exhausted retries")
			b.events.OnBotAborted()
			return
		}
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (b *Bot) attachCallbacks() {
	conn := b.conn

	conn.AddCallback("001", func(e *irc.Event) {
		for _, cmd := range b.cfg.AutoSendCommands {
			conn.SendRaw(cmd)
		}
		for _, ch := range b.cfg.Channels {
			conn.Join(ch)
		}
		b.events.OnBotRegistered()
	})

	conn.AddCallback("PRIVMSG", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		b.events.OnBotMessage(e.Nick, e.Host, e.Arguments[0], e.Message())
	})

	conn.AddCallback("CTCP_ACTION", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		b.events.OnBotAction(e.Nick, e.Host, e.Arguments[0], e.Message())
	})

	conn.AddCallback("NOTICE", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		b.events.OnBotNotice(e.Nick, e.Arguments[0], e.Message())
	})

	conn.AddCallback("INVITE", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		b.events.OnBotInvite(e.Arguments[1], e.Nick)
	})

	conn.AddCallback("JOIN", func(e *irc.Event) {
		if len(e.Arguments) < 1 {
			return
		}
		b.events.OnBotJoin(e.Nick, e.Arguments[0])
	})

	conn.AddCallback("PART", func(e *irc.Event) {
		if len(e.Arguments) < 1 {
			return
		}
		b.events.OnBotPart(e.Nick, e.Arguments[0])
	})

	conn.AddCallback("QUIT", func(e *irc.Event) {
		reason := ""
		if len(e.Arguments) > 0 {
			reason = e.Arguments[0]
		}
		b.events.OnBotQuit(e.Nick, reason)
	})

	conn.AddCallback("KICK", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		reason := ""
		if len(e.Arguments) > 2 {
			reason = e.Arguments[2]
		}
		b.events.OnBotKick(e.Arguments[0], e.Arguments[1], e.Nick, reason)
	})

	conn.AddCallback("332", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		b.events.OnBotTopic(e.Arguments[1], e.Message())
	})

	conn.AddCallback("TOPIC", func(e *irc.Event) {
		if len(e.Arguments) < 1 {
			return
		}
		b.events.OnBotTopic(e.Arguments[0], e.Message())
	})
}

// Nick returns the bot's current IRC nickname.
func (b *Bot) Nick() string {
	return b.conn.GetNick()
}

// Say sends a PRIVMSG to channel.
func (b *Bot) Say(channel, text string) {
	b.conn.Privmsg(channel, text)
}

// Action sends a CTCP ACTION to channel.
func (b *Bot) Action(channel, text string) {
	b.conn.Action(channel, text)
}

// Join accepts an invite (or otherwise joins) channel.
func (b *Bot) Join(channel string) {
	b.conn.Join(channel)
}

// IsSelf reports whether nick is the bot's own current nickname.
func (b *Bot) IsSelf(nick string) bool {
	return strings.EqualFold(nick, b.Nick())
}

// Quit disconnects with reason as the quit message.
func (b *Bot) Quit(reason string) {
	b.conn.QuitMessage = reason
	b.conn.Quit()
}
