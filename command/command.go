// Package command handles the small, closed set of chat-issued bridge
// commands (online, topic) through a data-driven dispatch table rather
// than a chain of if/else branches.
package command

import (
	"regexp"
	"strings"

	"github.com/ahti123/slack-irc/ircshadow"
)

var bodyRe = regexp.MustCompile(`^(\w+)\s?(\w+)?`)

// OnlineLister exposes the live shadow snapshot the online command reports.
type OnlineLister interface {
	Snapshot() []ircshadow.Info
}

// TopicLookup resolves the last known topic of an IRC channel.
type TopicLookup interface {
	Topic(ircChannel string) (string, bool)
}

// ChannelResolver maps a Chat channel to its bridged IRC channel.
type ChannelResolver interface {
	IRCChannel(chatChannel string) (string, bool)
}

type handlerFunc func(p *Parser, arg, chatChannel string) string

// Parser recognizes and dispatches commands issued from Chat.
type Parser struct {
	Prefix   string
	Shadows  OnlineLister
	Topics   TopicLookup
	Channels ChannelResolver

	handlers map[string]handlerFunc
}

// New builds a Parser bound to its command prefix and collaborators. Any of
// shadows, topics, channels may be nil; handlers degrade gracefully rather
// than panicking.
func New(prefix string, shadows OnlineLister, topics TopicLookup, channels ChannelResolver) *Parser {
	return &Parser{
		Prefix:   prefix,
		Shadows:  shadows,
		Topics:   topics,
		Channels: channels,
		handlers: map[string]handlerFunc{
			"online": commandOnline,
			"topic":  commandTopic,
		},
	}
}

// IsCommand reports whether text is addressed to the command parser, i.e.
// its first character is the configured prefix.
func (p *Parser) IsCommand(text string) bool {
	return p.Prefix != "" && strings.HasPrefix(text, p.Prefix)
}

// Handle parses text (already known to satisfy IsCommand) and runs the
// matching handler, returning the reply to post back into chatChannel.
// A command name missing from the handler table (or a body that doesn't
// parse) gets commandHelp.
func (p *Parser) Handle(text, chatChannel string) string {
	body := strings.TrimPrefix(text, p.Prefix)
	groups := bodyRe.FindStringSubmatch(body)
	if groups == nil {
		return commandHelp(p, "", chatChannel)
	}

	fn, ok := p.handlers[groups[1]]
	if !ok {
		fn = commandHelp
	}
	return fn(p, groups[2], chatChannel)
}
