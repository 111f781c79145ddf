// Package textxform implements the bidirectional text transformation
// between Chat's markup (user/channel/link/emoji tokens) and IRC's plain
// text: channel and user mention resolution, emoji shortcode expansion,
// broadcast-token escaping, and mIRC control-code stripping on the
// reverse leg.
package textxform

import (
	"regexp"
	"strings"

	"github.com/ahti123/slack-irc/chat"
	"github.com/ahti123/slack-irc/emoji"
	"github.com/ahti123/slack-irc/ircformat"
)

// ChannelResolver looks up a Chat channel's readable name by ID, used
// when a <#CID> token carries no inline alias.
type ChannelResolver interface {
	ResolveChannelName(id string) (string, bool)
}

// UserResolver looks up a Chat user's readable name by ID, used when a
// <@UID> token carries no inline alias.
type UserResolver interface {
	ResolveUserName(id string) (string, bool)
}

// ShadowLookup resolves the current IRC nick a Chat user is shadowed as.
// Both directions of the transform need this: Chat->IRC to rewrite
// @mentions into highlights IRC will recognise, IRC->Chat to map a nick
// back to its owner's Chat display name.
type ShadowLookup interface {
	// NickForChatName returns the IRC nick of the shadow whose Chat
	// display name is name, if a shadow exists for that name.
	NickForChatName(name string) (nick string, ok bool)
	// ChatNameForNick returns the Chat display name of the shadow
	// currently using nick, if any.
	ChatNameForNick(nick string) (name string, ok bool)
}

// Highlighter renders a Chat channel member's display name in whatever
// highlight form the caller wants shown on the Chat side (e.g. bold,
// or Chat's own @mention markup). Injected so this package stays free
// of any single Chat client's rendering rules.
type Highlighter interface {
	Highlight(displayName string) string
}

var (
	newlineRe   = regexp.MustCompile(`\r\n|\r|\n`)
	broadcastRe = regexp.MustCompile(`<!(channel|group|everyone)>`)
	channelRe   = regexp.MustCompile(`<#([^|>]+)(?:\|([^>]*))?>`)
	userRe      = regexp.MustCompile(`<@([^|>]+)(?:\|([^>]*))?>`)
	linkRe      = regexp.MustCompile(`<([^!|][^|>]*)>`)
	cmdRe       = regexp.MustCompile(`<!([^|>]+)(?:\|([^>]*))?>`)
	emojiRe     = regexp.MustCompile(`:([a-zA-Z0-9_+-]+):`)
	mentionRe   = regexp.MustCompile(`@(\w+)`)
	residualRe  = regexp.MustCompile(`<[^|>]*\|([^>]*)>`)

	htmlEntities = strings.NewReplacer("&amp;", "&", "&lt;", "<", "&gt;", ">")
)

// Transformer holds the collaborators the transform steps consult.
type Transformer struct {
	Channels ChannelResolver
	Users    UserResolver
	Shadows  ShadowLookup
	Emoji    *emoji.Table
}

// New builds a Transformer. table may be nil, in which case no shortcode
// ever resolves (step 8 leaves every `:name:` token untouched).
func New(channels ChannelResolver, users UserResolver, shadows ShadowLookup, table *emoji.Table) *Transformer {
	return &Transformer{Channels: channels, Users: users, Shadows: shadows, Emoji: table}
}

// ParseText converts a Chat message body into IRC-ready plain text,
// applying each substitution step in order: newline collapsing, HTML
// entity decoding, broadcast-token unescaping, channel/user mention
// resolution, link unwrapping, command-token rendering, emoji shortcode
// expansion, shadow-nick highlighting, and residual-token cleanup.
func (t *Transformer) ParseText(text string) string {
	text = newlineRe.ReplaceAllString(text, " ")
	text = htmlEntities.Replace(text)
	text = broadcastRe.ReplaceAllString(text, "@$1")

	text = channelRe.ReplaceAllStringFunc(text, func(m string) string {
		groups := channelRe.FindStringSubmatch(m)
		id, readable := groups[1], groups[2]
		if readable != "" {
			return "#" + readable
		}
		if t.Channels != nil {
			if name, ok := t.Channels.ResolveChannelName(id); ok {
				return "#" + name
			}
		}
		return m
	})

	text = userRe.ReplaceAllStringFunc(text, func(m string) string {
		groups := userRe.FindStringSubmatch(m)
		id, readable := groups[1], groups[2]
		if readable != "" {
			return "@" + readable
		}
		if t.Users != nil {
			if name, ok := t.Users.ResolveUserName(id); ok {
				return "@" + name
			}
		}
		return m
	})

	text = linkRe.ReplaceAllStringFunc(text, func(m string) string {
		groups := linkRe.FindStringSubmatch(m)
		return groups[1]
	})

	text = cmdRe.ReplaceAllStringFunc(text, func(m string) string {
		groups := cmdRe.FindStringSubmatch(m)
		cmd, label := groups[1], groups[2]
		if label != "" {
			return "<" + label + ">"
		}
		return "<" + cmd + ">"
	})

	if t.Emoji != nil {
		text = emojiRe.ReplaceAllStringFunc(text, func(m string) string {
			name := m[1 : len(m)-1]
			if v, ok := t.Emoji.Lookup(name); ok {
				return v
			}
			return m
		})
	}

	if t.Shadows != nil {
		text = mentionRe.ReplaceAllStringFunc(text, func(m string) string {
			word := m[1:]
			if nick, ok := t.Shadows.NickForChatName(word); ok {
				return nick
			}
			return m
		})
	}

	text = residualRe.ReplaceAllString(text, "$1")

	// Supplement: strip any raw mIRC control codes a Chat user happened
	// to paste in, so they never reach the IRC wire untouched.
	text = ircformat.StripCodes(text)

	return text
}

// ReplaceUsernames rewrites shadow-nick occurrences in IRC-authored text
// back into their owning Chat display name, so a Chat @mention of the
// original user lands correctly. suffix is the configured shadow-nick
// suffix (e.g. "-slack").
func (t *Transformer) ReplaceUsernames(text, suffix string) string {
	if t.Shadows == nil || suffix == "" {
		return text
	}

	pattern := regexp.MustCompile(`@?(\S+` + regexp.QuoteMeta(suffix) + `\d?)`)
	return pattern.ReplaceAllStringFunc(text, func(m string) string {
		nick := strings.TrimPrefix(m, "@")
		if name, ok := t.Shadows.ChatNameForNick(nick); ok {
			return name
		}
		return m
	})
}

// MapChatUsers wraps occurrences of every member's display name in text
// with the highlight form h provides. Members with an empty or
// single-character name are skipped, matching common highlight-mangling
// avoidance in chat bridges.
func MapChatUsers(text string, members []chat.User, h Highlighter) string {
	if h == nil {
		return text
	}
	for _, m := range members {
		if len(m.Name) < 2 {
			continue
		}
		re := regexp.MustCompile(`\b` + regexp.QuoteMeta(m.Name) + `\b`)
		text = re.ReplaceAllString(text, h.Highlight(m.Name))
	}
	return text
}

// StripIRCFormatting removes mIRC control codes. The IRC->Chat relay calls
// it before username rewriting; ParseText strips the same codes as its
// final step on the Chat->IRC leg.
func StripIRCFormatting(text string) string {
	return ircformat.StripCodes(text)
}
