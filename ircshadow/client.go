// Package ircshadow manages one live IRC connection per active Chat user
// (a "shadow"), keyed by Chat user ID, with a read-only snapshot view for
// nick lookups and presence listings. Everything lives in-process under a
// single owning goroutine, so there's no RPC boundary to cross to reach it.
package ircshadow

import (
	"strings"
	"time"

	irc "github.com/qaisjp/go-ircevent"
)

// Client is a single shadow IRC connection impersonating one Chat user.
type Client struct {
	UserID   string
	ChatName string // the Chat display name this shadow was derived from

	conn   *irc.Connection
	joined map[string]bool

	awayTimer  *time.Timer
	generation int
}

func newClient(userID, chatName, nick, username string) *Client {
	return &Client{
		UserID:   userID,
		ChatName: chatName,
		conn:     irc.IRC(nick, username),
		joined:   make(map[string]bool),
	}
}

// Nick returns the connection's current IRC nickname.
func (c *Client) Nick() string {
	return c.conn.GetNick()
}

// HasJoined reports whether the shadow currently holds membership in channel.
func (c *Client) HasJoined(channel string) bool {
	return c.joined[strings.ToLower(channel)]
}

func (c *Client) markJoined(channel string) {
	c.joined[strings.ToLower(channel)] = true
}

func (c *Client) markParted(channel string) {
	delete(c.joined, strings.ToLower(channel))
}

// JoinedChannels returns the lowercased IRC channels this shadow currently
// holds membership in, order unspecified.
func (c *Client) JoinedChannels() []string {
	out := make([]string, 0, len(c.joined))
	for ch := range c.joined {
		out = append(out, ch)
	}
	return out
}

// Say sends a PRIVMSG to channel.
func (c *Client) Say(channel, text string) {
	c.conn.Privmsg(channel, text)
}

// Action sends a CTCP ACTION to channel.
func (c *Client) Action(channel, text string) {
	c.conn.Action(channel, text)
}

// ChangeNick issues a NICK change.
func (c *Client) ChangeNick(nick string) {
	c.conn.Nick(nick)
}

// Quit disconnects with reason as the quit message.
func (c *Client) Quit(reason string) {
	c.conn.QuitMessage = reason
	c.conn.Quit()
}
