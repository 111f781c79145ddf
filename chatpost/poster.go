// Package chatpost posts IRC-authored messages into Chat under the
// originating IRC user's name and avatar, retrying once on rate limits.
package chatpost

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/ahti123/slack-irc/chat"
)

// Poster wraps a chat.Client's PostMessage with avatar-URL templating and a
// single retry on rate-limit failures.
type Poster struct {
	Client chat.Client

	// AvatarTemplate is an icon URL containing the placeholder $username;
	// empty disables avatars entirely.
	AvatarTemplate string
	// BotNickname suppresses the avatar for messages authored by the
	// bridge's own IRC nickname (the bot doesn't need an icon override).
	BotNickname string

	// RetryDelay is how long to wait before the one retry attempt on a
	// rate-limited post. Defaults to one second.
	RetryDelay time.Duration
}

// Post sends text into channelID, attributed to author.
func (p *Poster) Post(channelID, author, text string) error {
	opts := chat.PostOptions{
		Username: author,
		Parse:    "full",
	}
	if p.AvatarTemplate != "" && !strings.EqualFold(author, p.BotNickname) {
		opts.IconURL = strings.ReplaceAll(p.AvatarTemplate, "$username", author)
	}

	err := p.Client.PostMessage(channelID, text, opts)
	if err == nil {
		return nil
	}

	if !isRateLimited(err) {
		return errors.Wrap(err, "chat.postMessage failed")
	}

	delay := p.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	log.WithField("channel", channelID).WithError(err).Debugln("chat.postMessage rate limited, retrying once")
	time.Sleep(delay)

	if err := p.Client.PostMessage(channelID, text, opts); err != nil {
		log.WithField("channel", channelID).WithError(err).Warnln("chat.postMessage failed after retry")
		return errors.Wrap(err, "chat.postMessage failed after retry")
	}
	return nil
}

// isRateLimited reports whether err looks like a rate-limit response.
// slack-go/slack surfaces these as *slack.RateLimitedError, but Poster is
// deliberately kept independent of that concrete type so it can front any
// chat.Client implementation, hence the substring check on the wrapped
// message rather than a type assertion.
func isRateLimited(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "rate limit")
}
