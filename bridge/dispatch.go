package bridge

import (
	"strings"

	"github.com/gobwas/glob"
	log "github.com/sirupsen/logrus"

	"github.com/ahti123/slack-irc/chat"
	"github.com/ahti123/slack-irc/queue"
	"github.com/ahti123/slack-irc/textxform"
)

// handleChatOpen ensures a shadow for every currently-active non-bot member
// of every configured Chat channel.
func (b *Bridge) handleChatOpen() {
	for _, m := range b.channels.Mappings() {
		ch, ok := b.store.GetChannelOrGroupByName(m.ChatChannel)
		if !ok {
			continue
		}
		for _, uid := range ch.Members {
			u, ok := b.store.GetUserByID(uid)
			if !ok || u.IsBot || u.Presence != chat.PresenceActive {
				continue
			}
			b.registry.Ensure(u.ID, u.Name)
		}
	}
}

// handleChatMessage filters, transforms, and enqueues an incoming Chat
// message for relay to IRC.
func (b *Bridge) handleChatMessage(msg chat.Message) {
	if msg.Type != "message" {
		return
	}
	switch msg.Subtype {
	case "", "me_message", "file_share":
	default:
		return
	}

	ch, ok := b.store.GetChannelGroupOrDMByID(msg.ChannelID)
	if !ok {
		log.WithField("channel", msg.ChannelID).Debugln("dropping message: channel not visible")
		return
	}

	ircChannel, ok := b.channels.IRCChannel(ch.DisplayName())
	if !ok {
		log.WithField("channel", ch.DisplayName()).Debugln("dropping message: channel has no IRC mapping")
		return
	}

	if matchesAny(b.chatIgnores, msg.Text) {
		log.WithField("channel", ch.DisplayName()).Debugln("dropping message: matched chat filtered-message pattern")
		return
	}

	if b.cfg.MuteSlackbot && b.store.GetBotByUserID(msg.UserID) {
		return
	}

	if b.commands.IsCommand(msg.Text) {
		reply := b.commands.Handle(msg.Text, ch.DisplayName())
		if err := b.poster.Post(msg.ChannelID, b.cfg.IRCNickname, reply); err != nil {
			log.WithError(err).Warnln("failed to post command reply")
		}
		return
	}

	text := b.transform.ParseText(msg.Text)
	if strings.TrimSpace(text) == "" {
		return
	}

	entry := queue.Entry{Text: text, Subtype: msg.Subtype}
	if msg.Subtype == "file_share" && msg.File != nil {
		entry.FilePermalink = msg.File.Permalink
		entry.FileComment = msg.File.InitialComment
		entry.FileHasComment = msg.File.HasComment
	}

	b.queues.Enqueue(msg.UserID, ircChannel, entry)
	b.dispatch(msg.UserID)
}

// dispatchTarget is the subset of *ircshadow.Client that dispatch drives,
// declared as an interface so tests can substitute a fake shadow instead
// of a live IRC connection.
type dispatchTarget interface {
	HasJoined(channel string) bool
	Say(channel, text string)
	Action(channel, text string)
}

// dispatch flushes queued messages for userID up to the first IRC channel
// their shadow hasn't joined yet.
func (b *Bridge) dispatch(userID string) {
	if !b.queues.HasPending(userID) {
		return
	}

	shadow, ok := b.getShadow(userID)
	if !ok {
		if u, ok := b.store.GetUserByID(userID); ok && !u.IsBot {
			b.registry.Ensure(userID, u.Name)
		}
		return
	}

	for _, ircChannel := range b.queues.Channels(userID) {
		if !shadow.HasJoined(ircChannel) {
			break // head-of-line blocking: stop at the first unjoined channel
		}

		for _, e := range b.queues.Drain(userID, ircChannel) {
			switch e.Subtype {
			case "me_message":
				shadow.Action(ircChannel, e.Text)
			case "file_share":
				body := e.FilePermalink
				if e.FileHasComment {
					body = e.FileComment + ":\r\n" + e.FilePermalink
				}
				shadow.Say(ircChannel, body)
			default:
				shadow.Say(ircChannel, e.Text)
			}
		}
	}
}

// handlePresenceChange drives ShadowRegistry from presence_change events.
func (b *Bridge) handlePresenceChange(change chat.PresenceChange) {
	switch change.Presence {
	case chat.PresenceActive:
		if _, ok := b.registry.Get(change.UserID); ok {
			b.registry.CancelAway(change.UserID)
			return
		}
		if u, ok := b.store.GetUserByID(change.UserID); ok && !u.IsBot {
			b.registry.Ensure(u.ID, u.Name)
		}
	case chat.PresenceAway:
		b.registry.ScheduleAway(change.UserID, b.cfg.IdleTimeout)
	}
}

// handleUserChange re-reads presence from the Store rather than trusting
// the event's embedded presence.
func (b *Bridge) handleUserChange(change chat.UserChange) {
	u, ok := b.store.GetUserByID(change.User.ID)
	if !ok || u.Presence != chat.PresenceActive {
		return
	}
	if _, exists := b.registry.Get(u.ID); exists {
		b.registry.Rename(u.ID, u.Name)
	} else if !u.IsBot {
		b.registry.Ensure(u.ID, u.Name)
	}
}

// relayBotMessage handles an IRC PRIVMSG/ACTION relayed by the bridge bot.
func (b *Bridge) relayBotMessage(author, host, channel, text string) {
	if b.bot.IsSelf(author) {
		return
	}
	if _, ok := b.registry.UserIDForNick(author); ok {
		return // echo suppression: this is a shadow's own message
	}
	if matchesHostmask(b.ircIgnores, author, host) {
		return
	}

	chatChannel, ok := b.channels.ChatChannel(channel)
	if !ok {
		return
	}
	ch, ok := b.store.GetChannelOrGroupByName(chatChannel)
	if !ok {
		return
	}

	text = textxform.StripIRCFormatting(text)
	text = b.transform.ReplaceUsernames(text, b.cfg.NickSuffix)

	if err := b.poster.Post(ch.ID, author, text); err != nil {
		log.WithError(err).Warnln("failed to relay IRC message to chat")
	}
}

func (b *Bridge) relayBotNotice(author, channel, text string) {
	b.relayBotMessage(author, "", channel, "*"+text+"*")
}

// handleInvite accepts an IRC invite iff the channel is in the mapping.
func (b *Bridge) handleInvite(channel, by string) {
	if _, ok := b.channels.ChatChannel(channel); ok {
		b.bot.Join(channel)
	}
}

// handleStatusNotice posts a join/part/quit notice to Chat if enabled. An
// empty channel (a QUIT, which isn't scoped to one IRC channel) broadcasts
// to every bridged channel instead of a single resolved one.
func (b *Bridge) handleStatusNotice(nick, channel, verb string) {
	if strings.Contains(verb, "joined") && !b.cfg.StatusNotices.Join {
		return
	}
	if (strings.Contains(verb, "left") || strings.Contains(verb, "quit")) && !b.cfg.StatusNotices.Leave {
		return
	}

	text := nick + " " + verb + " IRC."

	if channel == "" {
		for _, m := range b.channels.Mappings() {
			if ch, ok := b.store.GetChannelOrGroupByName(m.ChatChannel); ok {
				if err := b.poster.Post(ch.ID, b.cfg.IRCNickname, text); err != nil {
					log.WithError(err).Debugln("failed to post status notice")
				}
			}
		}
		return
	}

	chatChannel, ok := b.channels.ChatChannel(channel)
	if !ok {
		return
	}
	ch, ok := b.store.GetChannelOrGroupByName(chatChannel)
	if !ok {
		return
	}
	if err := b.poster.Post(ch.ID, b.cfg.IRCNickname, text); err != nil {
		log.WithError(err).Debugln("failed to post status notice")
	}
}

// handleBotKick relays an IRC kick to Chat, unless the kicked nick belongs
// to a shadow. A shadow's own connection observes the same broadcast KICK
// and produces its own shadowKickedEvent (handled by handleShadowKicked),
// so relaying here too would post a duplicate notice. Identifying a shadow
// nick by its configured suffix, rather than a registry lookup, keeps this
// order-independent: the registry entry may already be gone by the time
// this event is processed, depending on which of the two events the actor
// drains first.
func (b *Bridge) handleBotKick(channel, nick, by, reason string) {
	if b.cfg.NickSuffix != "" && strings.HasSuffix(strings.ToLower(nick), strings.ToLower(b.cfg.NickSuffix)) {
		return
	}

	chatChannel, ok := b.channels.ChatChannel(channel)
	if !ok {
		return
	}
	ch, ok := b.store.GetChannelOrGroupByName(chatChannel)
	if !ok {
		return
	}
	text := by + " kicked " + nick + " from IRC. (" + reason + ")"
	if err := b.poster.Post(ch.ID, b.cfg.IRCNickname, text); err != nil {
		log.WithError(err).Warnln("failed to relay kick notice")
	}
}

// handleShadowKicked relays a shadow's own kick to Chat and tears it
// down.
func (b *Bridge) handleShadowKicked(userID, channel, by, reason string) {
	if shadow, ok := b.registry.Get(userID); ok {
		if chatChannel, ok := b.channels.ChatChannel(channel); ok {
			if ch, ok := b.store.GetChannelOrGroupByName(chatChannel); ok {
				text := by + " kicked " + shadow.Nick() + " from IRC. (" + reason + ")"
				if err := b.poster.Post(ch.ID, b.cfg.IRCNickname, text); err != nil {
					log.WithError(err).Warnln("failed to relay shadow kick notice")
				}
			}
		}
	}
	b.registry.Destroy(userID, "kicked")
	b.queues.DropUser(userID)
}

// handleShadowNickInvalid opens a DM explaining why relay has stopped, then
// tears the shadow down.
func (b *Bridge) handleShadowNickInvalid(userID string) {
	if channelID, err := b.chat.OpenDirectMessage(userID); err == nil {
		msg := "Your display name doesn't produce a valid IRC nickname, so your messages won't be relayed to IRC until it's changed."
		if err := b.chat.PostMessage(channelID, msg, chat.PostOptions{}); err != nil {
			log.WithError(err).Warnln("failed to DM user about invalid nickname")
		}
	}
	b.registry.Destroy(userID, "invalid nickname")
	b.queues.DropUser(userID)
}

func matchesAny(patterns []glob.Glob, text string) bool {
	for _, p := range patterns {
		if p.Match(text) {
			return true
		}
	}
	return false
}

func matchesHostmask(patterns []glob.Glob, nick, host string) bool {
	hostmask := nick + "!" + host
	for _, p := range patterns {
		if p.Match(hostmask) || p.Match(nick) {
			return true
		}
	}
	return false
}
