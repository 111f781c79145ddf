package command

import (
	"sort"
	"strings"
)

// commandOnline lists nicks of shadows currently joined to the IRC channel
// mapped from chatChannel, or every live shadow if arg names no channel and
// none can be resolved.
func commandOnline(p *Parser, arg, chatChannel string) string {
	if p.Shadows == nil {
		return "no users online"
	}

	ircChannel := arg
	if ircChannel == "" && p.Channels != nil {
		ircChannel, _ = p.Channels.IRCChannel(chatChannel)
	}

	var nicks []string
	for _, info := range p.Shadows.Snapshot() {
		if ircChannel == "" || inChannel(info.Joined, ircChannel) {
			nicks = append(nicks, info.Nick)
		}
	}
	if len(nicks) == 0 {
		return "no users online"
	}

	sort.Strings(nicks)
	return "Online: " + strings.Join(nicks, ", ")
}

// commandTopic reports the last known IRC topic of the channel this Chat
// message came from.
func commandTopic(p *Parser, arg, chatChannel string) string {
	if p.Channels == nil || p.Topics == nil {
		return "topic unavailable"
	}

	ircChannel, ok := p.Channels.IRCChannel(chatChannel)
	if !ok {
		return "this channel isn't bridged to IRC"
	}

	topic, ok := p.Topics.Topic(ircChannel)
	if !ok || topic == "" {
		return "no topic set"
	}
	return topic
}

// commandHelp is the fallback for any unrecognized command name.
func commandHelp(p *Parser, arg, chatChannel string) string {
	return "Commands: `online [channel]` lists IRC users, `topic` shows the bridged channel's IRC topic."
}

func inChannel(joined []string, target string) bool {
	for _, ch := range joined {
		if strings.EqualFold(ch, target) {
			return true
		}
	}
	return false
}
