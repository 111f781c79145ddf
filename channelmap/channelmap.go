// Package channelmap holds the bidirectional Chat-channel <-> IRC-channel
// correspondence supplied in configuration. The mapping is injective in
// both directions: no two Chat channels bridge to the same IRC channel
// and vice versa.
package channelmap

import (
	"strings"

	"github.com/pkg/errors"
)

// Mapping is a single Chat channel <-> IRC channel pairing.
type Mapping struct {
	ChatChannel string
	IRCChannel  string
}

// ChannelMap is an injective mapping between Chat channel names and
// lowercased IRC channel names.
type ChannelMap struct {
	mappings   []Mapping
	toIRC      map[string]string
	toChat     map[string]string
	ircKeys    map[string]string // IRC channel -> join key/password
}

// New builds a ChannelMap from raw configuration values, of the form
// accepted by viper's channel_mappings: chat channel name -> "irc-channel"
// or "irc-channel key" (a trailing join password, space-separated).
//
// Passwords are stripped from the stored (public) mapping value but kept
// internally so JoinCommand can still authenticate.
func New(raw map[string]string) (*ChannelMap, error) {
	cm := &ChannelMap{
		toIRC:   make(map[string]string, len(raw)),
		toChat:  make(map[string]string, len(raw)),
		ircKeys: make(map[string]string, len(raw)),
	}

	for chatChannel, ircValue := range raw {
		parts := strings.Fields(ircValue)
		if len(parts) == 0 {
			return nil, errors.Errorf("channel mapping for %q has an empty IRC channel", chatChannel)
		}
		if len(parts) > 2 {
			return nil, errors.Errorf("channel mapping for %q -> %q is invalid: expected 0 or 1 spaces", chatChannel, ircValue)
		}

		ircChannel := strings.ToLower(parts[0])
		if len(parts) == 2 {
			cm.ircKeys[ircChannel] = parts[1]
		}

		if existing, ok := cm.toChat[ircChannel]; ok {
			return nil, errors.Errorf("IRC channel %q is mapped from both %q and %q", ircChannel, existing, chatChannel)
		}
		if existing, ok := cm.toIRC[chatChannel]; ok {
			return nil, errors.Errorf("Chat channel %q is mapped to both %q and %q", chatChannel, existing, ircChannel)
		}

		cm.toIRC[chatChannel] = ircChannel
		cm.toChat[ircChannel] = chatChannel
		cm.mappings = append(cm.mappings, Mapping{ChatChannel: chatChannel, IRCChannel: ircChannel})
	}

	return cm, nil
}

// IRCChannel returns the IRC channel mapped to the given Chat channel.
func (cm *ChannelMap) IRCChannel(chatChannel string) (string, bool) {
	ch, ok := cm.toIRC[chatChannel]
	return ch, ok
}

// ChatChannel returns the Chat channel mapped to the given IRC channel.
// Comparison is case-insensitive on the IRC side, matching IRC's own
// channel-name semantics.
func (cm *ChannelMap) ChatChannel(ircChannel string) (string, bool) {
	ch, ok := cm.toChat[strings.ToLower(ircChannel)]
	return ch, ok
}

// JoinKey returns the join password configured for an IRC channel, if any.
func (cm *ChannelMap) JoinKey(ircChannel string) (string, bool) {
	k, ok := cm.ircKeys[strings.ToLower(ircChannel)]
	return k, ok
}

// IRCChannels returns every IRC channel in the mapping. New reads its
// input from a map, so the order is unspecified.
func (cm *ChannelMap) IRCChannels() []string {
	out := make([]string, len(cm.mappings))
	for i, m := range cm.mappings {
		out[i] = m.IRCChannel
	}
	return out
}

// Mappings returns a copy of every configured mapping.
func (cm *ChannelMap) Mappings() []Mapping {
	out := make([]Mapping, len(cm.mappings))
	copy(out, cm.mappings)
	return out
}

// JoinCommand builds a single IRC JOIN command joining every mapped
// channel, keyed channels first, matching RFC 1459's positional-parameter
// requirement that keys precede unkeyed channels.
func (cm *ChannelMap) JoinCommand() string {
	var keyed, unkeyed, keys []string

	for _, m := range cm.mappings {
		if key, ok := cm.ircKeys[m.IRCChannel]; ok {
			keyed = append(keyed, m.IRCChannel)
			keys = append(keys, key)
		} else {
			unkeyed = append(unkeyed, m.IRCChannel)
		}
	}

	channels := append(keyed, unkeyed...)
	return "JOIN " + strings.Join(channels, ",") + " " + strings.Join(keys, ",")
}
