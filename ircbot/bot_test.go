package ircbot

import (
	"errors"
	"testing"
	"time"

	irc "github.com/qaisjp/go-ircevent"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEvents struct {
	registered bool
	aborted    bool
	messages   []string
	topics     []string
	kicks      []string
}

func (f *fakeEvents) OnBotRegistered() { f.registered = true }
func (f *fakeEvents) OnBotAborted()    { f.aborted = true }
func (f *fakeEvents) OnBotMessage(author, host, channel, text string) {
	f.messages = append(f.messages, author+":"+channel+":"+text)
}
func (f *fakeEvents) OnBotNotice(author, channel, text string)       {}
func (f *fakeEvents) OnBotAction(author, host, channel, text string) {}
func (f *fakeEvents) OnBotInvite(channel, by string)           {}
func (f *fakeEvents) OnBotJoin(nick, channel string)           {}
func (f *fakeEvents) OnBotPart(nick, channel string)           {}
func (f *fakeEvents) OnBotQuit(nick, reason string)            {}
func (f *fakeEvents) OnBotKick(channel, nick, by, reason string) {
	f.kicks = append(f.kicks, channel+":"+nick)
}
func (f *fakeEvents) OnBotTopic(channel, topic string) {
	f.topics = append(f.topics, channel+":"+topic)
}

func TestConnectSucceedsOnFirstDial(t *testing.T) {
	events := &fakeEvents{}
	b := New(Config{Nickname: "bridge", MaxRetries: 3}, events)
	b.dial = func(conn *irc.Connection, server string) error { return nil }

	b.Connect()
	assert.False(t, events.aborted)
}

func TestConnectAbortsAfterExhaustingRetries(t *testing.T) {
	events := &fakeEvents{}
	b := New(Config{Nickname: "bridge", MaxRetries: 1}, events)
	b.dial = func(conn *irc.Connection, server string) error { return errors.New("refused") }

	done := make(chan struct{})
	go func() {
		b.Connect()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Connect did not return")
	}
	assert.True(t, events.aborted)
}

func TestIsSelf(t *testing.T) {
	events := &fakeEvents{}
	b := New(Config{Nickname: "bridge"}, events)
	assert.True(t, b.IsSelf("BRIDGE"))
	assert.False(t, b.IsSelf("someoneelse"))
}

func TestNickReflectsConfiguredNickname(t *testing.T) {
	events := &fakeEvents{}
	b := New(Config{Nickname: "bridge"}, events)
	require.Equal(t, "bridge", b.Nick())
}
