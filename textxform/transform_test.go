package textxform

import (
	"testing"

	"github.com/ahti123/slack-irc/emoji"
	"github.com/stretchr/testify/assert"
)

type fakeChannels map[string]string

func (f fakeChannels) ResolveChannelName(id string) (string, bool) {
	name, ok := f[id]
	return name, ok
}

type fakeUsers map[string]string

func (f fakeUsers) ResolveUserName(id string) (string, bool) {
	name, ok := f[id]
	return name, ok
}

type fakeShadows struct {
	nickByName map[string]string
	nameByNick map[string]string
}

func (f fakeShadows) NickForChatName(name string) (string, bool) {
	n, ok := f.nickByName[name]
	return n, ok
}

func (f fakeShadows) ChatNameForNick(nick string) (string, bool) {
	n, ok := f.nameByNick[nick]
	return n, ok
}

func TestParseTextEmoji(t *testing.T) {
	tr := New(nil, nil, nil, emoji.New(nil))
	assert.Equal(t, "\U0001F44D works", tr.ParseText(":+1: works"))
}

func TestParseTextBroadcastTokens(t *testing.T) {
	tr := New(nil, nil, nil, nil)
	assert.Equal(t, "@channel @group @everyone", tr.ParseText("<!channel> <!group> <!everyone>"))
}

func TestParseTextChannelWithAlias(t *testing.T) {
	tr := New(fakeChannels{"C123": "other"}, nil, nil, nil)
	assert.Equal(t, "#general", tr.ParseText("<#C123|general>"))
}

func TestParseTextChannelWithoutAlias(t *testing.T) {
	tr := New(fakeChannels{"C123": "general"}, nil, nil, nil)
	assert.Equal(t, "#general", tr.ParseText("<#C123>"))
}

func TestParseTextUserMention(t *testing.T) {
	tr := New(nil, fakeUsers{"U1": "bob"}, nil, nil)
	assert.Equal(t, "hey @bob", tr.ParseText("hey <@U1>"))
}

func TestParseTextRawLink(t *testing.T) {
	tr := New(nil, nil, nil, nil)
	assert.Equal(t, "see http://example.com now", tr.ParseText("see <http://example.com> now"))
}

func TestParseTextHTMLEntities(t *testing.T) {
	tr := New(nil, nil, nil, nil)
	assert.Equal(t, "a < b & c > d", tr.ParseText("a &lt; b &amp; c &gt; d"))
}

func TestParseTextNewlines(t *testing.T) {
	tr := New(nil, nil, nil, nil)
	assert.Equal(t, "a b c", tr.ParseText("a\nb\r\nc"))
}

func TestParseTextShadowMention(t *testing.T) {
	shadows := fakeShadows{nickByName: map[string]string{"bob": "bob-slack"}}
	tr := New(nil, nil, shadows, nil)
	assert.Equal(t, "hi bob-slack", tr.ParseText("hi @bob"))
}

func TestParseTextShadowMentionNoMatch(t *testing.T) {
	shadows := fakeShadows{nickByName: map[string]string{}}
	tr := New(nil, nil, shadows, nil)
	assert.Equal(t, "hi @bob", tr.ParseText("hi @bob"))
}

func TestParseTextIdempotent(t *testing.T) {
	tr := New(nil, nil, nil, emoji.New(nil))
	x := "plain text with no tokens at all"
	assert.Equal(t, tr.ParseText(x), tr.ParseText(tr.ParseText(x)))
}

func TestParseTextRoundTrip(t *testing.T) {
	shadows := fakeShadows{
		nickByName: map[string]string{"bob": "bob-slack"},
		nameByNick: map[string]string{"bob-slack": "bob"},
	}
	tr := New(nil, nil, shadows, nil)

	toIRC := tr.ParseText("@bob")
	assert.Equal(t, "bob-slack", toIRC)

	back := tr.ReplaceUsernames(toIRC, "-slack")
	assert.Equal(t, "bob", back)
}

func TestReplaceUsernamesNoSuffixConfigured(t *testing.T) {
	tr := New(nil, nil, fakeShadows{}, nil)
	assert.Equal(t, "hello", tr.ReplaceUsernames("hello", ""))
}

func TestStripIRCFormattingRemovesControlCodes(t *testing.T) {
	assert.Equal(t, "bold", StripIRCFormatting("\x02bold\x0f"))
}
