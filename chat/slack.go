package chat

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// SlackClient adapts github.com/slack-go/slack's RTM and Web API clients
// to the Client and Store interfaces (chat.postMessage and im.open map
// directly onto PostMessage/OpenDirectMessage; RTM events feed the
// registered handlers).
type SlackClient struct {
	api *slack.Client
	rtm *slack.RTM

	onOpen           []func()
	onMessage        []func(Message)
	onPresenceChange []func(PresenceChange)
	onUserChange     []func(UserChange)
	onUserRemoved    []func(string)
	onError          []func(error)

	mu       sync.RWMutex
	users    map[string]User
	channels map[string]Channel
	botID    string
	selfID   string
}

// NewSlackClient constructs a SlackClient bound to a bot token.
func NewSlackClient(token string) *SlackClient {
	api := slack.New(token)
	return &SlackClient{
		api:      api,
		rtm:      api.NewRTM(),
		users:    make(map[string]User),
		channels: make(map[string]Channel),
	}
}

func (c *SlackClient) OnOpen(fn func())                        { c.onOpen = append(c.onOpen, fn) }
func (c *SlackClient) OnMessage(fn func(Message))               { c.onMessage = append(c.onMessage, fn) }
func (c *SlackClient) OnPresenceChange(fn func(PresenceChange)) { c.onPresenceChange = append(c.onPresenceChange, fn) }
func (c *SlackClient) OnUserChange(fn func(UserChange))         { c.onUserChange = append(c.onUserChange, fn) }
func (c *SlackClient) OnUserRemoved(fn func(string))            { c.onUserRemoved = append(c.onUserRemoved, fn) }
func (c *SlackClient) OnError(fn func(error))                   { c.onError = append(c.onError, fn) }

// Open starts the RTM connection loop and begins dispatching events to
// registered handlers.
func (c *SlackClient) Open() error {
	go c.rtm.ManageConnection()
	go c.loop()
	return nil
}

func (c *SlackClient) Close() error {
	return c.rtm.Disconnect()
}

func (c *SlackClient) loop() {
	for evt := range c.rtm.IncomingEvents {
		switch ev := evt.Data.(type) {
		case *slack.ConnectedEvent:
			c.handleConnected(ev)
		case *slack.MessageEvent:
			c.handleMessage(ev)
		case *slack.PresenceChangeEvent:
			for _, fn := range c.onPresenceChange {
				fn(PresenceChange{UserID: ev.User, Presence: Presence(ev.Presence)})
			}
		case *slack.UserChangeEvent:
			u := fromSlackUser(ev.User)
			c.mu.Lock()
			c.users[u.ID] = u
			c.mu.Unlock()
			for _, fn := range c.onUserChange {
				fn(UserChange{User: u})
			}
		case *slack.TeamMemberLeftEvent:
			for _, fn := range c.onUserRemoved {
				fn(ev.User)
			}
		case *slack.RTMError:
			for _, fn := range c.onError {
				fn(errors.New(ev.Error()))
			}
		case *slack.InvalidAuthEvent:
			for _, fn := range c.onError {
				fn(errors.New("invalid Slack auth token"))
			}
		}
	}
}

func (c *SlackClient) handleConnected(ev *slack.ConnectedEvent) {
	if ev.Info != nil && ev.Info.User != nil {
		c.selfID = ev.Info.User.ID
	}

	c.mu.Lock()
	if ev.Info != nil {
		for _, u := range ev.Info.Users {
			c.users[u.ID] = fromSlackUser(u)
		}
		for _, ch := range ev.Info.Channels {
			c.channels[ch.ID] = Channel{ID: ch.ID, Name: ch.Name, IsGroup: false, Members: ch.Members}
		}
		for _, g := range ev.Info.Groups {
			c.channels[g.ID] = Channel{ID: g.ID, Name: g.Name, IsGroup: true, Members: g.Members}
		}
	}
	c.mu.Unlock()

	for _, fn := range c.onOpen {
		fn()
	}
}

func (c *SlackClient) handleMessage(ev *slack.MessageEvent) {
	// Bot-authored system messages have no user; treat that as an expected
	// condition rather than an error and drop them here.
	if ev.User == "" && ev.SubType != "file_share" {
		return
	}

	msg := Message{
		Type:      "message",
		Subtype:   ev.SubType,
		UserID:    ev.User,
		ChannelID: ev.Channel,
		Text:      ev.Text,
	}

	if len(ev.Files) > 0 {
		f := ev.Files[0]
		msg.File = &FileInfo{
			Permalink:      f.Permalink,
			InitialComment: ev.Msg.Text,
			HasComment:     ev.Msg.Text != "",
		}
	}

	for _, fn := range c.onMessage {
		fn(msg)
	}
}

func fromSlackUser(u slack.User) User {
	presence := PresenceActive
	if u.Presence == "away" {
		presence = PresenceAway
	}
	name := u.Profile.DisplayName
	if name == "" {
		name = u.Name
	}
	return User{ID: u.ID, Name: name, Presence: presence, IsBot: u.IsBot}
}

// PostMessage posts a message into a channel via chat.postMessage.
func (c *SlackClient) PostMessage(channelID, text string, opts PostOptions) error {
	options := []slack.MsgOption{
		slack.MsgOptionText(text, false),
		slack.MsgOptionAsUser(false),
	}
	if opts.Username != "" {
		options = append(options, slack.MsgOptionUsername(opts.Username))
	}
	if opts.IconURL != "" {
		options = append(options, slack.MsgOptionIconURL(opts.IconURL))
	}
	if opts.Parse != "" {
		options = append(options, slack.MsgOptionParse(true))
	}

	_, _, err := c.api.PostMessage(channelID, options...)
	if err != nil {
		return errors.Wrap(err, "chat.postMessage failed")
	}
	return nil
}

// OpenDirectMessage opens (or reuses) a DM channel via im.open.
func (c *SlackClient) OpenDirectMessage(userID string) (string, error) {
	_, _, channelID, err := c.api.OpenIMChannel(userID)
	if err != nil {
		return "", errors.Wrap(err, "im.open failed")
	}
	return channelID, nil
}

// --- Store ---

func (c *SlackClient) GetUserByID(id string) (User, bool) {
	c.mu.RLock()
	u, ok := c.users[id]
	c.mu.RUnlock()
	if ok {
		return u, true
	}

	// Fall back to a live lookup on cache miss.
	su, err := c.api.GetUserInfo(id)
	if err != nil {
		log.WithField("user", id).WithError(err).Debugln("could not resolve Chat user")
		return User{}, false
	}
	u = fromSlackUser(*su)

	c.mu.Lock()
	c.users[id] = u
	c.mu.Unlock()

	return u, true
}

func (c *SlackClient) GetChannelByID(id string) (Channel, bool) {
	return c.getChannelByID(id, false)
}

func (c *SlackClient) GetChannelGroupOrDMByID(id string) (Channel, bool) {
	return c.getChannelByID(id, true)
}

func (c *SlackClient) getChannelByID(id string, allowGroup bool) (Channel, bool) {
	c.mu.RLock()
	ch, ok := c.channels[id]
	c.mu.RUnlock()
	if ok {
		return ch, true
	}

	info, err := c.api.GetConversationInfo(&slack.GetConversationInfoInput{ChannelID: id})
	if err != nil {
		log.WithField("channel", id).WithError(err).Debugln("could not resolve Chat channel")
		return Channel{}, false
	}

	isGroup := info.IsGroup || info.IsMpIM || info.IsIM
	if isGroup && !allowGroup {
		return Channel{}, false
	}

	ch = Channel{ID: info.ID, Name: info.Name, IsGroup: isGroup, Members: info.Members}
	c.mu.Lock()
	c.channels[id] = ch
	c.mu.Unlock()

	return ch, true
}

func (c *SlackClient) GetChannelOrGroupByName(name string) (Channel, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, ch := range c.channels {
		if ch.DisplayName() == name {
			return ch, true
		}
	}
	return Channel{}, false
}

func (c *SlackClient) GetBotByUserID(id string) bool {
	u, ok := c.GetUserByID(id)
	return ok && u.IsBot
}

func (c *SlackClient) ActiveUserID() string {
	return c.selfID
}
