package ircshadow

import (
	"crypto/tls"
	"strings"
	"time"

	"github.com/ahti123/slack-irc/nickpolicy"
	log "github.com/sirupsen/logrus"

	irc "github.com/qaisjp/go-ircevent"
)

// Config carries the per-connection options every shadow is constructed
// with.
type Config struct {
	Server             string
	UseTLS             bool
	InsecureSkipVerify bool
	ServerPassword     string
	WebIRCPass         string
	PrejoinCommands    []string
	NickSuffix         string
	IdleTimeout        time.Duration
	MaxRetries         int
	FloodProtection    bool
	MessageDelay       time.Duration
	Debug              bool
}

// EventSink receives notifications from every shadow connection. A shadow's
// own IRC callbacks run on go-ircevent's connection goroutine, so they only
// ever call sink methods; sink implementations (the Bridge) are expected to
// forward these onto their own actor channel rather than mutate state
// directly, preserving the single-writer discipline the registry itself
// depends on for its own map access.
type EventSink interface {
	OnShadowNames(userID string, joined []string)
	OnShadowKicked(userID, channel, by, reason string)
	OnShadowNickInvalid(userID string)
	OnShadowAborted(userID string)
	OnShadowPrivateMessage(userID, fromNick, text string)
	OnAwayExpired(userID string, generation int)
}

// Info is the read-only view of a shadow returned by Snapshot.
type Info struct {
	UserID   string
	ChatName string
	Nick     string
	Joined   []string
}

// Registry owns every live shadow connection, keyed by Chat user ID.
// Methods are not internally synchronized: callers (the Bridge actor loop)
// are expected to be the sole caller across all methods per the
// single-owner concurrency model.
type Registry struct {
	cfg     Config
	sink    EventSink
	clients map[string]*Client

	// dial performs the actual network connect + Loop startup for a
	// configured connection. Overridable so tests can exercise Ensure's
	// bookkeeping without touching the network.
	dial func(conn *irc.Connection, server string) error
}

// NewRegistry constructs an empty Registry. sink receives every event a
// shadow connection produces.
func NewRegistry(cfg Config, sink EventSink) *Registry {
	return &Registry{
		cfg:     cfg,
		sink:    sink,
		clients: make(map[string]*Client),
		dial:    defaultDial,
	}
}

func defaultDial(conn *irc.Connection, server string) error {
	if err := conn.Connect(server); err != nil {
		return err
	}
	go conn.Loop()
	return nil
}

// Ensure creates and begins connecting a shadow for userID if one does not
// already exist. Connection happens on a background goroutine so Ensure
// never blocks the caller; retries are governed by cfg.MaxRetries.
func (r *Registry) Ensure(userID, chatName string) (created bool) {
	if _, ok := r.clients[userID]; ok {
		return false
	}

	nick := nickpolicy.Derive(chatName, r.cfg.NickSuffix)
	c := newClient(userID, chatName, nick, nick)
	r.clients[userID] = c
	r.attachCallbacks(c)
	go r.connect(c)
	return true
}

func (r *Registry) connect(c *Client) {
	conn := c.conn
	conn.UseTLS = r.cfg.UseTLS
	if r.cfg.InsecureSkipVerify {
		conn.TLSConfig = &tls.Config{InsecureSkipVerify: true} // nolint:gosec
	}
	conn.Password = r.cfg.ServerPassword
	conn.WebIRC = r.cfg.WebIRCPass
	conn.Debug = r.cfg.Debug
	conn.FloodProtection = r.cfg.FloodProtection
	if r.cfg.MessageDelay > 0 {
		conn.SendDelay = r.cfg.MessageDelay
	}

	retries := r.cfg.MaxRetries
	if retries <= 0 {
		retries = 5
	}

	backoff := time.Second
	for attempt := 0; attempt < retries; attempt++ {
		if err := r.dial(conn, r.cfg.Server); err == nil {
			return
		} else if attempt == retries-1 {
			log.WithField("user", c.UserID).WithError(err).Warnln("shadow exhausted connection retries")
			r.sink.OnShadowAborted(c.UserID)
			return
		}
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (r *Registry) attachCallbacks(c *Client) {
	conn := c.conn

	conn.AddCallback("001", func(e *irc.Event) {
		for _, cmd := range r.cfg.PrejoinCommands {
			conn.SendRaw(cmd)
		}
	})

	conn.AddCallback("366", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		c.markJoined(e.Arguments[1])
		r.sink.OnShadowNames(c.UserID, c.JoinedChannels())
	})

	conn.AddCallback("PART", func(e *irc.Event) {
		if e.Nick == c.Nick() && len(e.Arguments) > 0 {
			c.markParted(e.Arguments[0])
		}
	})

	conn.AddCallback("KICK", func(e *irc.Event) {
		if len(e.Arguments) < 2 {
			return
		}
		channel, kicked := e.Arguments[0], e.Arguments[1]
		if !strings.EqualFold(kicked, c.Nick()) {
			return
		}
		reason := ""
		if len(e.Arguments) > 2 {
			reason = e.Arguments[2]
		}
		c.markParted(channel)
		r.sink.OnShadowKicked(c.UserID, channel, e.Nick, reason)
	})

	conn.AddCallback("432", func(e *irc.Event) {
		r.sink.OnShadowNickInvalid(c.UserID)
	})

	conn.AddCallback("433", func(e *irc.Event) {
		r.sink.OnShadowNickInvalid(c.UserID)
	})

	conn.AddCallback("PRIVMSG", func(e *irc.Event) {
		if len(e.Arguments) < 2 || !strings.EqualFold(e.Arguments[0], c.Nick()) {
			return // not a private message addressed to this shadow
		}
		r.sink.OnShadowPrivateMessage(c.UserID, e.Nick, e.Message())
	})
}

// CancelAway clears any pending away-timer for userID, bumping the
// generation counter so an already-fired but not-yet-processed timer
// callback is ignored by the caller when it arrives.
func (r *Registry) CancelAway(userID string) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	c.generation++
	if c.awayTimer != nil {
		c.awayTimer.Stop()
		c.awayTimer = nil
	}
}

// ScheduleAway starts a grace-period timer after which sink.OnAwayExpired
// fires with the generation captured at schedule time.
func (r *Registry) ScheduleAway(userID string, after time.Duration) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	c.generation++
	gen := c.generation
	if c.awayTimer != nil {
		c.awayTimer.Stop()
	}
	c.awayTimer = time.AfterFunc(after, func() {
		r.sink.OnAwayExpired(userID, gen)
	})
}

// IsCurrentGeneration reports whether gen is still the live generation for
// userID, used by the Bridge to discard a stale awayExpired callback.
func (r *Registry) IsCurrentGeneration(userID string, gen int) bool {
	c, ok := r.clients[userID]
	return ok && c.generation == gen
}

// Rename updates the stored Chat display name and, if the nick derived from
// it differs from the shadow's current nick, issues a NICK change.
func (r *Registry) Rename(userID, chatName string) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	c.ChatName = chatName
	want := nickpolicy.Derive(chatName, r.cfg.NickSuffix)
	if want != c.Nick() {
		c.ChangeNick(want)
	}
}

// Destroy disconnects userID's shadow with reason and removes it from the
// registry.
func (r *Registry) Destroy(userID, reason string) {
	c, ok := r.clients[userID]
	if !ok {
		return
	}
	if c.awayTimer != nil {
		c.awayTimer.Stop()
	}
	c.Quit(reason)
	delete(r.clients, userID)
}

// Remove drops userID from the registry without issuing a quit, for use
// when the connection has already aborted on its own. Any pending
// away-timer is stopped.
func (r *Registry) Remove(userID string) {
	if c, ok := r.clients[userID]; ok && c.awayTimer != nil {
		c.awayTimer.Stop()
	}
	delete(r.clients, userID)
}

// Get returns the live shadow for userID, if any.
func (r *Registry) Get(userID string) (*Client, bool) {
	c, ok := r.clients[userID]
	return c, ok
}

// HasJoined reports whether userID's shadow has joined channel.
func (r *Registry) HasJoined(userID, channel string) bool {
	c, ok := r.clients[userID]
	return ok && c.HasJoined(channel)
}

// NickForChatName implements textxform.ShadowLookup: it returns the current
// IRC nick of the shadow whose Chat display name is name.
func (r *Registry) NickForChatName(name string) (string, bool) {
	for _, c := range r.clients {
		if c.ChatName == name {
			return c.Nick(), true
		}
	}
	return "", false
}

// ChatNameForNick implements textxform.ShadowLookup: it returns the Chat
// display name of the shadow currently using nick.
func (r *Registry) ChatNameForNick(nick string) (string, bool) {
	for _, c := range r.clients {
		if strings.EqualFold(c.Nick(), nick) {
			return c.ChatName, true
		}
	}
	return "", false
}

// UserIDForNick returns the Chat user ID of the shadow currently using nick,
// used to suppress relaying a shadow's own IRC messages back to Chat.
func (r *Registry) UserIDForNick(nick string) (string, bool) {
	for id, c := range r.clients {
		if strings.EqualFold(c.Nick(), nick) {
			return id, true
		}
	}
	return "", false
}

// Snapshot returns a read-only view of every live shadow.
func (r *Registry) Snapshot() []Info {
	out := make([]Info, 0, len(r.clients))
	for id, c := range r.clients {
		out = append(out, Info{
			UserID:   id,
			ChatName: c.ChatName,
			Nick:     c.Nick(),
			Joined:   c.JoinedChannels(),
		})
	}
	return out
}

// Count returns the number of live shadows.
func (r *Registry) Count() int {
	return len(r.clients)
}
