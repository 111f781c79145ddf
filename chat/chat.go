// Package chat defines the boundary this bridge shares with the team
// chat service. The concrete RTM/web-API transport is an external
// collaborator; this package is the interface the rest of the bridge
// programs against, plus one concrete implementation (slack.go) backed by
// a real Slack-compatible client.
package chat

// Client is the real-time and web-API surface the bridge consumes.
//
// Event delivery follows a register-then-open style: callers register one
// handler per event kind before calling Open.
type Client interface {
	// OnOpen registers a handler fired once the real-time connection is
	// established and ready.
	OnOpen(func())
	// OnMessage registers a handler fired for every incoming message.
	OnMessage(func(Message))
	// OnPresenceChange registers a handler for presence_change events.
	OnPresenceChange(func(PresenceChange))
	// OnUserChange registers a handler for user_change events.
	OnUserChange(func(UserChange))
	// OnUserRemoved registers a handler fired when a user leaves the team.
	OnUserRemoved(func(userID string))
	// OnError registers a handler for transport-level errors. The RTM
	// client is expected to reconnect on its own; this is purely for
	// logging.
	OnError(func(error))

	// Open starts the real-time connection. It returns once the
	// connection loop has been started; delivery happens asynchronously
	// via the registered handlers.
	Open() error
	// Close tears down the real-time connection.
	Close() error

	// PostMessage posts text into a Chat channel via the web API.
	PostMessage(channelID, text string, opts PostOptions) error
	// OpenDirectMessage opens (or reuses) a DM channel with a user and
	// returns its channel ID.
	OpenDirectMessage(userID string) (channelID string, err error)
}

// Store is a read-only view of Chat's user/channel data, consulted
// synchronously from event handlers.
type Store interface {
	GetUserByID(id string) (User, bool)
	GetChannelByID(id string) (Channel, bool)
	GetChannelGroupOrDMByID(id string) (Channel, bool)
	GetChannelOrGroupByName(name string) (Channel, bool)
	GetBotByUserID(id string) bool
	ActiveUserID() string
}
