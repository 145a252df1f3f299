package tracker

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// PeerKind tells users, basic groups, channels and the own account apart.
type PeerKind int

const (
	PeerUser PeerKind = iota
	PeerChat
	PeerChannel
	PeerSelf
)

func (k PeerKind) String() string {
	switch k {
	case PeerUser:
		return "user"
	case PeerChat:
		return "chat"
	case PeerChannel:
		return "channel"
	case PeerSelf:
		return "self"
	default:
		return "peer(" + strconv.Itoa(int(k)) + ")"
	}
}

// Peer is a resolved user or chat.
type Peer struct {
	Kind      PeerKind
	ID        int64
	FirstName string
	LastName  string
	Username  string
	Title     string
}

// DisplayName is the name used in log entries.
func (p Peer) DisplayName() string {
	switch {
	case p.Kind == PeerSelf:
		return "Saved Messages"
	case p.FirstName != "":
		return p.FirstName
	case p.Title != "":
		return p.Title
	case p.Username != "":
		return "@" + p.Username
	default:
		return strconv.FormatInt(p.ID, 10)
	}
}

// Mention renders "Name (@username)" the way the startup banner shows the target.
func (p Peer) Mention() string {
	username := p.Username
	if username == "" {
		username = "no username"
	}
	return p.DisplayName() + " (@" + username + ")"
}

// MessageKey identifies a message. Telegram numbers private and basic group
// messages per account and channel messages per channel, so the channel id
// is part of the key (zero outside channels).
type MessageKey struct {
	ChannelID int64
	ID        int
}

// MediaFlags describe the attachment of a message. Several flags may be set
// at once, ClassifyMedia decides which one wins.
type MediaFlags uint16

const (
	MediaPhoto MediaFlags = 1 << iota
	MediaVideo
	MediaVoice
	MediaAudio
	MediaDocument
	MediaAnimated
	MediaSticker
	MediaVideoNote
)

// Has reports whether all bits of f2 are set in f.
func (f MediaFlags) Has(f2 MediaFlags) bool { return f&f2 == f2 }

// Media is an attachment. Source is the collaborator's own handle used to
// download it and is opaque to the tracker.
type Media struct {
	Flags  MediaFlags
	Source any
}

// Message is a new or edited message.
type Message struct {
	Key      MessageKey
	SenderID int64
	Text     string
	Media    *Media
	Date     time.Time
}

// Deletion lists message ids reported deleted, without sender attribution.
type Deletion struct {
	ChannelID int64
	IDs       []int
}

// ActionKind is an in-progress composing activity.
type ActionKind int

const (
	ActionUnknown ActionKind = iota
	ActionCancel
	ActionTyping
	ActionRecordVideo
	ActionUploadVideo
	ActionRecordVoice
	ActionUploadAudio
	ActionUploadPhoto
	ActionUploadDocument
)

// UserAction is a typing/recording/uploading notification. TypeName is the
// collaborator's name for the action and labels kinds outside the table.
type UserAction struct {
	UserID   int64
	Kind     ActionKind
	TypeName string
}

// PresenceState is the online status of a user.
type PresenceState int

const (
	PresenceUnknown PresenceState = iota
	PresenceOnline
	PresenceOffline
)

func (s PresenceState) String() string {
	switch s {
	case PresenceOnline:
		return "online"
	case PresenceOffline:
		return "offline"
	default:
		return "unknown"
	}
}

// Presence is a status snapshot. LastSeen is only meaningful when offline.
type Presence struct {
	State    PresenceState
	LastSeen time.Time
}

// Client is the Telegram collaborator the tracker talks to.
type Client interface {
	// Dialogs lists the peers of the session's dialog list.
	Dialogs(ctx context.Context) ([]Peer, error)
	// LookupPeer resolves a numeric id or username directly.
	LookupPeer(ctx context.Context, spec string) (Peer, error)
	SendText(ctx context.Context, to Peer, text Entry) error
	SendFile(ctx context.Context, to Peer, path string, caption Entry) error
	// DownloadMedia stores media at pathPrefix plus an extension of its
	// choosing and returns the final path, or "" if nothing was written.
	DownloadMedia(ctx context.Context, media Media, pathPrefix string) (string, error)
	UserPresence(ctx context.Context, user Peer) (Presence, error)
}

type (
	MessageHandler  func(ctx context.Context, m Message) error
	DeletionHandler func(ctx context.Context, d Deletion) error
	ActionHandler   func(ctx context.Context, a UserAction) error
	StatusHandler   func(ctx context.Context, userID int64, p Presence) error
)

// Subscriber delivers the event categories the tracker listens to.
type Subscriber interface {
	OnNewMessage(h MessageHandler)
	OnEditMessage(h MessageHandler)
	OnDeleteMessages(h DeletionHandler)
	OnUserAction(h ActionHandler)
	OnUserStatus(h StatusHandler)
}

// Reporter prints operator-facing progress lines.
type Reporter interface {
	Success(format string, args ...any)
	Failure(format string, args ...any)
	Warn(format string, args ...any)
	Info(format string, args ...any)
}

const channelShift = 1000000000000

// BotAPIPeer maps an id written the Bot API way (-100… channels, negative
// basic groups, positive users) onto a peer kind and raw id.
func BotAPIPeer(id int64) (PeerKind, int64) {
	switch {
	case id <= -channelShift:
		return PeerChannel, -id - channelShift
	case id < 0:
		return PeerChat, -id
	default:
		return PeerUser, id
	}
}

// BotAPIID writes p's id the way BotAPIPeer reads it.
func BotAPIID(p Peer) int64 {
	switch p.Kind {
	case PeerChannel:
		return -p.ID - channelShift
	case PeerChat:
		return -p.ID
	default:
		return p.ID
	}
}

func isSelfMarker(spec string) bool {
	return strings.EqualFold(strings.TrimSpace(spec), "me")
}
