package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"tracker/pkg/tracker"
)

type peerKey struct {
	kind tracker.PeerKind
	id   int64
}

type peerEntry struct {
	peer  tracker.Peer
	input tg.InputPeerClass
}

// peerTable remembers the access hashes of every entity the session has
// seen, so resolved peers can be addressed later.
type peerTable struct {
	mu      sync.RWMutex
	entries map[peerKey]peerEntry
}

func newPeerTable() *peerTable {
	return &peerTable{entries: make(map[peerKey]peerEntry)}
}

func userPeer(u *tg.User) tracker.Peer {
	return tracker.Peer{
		Kind:      tracker.PeerUser,
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Username:  u.Username,
	}
}

func (t *peerTable) store(p tracker.Peer, input tg.InputPeerClass) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[peerKey{p.Kind, p.ID}] = peerEntry{peer: p, input: input}
}

func (t *peerTable) rememberUser(u *tg.User) tracker.Peer {
	p := userPeer(u)
	// Min constructors carry an access hash that is not valid for requests.
	if u.Min {
		if _, ok := t.lookup(p.Kind, p.ID); ok {
			return p
		}
	}
	t.store(p, &tg.InputPeerUser{UserID: u.ID, AccessHash: u.AccessHash})
	return p
}

func (t *peerTable) rememberChat(c *tg.Chat) tracker.Peer {
	p := tracker.Peer{Kind: tracker.PeerChat, ID: c.ID, Title: c.Title}
	t.store(p, &tg.InputPeerChat{ChatID: c.ID})
	return p
}

func (t *peerTable) rememberChannel(c *tg.Channel) tracker.Peer {
	p := tracker.Peer{Kind: tracker.PeerChannel, ID: c.ID, Title: c.Title, Username: c.Username}
	if c.Min {
		if _, ok := t.lookup(p.Kind, p.ID); ok {
			return p
		}
	}
	t.store(p, &tg.InputPeerChannel{ChannelID: c.ID, AccessHash: c.AccessHash})
	return p
}

func (t *peerTable) rememberEntities(e tg.Entities) {
	for _, u := range e.Users {
		t.rememberUser(u)
	}
	for _, c := range e.Chats {
		t.rememberChat(c)
	}
	for _, c := range e.Channels {
		t.rememberChannel(c)
	}
}

func (t *peerTable) rememberAll(users []tg.UserClass, chats []tg.ChatClass) []tracker.Peer {
	peers := make([]tracker.Peer, 0, len(users)+len(chats))
	for _, u := range users {
		if u, ok := u.(*tg.User); ok {
			peers = append(peers, t.rememberUser(u))
		}
	}
	for _, c := range chats {
		switch c := c.(type) {
		case *tg.Chat:
			peers = append(peers, t.rememberChat(c))
		case *tg.Channel:
			peers = append(peers, t.rememberChannel(c))
		}
	}
	return peers
}

func (t *peerTable) lookup(kind tracker.PeerKind, id int64) (peerEntry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[peerKey{kind, id}]
	return e, ok
}

// input returns the addressable form of p. Peers never seen are addressed
// without an access hash, which only basic groups accept.
func (t *peerTable) input(p tracker.Peer) tg.InputPeerClass {
	if p.Kind == tracker.PeerSelf {
		return &tg.InputPeerSelf{}
	}
	if e, ok := t.lookup(p.Kind, p.ID); ok {
		return e.input
	}
	switch p.Kind {
	case tracker.PeerChat:
		return &tg.InputPeerChat{ChatID: p.ID}
	case tracker.PeerChannel:
		return &tg.InputPeerChannel{ChannelID: p.ID}
	default:
		return &tg.InputPeerUser{UserID: p.ID}
	}
}

func (t *peerTable) inputUser(id int64) *tg.InputUser {
	if e, ok := t.lookup(tracker.PeerUser, id); ok {
		if u, ok := e.input.(*tg.InputPeerUser); ok {
			return &tg.InputUser{UserID: u.UserID, AccessHash: u.AccessHash}
		}
	}
	return &tg.InputUser{UserID: id}
}

// Dialogs lists the peers found in the first page of the dialog list.
func (c *Client) Dialogs(ctx context.Context) ([]tracker.Peer, error) {
	dialogs, err := c.API().MessagesGetDialogs(ctx, &tg.MessagesGetDialogsRequest{
		OffsetPeer: &tg.InputPeerEmpty{},
		Limit:      c.cfg.DialogLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "get dialogs")
	}

	var (
		users []tg.UserClass
		chats []tg.ChatClass
	)
	switch d := dialogs.(type) {
	case *tg.MessagesDialogs:
		users, chats = d.Users, d.Chats
	case *tg.MessagesDialogsSlice:
		users, chats = d.Users, d.Chats
	default:
		c.logger.Warn("Unknown MessagesDialogsClass type", zap.String("type", fmt.Sprintf("%T", dialogs)))
	}

	peers := c.peers.rememberAll(users, chats)
	c.logger.Debug("Dialogs fetched", zap.Int("peers", len(peers)))
	return peers, nil
}

// LookupPeer resolves "me", a numeric id (Bot API notation accepted) or a
// username without consulting the dialog list.
func (c *Client) LookupPeer(ctx context.Context, spec string) (tracker.Peer, error) {
	spec = strings.TrimSpace(spec)
	if strings.EqualFold(spec, "me") {
		self, err := c.Client.Self(ctx)
		if err != nil {
			return tracker.Peer{}, errors.Wrap(err, "get self")
		}
		return c.peers.rememberUser(self), nil
	}

	if id, err := strconv.ParseInt(spec, 10, 64); err == nil {
		kind, raw := tracker.BotAPIPeer(id)
		if e, ok := c.peers.lookup(kind, raw); ok {
			return e.peer, nil
		}
		return c.fetchPeer(ctx, kind, raw, 0)
	}

	input, err := peer.DefaultResolver(c.API()).ResolveDomain(ctx, strings.TrimPrefix(spec, "@"))
	if err != nil {
		return tracker.Peer{}, errors.Wrapf(err, "resolve %q", spec)
	}
	switch p := input.(type) {
	case *tg.InputPeerUser:
		return c.fetchPeer(ctx, tracker.PeerUser, p.UserID, p.AccessHash)
	case *tg.InputPeerChannel:
		return c.fetchPeer(ctx, tracker.PeerChannel, p.ChannelID, p.AccessHash)
	case *tg.InputPeerChat:
		return c.fetchPeer(ctx, tracker.PeerChat, p.ChatID, 0)
	default:
		return tracker.Peer{}, errors.Errorf("unexpected peer type %T", input)
	}
}

// fetchPeer loads the entity behind an id so that names and access hashes
// are known.
func (c *Client) fetchPeer(ctx context.Context, kind tracker.PeerKind, id, accessHash int64) (tracker.Peer, error) {
	api := c.API()
	switch kind {
	case tracker.PeerUser:
		users, err := api.UsersGetUsers(ctx, []tg.InputUserClass{&tg.InputUser{UserID: id, AccessHash: accessHash}})
		if err != nil {
			return tracker.Peer{}, errors.Wrapf(err, "get user %d", id)
		}
		for _, p := range c.peers.rememberAll(users, nil) {
			if p.ID == id {
				return p, nil
			}
		}
	case tracker.PeerChat:
		chats, err := api.MessagesGetChats(ctx, []int64{id})
		if err != nil {
			return tracker.Peer{}, errors.Wrapf(err, "get chat %d", id)
		}
		for _, p := range c.peers.rememberAll(nil, chats.GetChats()) {
			if p.ID == id {
				return p, nil
			}
		}
	case tracker.PeerChannel:
		chats, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{&tg.InputChannel{ChannelID: id, AccessHash: accessHash}})
		if err != nil {
			return tracker.Peer{}, errors.Wrapf(err, "get channel %d", id)
		}
		for _, p := range c.peers.rememberAll(nil, chats.GetChats()) {
			if p.ID == id {
				return p, nil
			}
		}
	}
	return tracker.Peer{}, errors.Errorf("%s %d not found", kind, id)
}
