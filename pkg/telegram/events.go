package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/gotd/td/tg"

	"tracker/pkg/tracker"
)

// subscriptions holds the tracker callbacks. The dispatcher is wired once in
// NewClient and forwards to whatever is registered at the time an update
// arrives; updates before registration are dropped.
type subscriptions struct {
	mu         sync.RWMutex
	newMessage tracker.MessageHandler
	edit       tracker.MessageHandler
	deletion   tracker.DeletionHandler
	action     tracker.ActionHandler
	status     tracker.StatusHandler
}

// OnNewMessage and the methods below implement tracker.Subscriber.
func (c *Client) OnNewMessage(h tracker.MessageHandler) {
	c.subs.mu.Lock()
	defer c.subs.mu.Unlock()
	c.subs.newMessage = h
}

func (c *Client) OnEditMessage(h tracker.MessageHandler) {
	c.subs.mu.Lock()
	defer c.subs.mu.Unlock()
	c.subs.edit = h
}

func (c *Client) OnDeleteMessages(h tracker.DeletionHandler) {
	c.subs.mu.Lock()
	defer c.subs.mu.Unlock()
	c.subs.deletion = h
}

func (c *Client) OnUserAction(h tracker.ActionHandler) {
	c.subs.mu.Lock()
	defer c.subs.mu.Unlock()
	c.subs.action = h
}

func (c *Client) OnUserStatus(h tracker.StatusHandler) {
	c.subs.mu.Lock()
	defer c.subs.mu.Unlock()
	c.subs.status = h
}

func (c *Client) registerDispatcher(d tg.UpdateDispatcher) {
	d.OnNewMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewMessage) error {
		c.peers.rememberEntities(e)
		return c.dispatchMessage(ctx, u.Message, false)
	})
	d.OnNewChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateNewChannelMessage) error {
		c.peers.rememberEntities(e)
		return c.dispatchMessage(ctx, u.Message, false)
	})
	d.OnEditMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditMessage) error {
		c.peers.rememberEntities(e)
		return c.dispatchMessage(ctx, u.Message, true)
	})
	d.OnEditChannelMessage(func(ctx context.Context, e tg.Entities, u *tg.UpdateEditChannelMessage) error {
		c.peers.rememberEntities(e)
		return c.dispatchMessage(ctx, u.Message, true)
	})
	d.OnDeleteMessages(func(ctx context.Context, e tg.Entities, u *tg.UpdateDeleteMessages) error {
		return c.dispatchDeletion(ctx, tracker.Deletion{IDs: u.Messages})
	})
	d.OnDeleteChannelMessages(func(ctx context.Context, e tg.Entities, u *tg.UpdateDeleteChannelMessages) error {
		return c.dispatchDeletion(ctx, tracker.Deletion{ChannelID: u.ChannelID, IDs: u.Messages})
	})
	d.OnUserTyping(func(ctx context.Context, e tg.Entities, u *tg.UpdateUserTyping) error {
		return c.dispatchAction(ctx, u.UserID, u.Action)
	})
	d.OnChatUserTyping(func(ctx context.Context, e tg.Entities, u *tg.UpdateChatUserTyping) error {
		if from, ok := u.FromID.(*tg.PeerUser); ok {
			return c.dispatchAction(ctx, from.UserID, u.Action)
		}
		return nil
	})
	d.OnChannelUserTyping(func(ctx context.Context, e tg.Entities, u *tg.UpdateChannelUserTyping) error {
		if from, ok := u.FromID.(*tg.PeerUser); ok {
			return c.dispatchAction(ctx, from.UserID, u.Action)
		}
		return nil
	})
	d.OnUserStatus(func(ctx context.Context, e tg.Entities, u *tg.UpdateUserStatus) error {
		c.subs.mu.RLock()
		h := c.subs.status
		c.subs.mu.RUnlock()
		if h == nil {
			return nil
		}
		return h(ctx, u.UserID, convertStatus(u.Status))
	})
}

func (c *Client) dispatchMessage(ctx context.Context, msg tg.MessageClass, edit bool) error {
	c.subs.mu.RLock()
	h := c.subs.newMessage
	if edit {
		h = c.subs.edit
	}
	c.subs.mu.RUnlock()
	if h == nil {
		return nil
	}

	m, ok := convertMessage(msg, c.selfID.Load())
	if !ok {
		return nil
	}
	return h(ctx, m)
}

func (c *Client) dispatchDeletion(ctx context.Context, d tracker.Deletion) error {
	c.subs.mu.RLock()
	h := c.subs.deletion
	c.subs.mu.RUnlock()
	if h == nil || len(d.IDs) == 0 {
		return nil
	}
	return h(ctx, d)
}

func (c *Client) dispatchAction(ctx context.Context, userID int64, action tg.SendMessageActionClass) error {
	c.subs.mu.RLock()
	h := c.subs.action
	c.subs.mu.RUnlock()
	if h == nil {
		return nil
	}
	return h(ctx, convertAction(userID, action))
}

// convertMessage maps a gotd message onto the tracker's model. Service and
// empty messages are skipped.
func convertMessage(msg tg.MessageClass, selfID int64) (tracker.Message, bool) {
	m, ok := msg.(*tg.Message)
	if !ok {
		return tracker.Message{}, false
	}

	out := tracker.Message{
		Key:      tracker.MessageKey{ID: m.ID},
		SenderID: senderOf(m, selfID),
		Text:     m.Message,
		Date:     time.Unix(int64(m.Date), 0),
	}
	if ch, ok := m.PeerID.(*tg.PeerChannel); ok {
		out.Key.ChannelID = ch.ChannelID
	}
	if media, ok := convertMedia(m.Media); ok {
		out.Media = &media
	}
	return out, true
}

// senderOf finds the author. Private incoming messages carry no FromID and
// are authored by the chat peer; outgoing ones by the session itself.
func senderOf(m *tg.Message, selfID int64) int64 {
	if from, ok := m.FromID.(*tg.PeerUser); ok {
		return from.UserID
	}
	if m.Out {
		return selfID
	}
	if p, ok := m.PeerID.(*tg.PeerUser); ok {
		return p.UserID
	}
	return 0
}

func convertAction(userID int64, action tg.SendMessageActionClass) tracker.UserAction {
	a := tracker.UserAction{UserID: userID}
	if action == nil {
		return a
	}
	a.TypeName = action.TypeName()

	switch action.(type) {
	case *tg.SendMessageTypingAction:
		a.Kind = tracker.ActionTyping
	case *tg.SendMessageCancelAction:
		a.Kind = tracker.ActionCancel
	case *tg.SendMessageRecordVideoAction:
		a.Kind = tracker.ActionRecordVideo
	case *tg.SendMessageUploadVideoAction:
		a.Kind = tracker.ActionUploadVideo
	case *tg.SendMessageRecordAudioAction:
		a.Kind = tracker.ActionRecordVoice
	case *tg.SendMessageUploadAudioAction:
		a.Kind = tracker.ActionUploadAudio
	case *tg.SendMessageUploadPhotoAction:
		a.Kind = tracker.ActionUploadPhoto
	case *tg.SendMessageUploadDocumentAction:
		a.Kind = tracker.ActionUploadDocument
	default:
		a.Kind = tracker.ActionUnknown
	}
	return a
}

func convertStatus(s tg.UserStatusClass) tracker.Presence {
	switch s := s.(type) {
	case *tg.UserStatusOnline:
		return tracker.Presence{State: tracker.PresenceOnline}
	case *tg.UserStatusOffline:
		return tracker.Presence{State: tracker.PresenceOffline, LastSeen: time.Unix(int64(s.WasOnline), 0)}
	default:
		return tracker.Presence{State: tracker.PresenceUnknown}
	}
}
