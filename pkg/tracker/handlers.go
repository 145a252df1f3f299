package tracker

import (
	"context"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"
)

func (t *Tracker) fromTarget(senderID int64) bool {
	return senderID != 0 && senderID == t.target.ID
}

func (t *Tracker) handleNewMessage(ctx context.Context, m Message) {
	if !t.fromTarget(m.SenderID) {
		return
	}
	at := t.now()
	from := t.target.DisplayName()

	rec := Record{
		SenderID:   m.SenderID,
		Text:       m.Text,
		HasMedia:   m.Media != nil,
		CapturedAt: at,
	}
	if m.Media != nil {
		rec.MediaType = ClassifyMedia(m.Media.Flags)
	}
	t.cache.put(m.Key, rec)

	head := newMessageHeader(from, m.Key.ID, at)
	if m.Text != "" {
		t.send(ctx, textEntry(head, m.Text))
	}
	if m.Media != nil {
		t.forwardMedia(ctx, m, rec.MediaType, head)
	}
}

// forwardMedia downloads the attachment and re-uploads it to the log chat.
// Every failure ends in a note in the log chat, never in an error.
func (t *Tracker) forwardMedia(ctx context.Context, m Message, mediaType string, head Entry) {
	at := t.now()
	log := t.logger.With(zap.Int("message_id", m.Key.ID), zap.String("media_type", mediaType))

	t.send(ctx, mediaProgressEntry(head, mediaType))

	prefix := filepath.Join(t.cfg.DownloadDir, at.Format(fileLayout)+"_"+strconv.FormatInt(t.target.ID, 10))
	path, err := t.client.DownloadMedia(ctx, *m.Media, prefix)
	if err != nil {
		log.Error("Failed to download media", zap.Error(err))
		t.report.Failure("Error downloading media: %v", err)
		t.send(ctx, noteEntry(head, "Error downloading media: "+err.Error()))
		return
	}
	if path == "" {
		log.Warn("Download produced no file")
		t.send(ctx, noteEntry(head, "Failed to download media"))
		return
	}

	caption := mediaCaption(mediaType, t.target.DisplayName(), m.Text, at)
	if err := t.client.SendFile(ctx, t.logChat, path, caption); err != nil {
		log.Error("Failed to send media", zap.String("path", path), zap.Error(err))
		t.report.Failure("Error sending media: %v", err)
		t.send(ctx, noteEntry(head, "Error sending media: "+err.Error()))
		return
	}
	log.Debug("Media forwarded", zap.String("path", path))
	t.report.Success("Downloaded and sent: %s", mediaType)
}

func (t *Tracker) handleEdit(ctx context.Context, m Message) {
	if !t.fromTarget(m.SenderID) {
		return
	}
	at := t.now()
	from := t.target.DisplayName()

	original, ok := t.cache.get(m.Key)
	if !ok {
		t.send(ctx, untrackedEditEntry(from, m.Key.ID, m.Text, at))
		return
	}

	t.send(ctx, editEntry(from, m.Key.ID, original, m.Text, at))
	t.cache.setText(m.Key, m.Text)
	t.report.Success("Detected message edit (ID: %d)", m.Key.ID)
}

// handleDelete logs deletions of cached target messages. Every reported id
// leaves the cache, logged or not.
func (t *Tracker) handleDelete(ctx context.Context, d Deletion) {
	at := t.now()
	from := t.target.DisplayName()

	for _, id := range d.IDs {
		key := MessageKey{ChannelID: d.ChannelID, ID: id}
		original, ok := t.cache.get(key)
		if !ok {
			continue
		}
		if t.fromTarget(original.SenderID) {
			t.send(ctx, deleteEntry(from, id, original, at))
			t.report.Success("Detected message deletion (ID: %d)", id)
		}
		t.cache.remove(key)
	}
}

// handleAction reports every composing action, repeats included.
func (t *Tracker) handleAction(ctx context.Context, a UserAction) {
	if !t.fromTarget(a.UserID) || a.Kind == ActionCancel {
		return
	}
	t.send(ctx, actionEntry(a, t.now()))
}

func (t *Tracker) handleUserStatus(ctx context.Context, userID int64, p Presence) {
	if !t.fromTarget(userID) {
		return
	}
	t.handlePresence(ctx, p)
}

func (t *Tracker) poll(ctx context.Context) {
	p, err := t.client.UserPresence(ctx, t.target)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		t.logger.Warn("Failed to fetch presence", zap.Error(err))
		t.report.Failure("Error monitoring status: %v", err)
		return
	}
	t.handlePresence(ctx, p)
}

// handlePresence notifies transitions into online or offline.
func (t *Tracker) handlePresence(ctx context.Context, p Presence) {
	at := t.now()
	if !t.presence.observe(p, at) {
		return
	}
	t.logger.Debug("Presence changed", zap.Stringer("state", p.State))

	switch p.State {
	case PresenceOnline:
		t.send(ctx, onlineEntry(at))
	case PresenceOffline:
		t.send(ctx, offlineEntry(at, p.LastSeen))
	}
}
