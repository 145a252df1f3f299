package telegram

import (
	"context"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"

	"tracker/pkg/tracker"
)

// convertMedia reports whether a message carries an attachment worth
// forwarding. Link previews and empty media are not attachments.
func convertMedia(m tg.MessageMediaClass) (tracker.Media, bool) {
	switch m.(type) {
	case nil, *tg.MessageMediaEmpty, *tg.MessageMediaWebPage:
		return tracker.Media{}, false
	}
	return tracker.Media{Flags: mediaFlags(m), Source: m}, true
}

// mediaFlags derives the classification flags. Documents that are stickers
// or round videos do not get the document flag and animated or sticker
// documents do not get the video flag, so those kinds keep their own label.
func mediaFlags(m tg.MessageMediaClass) tracker.MediaFlags {
	var f tracker.MediaFlags
	switch m := m.(type) {
	case *tg.MessageMediaPhoto:
		f |= tracker.MediaPhoto
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return f
		}
		for _, attr := range doc.Attributes {
			switch a := attr.(type) {
			case *tg.DocumentAttributeVideo:
				if a.RoundMessage {
					f |= tracker.MediaVideoNote
				} else {
					f |= tracker.MediaVideo
				}
			case *tg.DocumentAttributeAudio:
				if a.Voice {
					f |= tracker.MediaVoice
				} else {
					f |= tracker.MediaAudio
				}
			case *tg.DocumentAttributeAnimated:
				f |= tracker.MediaAnimated
			case *tg.DocumentAttributeSticker:
				f |= tracker.MediaSticker
			}
		}
		if f&(tracker.MediaAnimated|tracker.MediaSticker) != 0 {
			f &^= tracker.MediaVideo
		}
		if f&(tracker.MediaSticker|tracker.MediaVideoNote) == 0 {
			f |= tracker.MediaDocument
		}
	}
	return f
}

// fileLocation returns where the attachment can be downloaded from and the
// file extension to store it with.
func fileLocation(m tg.MessageMediaClass) (tg.InputFileLocationClass, string, bool) {
	switch m := m.(type) {
	case *tg.MessageMediaPhoto:
		photo, ok := m.Photo.(*tg.Photo)
		if !ok {
			return nil, "", false
		}
		thumb, ok := largestPhotoSize(photo.Sizes)
		if !ok {
			return nil, "", false
		}
		return &tg.InputPhotoFileLocation{
			ID:            photo.ID,
			AccessHash:    photo.AccessHash,
			FileReference: photo.FileReference,
			ThumbSize:     thumb,
		}, ".jpg", true
	case *tg.MessageMediaDocument:
		doc, ok := m.Document.(*tg.Document)
		if !ok {
			return nil, "", false
		}
		return &tg.InputDocumentFileLocation{
			ID:            doc.ID,
			AccessHash:    doc.AccessHash,
			FileReference: doc.FileReference,
		}, documentExt(doc), true
	default:
		return nil, "", false
	}
}

// largestPhotoSize picks the size type with the most bytes.
func largestPhotoSize(sizes []tg.PhotoSizeClass) (string, bool) {
	var (
		best     string
		bestSize = -1
	)
	for _, s := range sizes {
		var typ string
		var n int
		switch s := s.(type) {
		case *tg.PhotoSize:
			typ, n = s.Type, s.Size
		case *tg.PhotoSizeProgressive:
			if len(s.Sizes) == 0 {
				continue
			}
			typ, n = s.Type, s.Sizes[len(s.Sizes)-1]
		default:
			continue
		}
		if n > bestSize {
			best, bestSize = typ, n
		}
	}
	return best, bestSize >= 0
}

var mimeExt = map[string]string{
	"image/jpeg":               ".jpg",
	"image/png":                ".png",
	"image/webp":               ".webp",
	"image/gif":                ".gif",
	"video/mp4":                ".mp4",
	"video/webm":               ".webm",
	"video/quicktime":          ".mov",
	"audio/ogg":                ".ogg",
	"audio/mpeg":               ".mp3",
	"audio/mp4":                ".m4a",
	"application/pdf":          ".pdf",
	"application/zip":          ".zip",
	"application/x-tgsticker":  ".tgs",
	"application/octet-stream": ".bin",
}

func documentExt(doc *tg.Document) string {
	for _, attr := range doc.Attributes {
		if a, ok := attr.(*tg.DocumentAttributeFilename); ok {
			if ext := filepath.Ext(a.FileName); ext != "" {
				return ext
			}
		}
	}
	if ext, ok := mimeExt[doc.MimeType]; ok {
		return ext
	}
	if exts, err := mime.ExtensionsByType(doc.MimeType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".bin"
}

// DownloadMedia writes media to pathPrefix plus an extension. Media without
// a downloadable file yields "" and no error.
func (c *Client) DownloadMedia(ctx context.Context, media tracker.Media, pathPrefix string) (string, error) {
	src, ok := media.Source.(tg.MessageMediaClass)
	if !ok {
		return "", nil
	}
	loc, ext, ok := fileLocation(src)
	if !ok {
		c.logger.Debug("Media has no downloadable file", zap.String("type", src.TypeName()))
		return "", nil
	}

	path := pathPrefix + ext
	if _, err := c.downloader.Download(c.API(), loc).ToPath(ctx, path); err != nil {
		_ = os.Remove(path)
		return "", errors.Wrap(err, "download")
	}
	return path, nil
}

// SendText sends a log entry to a chat. Empty entries are skipped.
func (c *Client) SendText(ctx context.Context, to tracker.Peer, text tracker.Entry) error {
	opts := styledText(text)
	if len(opts) == 0 {
		return nil
	}
	if _, err := c.Sender.To(c.peers.input(to)).StyledText(ctx, opts...); err != nil {
		return errors.Wrap(err, "send message")
	}
	return nil
}

// SendFile uploads path and sends it with caption. Images go out as photos,
// everything else as documents.
func (c *Client) SendFile(ctx context.Context, to tracker.Peer, path string, caption tracker.Entry) error {
	file, err := c.uploader.FromPath(ctx, path)
	if err != nil {
		return errors.Wrap(err, "upload")
	}

	opts := styledText(caption)
	var media message.MediaOption
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg", ".png":
		media = message.UploadedPhoto(file, opts...)
	default:
		doc := message.UploadedDocument(file, opts...).Filename(filepath.Base(path))
		if typ := mime.TypeByExtension(filepath.Ext(path)); typ != "" {
			doc = doc.MIME(typ)
		}
		media = doc
	}

	if _, err := c.Sender.To(c.peers.input(to)).Media(ctx, media); err != nil {
		return errors.Wrap(err, "send media")
	}
	return nil
}

// UserPresence fetches the current status of user.
func (c *Client) UserPresence(ctx context.Context, user tracker.Peer) (tracker.Presence, error) {
	users, err := c.API().UsersGetUsers(ctx, []tg.InputUserClass{c.peers.inputUser(user.ID)})
	if err != nil {
		return tracker.Presence{}, errors.Wrap(err, "get user")
	}
	for _, u := range users {
		if u, ok := u.(*tg.User); ok && u.ID == user.ID {
			c.peers.rememberUser(u)
			return convertStatus(u.Status), nil
		}
	}
	return tracker.Presence{}, errors.Errorf("user %d not returned", user.ID)
}
