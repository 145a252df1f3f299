package tracker

import (
	"strings"
	"unicode"
)

// mediaTable is checked top to bottom; the first row whose bits are all set
// names the attachment.
var mediaTable = []struct {
	mask  MediaFlags
	label string
}{
	{MediaPhoto, "Photo"},
	{MediaVideo, "Video"},
	{MediaVoice, "Voice Message"},
	{MediaAudio, "Audio"},
	{MediaDocument | MediaAnimated, "GIF"},
	{MediaDocument, "Document"},
	{MediaSticker, "Sticker"},
	{MediaVideoNote, "Video Note"},
}

const unknownMedia = "Unknown Media"

// ClassifyMedia returns the label of the highest priority kind present in f.
func ClassifyMedia(f MediaFlags) string {
	for _, row := range mediaTable {
		if f.Has(row.mask) {
			return row.label
		}
	}
	return unknownMedia
}

type actionLabel struct {
	emoji string
	text  string
}

var actionTable = map[ActionKind]actionLabel{
	ActionTyping:         {"⌨️", "Typing..."},
	ActionRecordVideo:    {"🎥", "Recording video..."},
	ActionUploadVideo:    {"📹", "Uploading video..."},
	ActionRecordVoice:    {"🎤", "Recording voice..."},
	ActionUploadAudio:    {"🔊", "Uploading audio..."},
	ActionUploadPhoto:    {"🖼️", "Uploading photo..."},
	ActionUploadDocument: {"📄", "Uploading document..."},
}

// describeAction renders the emoji and bold description of an action. Kinds
// outside the table are labelled from their type name.
func describeAction(a UserAction) Entry {
	l, ok := actionTable[a.Kind]
	if !ok {
		l = actionLabel{"🔔", genericActionText(a.TypeName)}
	}
	return Entry{plain(l.emoji + " "), bold(l.text)}
}

// genericActionText turns "sendMessageChooseStickerAction" into
// "Choose sticker...".
func genericActionText(typeName string) string {
	name := strings.TrimPrefix(typeName, "sendMessage")
	name = strings.TrimSuffix(name, "Action")
	if name == "" {
		return "Unknown activity..."
	}

	var b strings.Builder
	for i, r := range name {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString("...")
	return b.String()
}
