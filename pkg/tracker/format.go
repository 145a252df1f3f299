package tracker

import (
	"fmt"
	"strings"
	"time"
)

const (
	timeLayout   = "2006-01-02 15:04:05"
	actionLayout = "2006-01-02 15:04:05.000"
	fileLayout   = "20060102_150405"

	noText = "(No text)"
)

var separator = strings.Repeat("─", 30)

// Span is a run of entry text. Message text relayed from the target always
// travels in plain spans, so it is never interpreted as markup.
type Span struct {
	Text string
	Bold bool
}

// Entry is one message for the log chat.
type Entry []Span

// String renders the entry with bold spans wrapped in "**", the form shown
// on the console.
func (e Entry) String() string {
	var b strings.Builder
	for _, s := range e {
		if s.Bold {
			b.WriteString("**" + s.Text + "**")
		} else {
			b.WriteString(s.Text)
		}
	}
	return b.String()
}

func (e Entry) with(spans ...Span) Entry {
	out := make(Entry, 0, len(e)+len(spans))
	return append(append(out, e...), spans...)
}

func plain(s string) Span { return Span{Text: s} }
func bold(s string) Span  { return Span{Text: s, Bold: true} }

func startBanner(target Peer, at time.Time) Entry {
	return Entry{
		plain("🤖 "), bold("Tracker Started"),
		plain(fmt.Sprintf("\n📱 Monitoring: %s\n🕐 Started at: %s", target.Mention(), at.Format(timeLayout))),
	}
}

func stopBanner(at time.Time) Entry {
	return Entry{plain("🛑 "), bold("Tracker Stopped"), plain("\n🕐 " + at.Format(timeLayout))}
}

// header is the common top of message, edit and deletion entries.
func header(title Entry, from string, id int, at time.Time) Entry {
	return title.with(plain(fmt.Sprintf("\n🕐 %s\n👤 From: %s\n🆔 Message ID: %d\n", at.Format(timeLayout), from, id)))
}

func newMessageHeader(from string, id int, at time.Time) Entry {
	return header(Entry{plain("📨 "), bold("New Message")}, from, id, at).with(plain(separator + "\n"))
}

func textEntry(head Entry, text string) Entry {
	return head.with(plain("💬 "), bold("Text:"), plain("\n"+text))
}

func mediaProgressEntry(head Entry, mediaType string) Entry {
	return head.with(plain("📎 "), bold("Media Type:"), plain(" "+mediaType+"\n⏳ Downloading media..."))
}

func noteEntry(head Entry, note string) Entry {
	return head.with(plain("❌ " + note))
}

func mediaCaption(mediaType, from, text string, at time.Time) Entry {
	c := fmt.Sprintf("📎 %s\n🕐 %s\n👤 From: %s", mediaType, at.Format(timeLayout), from)
	if text != "" {
		c += "\n💬 Caption: " + text
	}
	return Entry{plain(c)}
}

func editEntry(from string, id int, original Record, newText string, at time.Time) Entry {
	e := header(Entry{plain("✏️ "), bold("Message EDITED")}, from, id, at).with(plain(separator + "\n"))

	if original.Text != "" {
		e = e.with(plain("❌ "), bold("Original Text:"), plain("\n"+original.Text+"\n\n"))
	} else {
		e = e.with(plain("❌ "), bold("Original:"), plain(" "+noText+"\n\n"))
	}
	if newText != "" {
		e = e.with(plain("✅ "), bold("New Text:"), plain("\n"+newText))
	} else {
		e = e.with(plain("✅ "), bold("New:"), plain(" "+noText))
	}
	return e
}

func untrackedEditEntry(from string, id int, text string, at time.Time) Entry {
	if text == "" {
		text = noText
	}
	title := Entry{plain("✏️ "), bold("Message EDITED"), plain(" (original not tracked)")}
	return header(title, from, id, at).
		with(plain(separator+"\n✅ "), bold("Current Text:"), plain("\n"+text))
}

func deleteEntry(from string, id int, original Record, at time.Time) Entry {
	e := header(Entry{plain("🗑️ "), bold("Message DELETED")}, from, id, at).
		with(plain("📅 Original Time: " + original.CapturedAt.Format(timeLayout) + "\n" + separator + "\n"))

	if original.Text != "" {
		e = e.with(plain("❌ "), bold("Deleted Text:"), plain("\n"+original.Text))
	}
	if original.HasMedia {
		if original.Text != "" {
			e = e.with(plain("\n\n📎 "), bold("Also had media:"), plain(" "+original.MediaType))
		} else {
			e = e.with(plain("📎 "), bold("Deleted Media:"), plain(" "+original.MediaType))
		}
	}
	return e
}

func onlineEntry(at time.Time) Entry {
	return Entry{plain("🟢 "), bold("User came ONLINE"), plain("\n🕐 " + at.Format(timeLayout))}
}

func offlineEntry(at, lastSeen time.Time) Entry {
	seen := "unknown"
	if !lastSeen.IsZero() {
		seen = lastSeen.Format(timeLayout)
	}
	return Entry{
		plain("🔴 "), bold("User went OFFLINE"),
		plain(fmt.Sprintf("\n🕐 %s\n📝 Last seen: %s", at.Format(timeLayout), seen)),
	}
}

func actionEntry(a UserAction, at time.Time) Entry {
	return describeAction(a).with(plain("\n🕐 " + at.Format(actionLayout)))
}
