package tracker

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"tracker/pkg/config"
	"tracker/pkg/console"
)

type sentFile struct {
	to      Peer
	path    string
	caption string
}

// fakeClient records everything the tracker sends.
type fakeClient struct {
	mu sync.Mutex

	dialogs    []Peer
	dialogsErr error
	lookup     map[string]Peer

	texts   []string
	entries []Entry
	files   []sentFile
	sendErr error
	// onSend runs on every successful SendText, after the entry is recorded.
	onSend func()

	downloadPath   string
	downloadErr    error
	downloadPrefix string

	presences   []Presence
	presenceErr error

	notify chan struct{}
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		lookup: map[string]Peer{},
		notify: make(chan struct{}, 128),
	}
}

func (f *fakeClient) Dialogs(context.Context) ([]Peer, error) {
	return f.dialogs, f.dialogsErr
}

func (f *fakeClient) LookupPeer(_ context.Context, spec string) (Peer, error) {
	p, ok := f.lookup[spec]
	if !ok {
		return Peer{}, errors.New("no such peer")
	}
	return p, nil
}

func (f *fakeClient) SendText(_ context.Context, _ Peer, text Entry) error {
	f.mu.Lock()
	if f.sendErr != nil {
		f.mu.Unlock()
		return f.sendErr
	}
	f.texts = append(f.texts, text.String())
	f.entries = append(f.entries, text)
	hook := f.onSend
	f.mu.Unlock()

	f.notify <- struct{}{}
	if hook != nil {
		hook()
	}
	return nil
}

func (f *fakeClient) SendFile(_ context.Context, to Peer, path string, caption Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files = append(f.files, sentFile{to: to, path: path, caption: caption.String()})
	return nil
}

func (f *fakeClient) DownloadMedia(_ context.Context, _ Media, prefix string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloadPrefix = prefix
	return f.downloadPath, f.downloadErr
}

func (f *fakeClient) UserPresence(context.Context, Peer) (Presence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presenceErr != nil {
		return Presence{}, f.presenceErr
	}
	if len(f.presences) == 0 {
		return Presence{}, nil
	}
	p := f.presences[0]
	f.presences = f.presences[1:]
	return p, nil
}

func (f *fakeClient) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.texts...)
}

func (f *fakeClient) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = nil
	f.entries = nil
	f.files = nil
}

// fakeSubscriber keeps the registered handlers so tests can fire events.
type fakeSubscriber struct {
	newMessage MessageHandler
	edit       MessageHandler
	deletion   DeletionHandler
	action     ActionHandler
	status     StatusHandler
}

func (s *fakeSubscriber) OnNewMessage(h MessageHandler)      { s.newMessage = h }
func (s *fakeSubscriber) OnEditMessage(h MessageHandler)     { s.edit = h }
func (s *fakeSubscriber) OnDeleteMessages(h DeletionHandler) { s.deletion = h }
func (s *fakeSubscriber) OnUserAction(h ActionHandler)       { s.action = h }
func (s *fakeSubscriber) OnUserStatus(h StatusHandler)       { s.status = h }

var (
	testTarget = Peer{Kind: PeerUser, ID: 777, FirstName: "Alice", Username: "alice"}
	testClock  = time.Date(2024, 3, 9, 14, 5, 7, 123000000, time.UTC)
)

// newStartedTracker returns a tracker that already resolved testTarget and
// logs to Saved Messages, without talking to the fake client.
func newStartedTracker(f *fakeClient, dir string) *Tracker {
	t := New(f, config.TrackerConfig{
		TargetUser:  "alice",
		LogChat:     "me",
		DownloadDir: dir,
	}, zap.NewNop(), console.New(io.Discard), WithClock(func() time.Time { return testClock }))
	t.target = testTarget
	t.logChat = Peer{Kind: PeerSelf}
	t.started = true
	return t
}
