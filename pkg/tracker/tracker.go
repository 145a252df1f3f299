// Package tracker watches one Telegram account and writes what it does to a
// log chat.
//
// All handlers and the presence poll run on the goroutine that calls Run, so
// the message cache and presence state are never touched concurrently. A
// slow download therefore delays the events queued behind it.
package tracker

import (
	"context"
	"os"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"tracker/pkg/config"
)

// Tracker watches a single target and reports to a single log chat.
type Tracker struct {
	client Client
	cfg    config.TrackerConfig
	logger *zap.Logger
	report Reporter
	now    func() time.Time

	target  Peer
	logChat Peer
	started bool

	cache    *messageCache
	presence presenceState
	queue    *eventQueue
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New creates a Tracker. Call Start before Register and Run.
func New(client Client, cfg config.TrackerConfig, logger *zap.Logger, report Reporter, opts ...Option) *Tracker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 64
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = "downloads"
	}

	t := &Tracker{
		client: client,
		cfg:    cfg,
		logger: logger,
		report: report,
		now:    time.Now,
		cache:  newMessageCache(),
		queue:  newEventQueue(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Target returns the resolved target, valid after Start.
func (t *Tracker) Target() Peer { return t.target }

// LogChat returns the resolved log destination, valid after Start.
func (t *Tracker) LogChat() Peer { return t.logChat }

// Start resolves the target and log chat and announces itself. Any error is
// fatal to the run.
func (t *Tracker) Start(ctx context.Context) error {
	if err := os.MkdirAll(t.cfg.DownloadDir, 0o755); err != nil {
		return errors.Wrap(err, "create download dir")
	}

	dialogs, err := t.client.Dialogs(ctx)
	if err != nil {
		// Direct lookups can still succeed without the dialog list.
		t.logger.Warn("Failed to list dialogs", zap.Error(err))
	}

	target, err := t.ResolveTarget(ctx, t.cfg.TargetUser, dialogs)
	if err != nil {
		t.report.Failure("Error: Could not find target user '%s'", t.cfg.TargetUser)
		return errors.Wrap(err, "resolve target")
	}
	t.target = target
	t.report.Success("Target user found: %s", target.Mention())
	t.report.Info("  User ID: %d", target.ID)

	logChat, err := t.ResolveLogChat(ctx, t.cfg.LogChat, dialogs)
	if err != nil {
		t.report.Failure("Error: Could not access log chat '%s'", t.cfg.LogChat)
		return errors.Wrap(err, "resolve log chat")
	}
	t.logChat = logChat
	t.report.Success("Log destination: %s", logChat.DisplayName())

	t.logger.Info("Tracker started",
		zap.Int64("target_id", target.ID),
		zap.Stringer("log_chat_kind", logChat.Kind),
		zap.Int64("log_chat_id", logChat.ID),
	)
	t.send(ctx, startBanner(target, t.now()))
	t.started = true

	t.report.Info("🔍 Tracker is now active! Monitoring user activity...")
	return nil
}

// Register subscribes every event category. Events from other senders are
// dropped here; the rest are queued and handled by Run in arrival order.
// Deletions carry no sender and are always queued.
func (t *Tracker) Register(sub Subscriber) {
	sub.OnNewMessage(func(ctx context.Context, m Message) error {
		if t.fromTarget(m.SenderID) {
			t.enqueue(func(ctx context.Context) { t.handleNewMessage(ctx, m) })
		}
		return nil
	})
	sub.OnEditMessage(func(ctx context.Context, m Message) error {
		if t.fromTarget(m.SenderID) {
			t.enqueue(func(ctx context.Context) { t.handleEdit(ctx, m) })
		}
		return nil
	})
	sub.OnDeleteMessages(func(ctx context.Context, d Deletion) error {
		t.enqueue(func(ctx context.Context) { t.handleDelete(ctx, d) })
		return nil
	})
	sub.OnUserAction(func(ctx context.Context, a UserAction) error {
		if t.fromTarget(a.UserID) && a.Kind != ActionCancel {
			t.enqueue(func(ctx context.Context) { t.handleAction(ctx, a) })
		}
		return nil
	})
	sub.OnUserStatus(func(ctx context.Context, userID int64, p Presence) error {
		if t.fromTarget(userID) {
			t.enqueue(func(ctx context.Context) { t.handleUserStatus(ctx, userID, p) })
		}
		return nil
	})
}

func (t *Tracker) enqueue(j job) {
	if n := t.queue.push(j); n == t.cfg.EventBuffer {
		t.logger.Warn("Event backlog is growing, handlers are falling behind", zap.Int("queued", n))
	}
}

// Run handles queued events and polls the target's presence until ctx is
// done.
func (t *Tracker) Run(ctx context.Context) error {
	if !t.started {
		return errors.New("tracker not started")
	}

	t.logger.Info("Starting tracker loop", zap.Duration("poll_interval", t.cfg.PollInterval))
	ticker := time.NewTicker(t.cfg.PollInterval)
	defer ticker.Stop()

	t.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Tracker loop stopped",
				zap.Int("cached_messages", t.cache.len()),
				zap.Int("abandoned_events", t.queue.len()),
			)
			return nil
		case <-t.queue.ready:
			for _, j := range t.queue.drain() {
				if ctx.Err() != nil {
					break
				}
				j(ctx)
			}
		case <-ticker.C:
			t.poll(ctx)
		}
	}
}

// Stop announces shutdown in the log chat. In-flight work is not waited for.
func (t *Tracker) Stop(ctx context.Context) {
	if !t.started {
		return
	}
	t.send(ctx, stopBanner(t.now()))
	t.started = false
}

// send writes one entry to the log chat. Failures are reported and dropped.
func (t *Tracker) send(ctx context.Context, text Entry) bool {
	if err := t.client.SendText(ctx, t.logChat, text); err != nil {
		t.logger.Error("Failed to send log entry", zap.Error(err))
		t.report.Failure("Error sending log: %v", err)
		return false
	}
	return true
}
