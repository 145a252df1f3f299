package telegram

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-faster/errors"
	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message"
	"github.com/gotd/td/telegram/updates"
	updhook "github.com/gotd/td/telegram/updates/hook"
	"github.com/gotd/td/telegram/uploader"
	"github.com/gotd/td/tg"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"tracker/pkg/config"
)

// Client encapsulates the Telegram client.
type Client struct {
	*telegram.Client
	Sender        *message.Sender
	AuthCode      chan string   // Channel to receive authentication code
	AuthCompleted chan struct{} // Closed once the session is authorized

	cfg        config.TelegramConfig
	logger     *zap.Logger
	gaps       *updates.Manager
	uploader   *uploader.Uploader
	downloader *downloader.Downloader

	authorized atomic.Bool
	selfID     atomic.Int64
	authOnce   sync.Once

	peers *peerTable
	subs  subscriptions
}

// NewClient creates a Telegram client with update gap recovery and the
// tracker's event subscriptions wired to its dispatcher.
func NewClient(cfg config.TelegramConfig, logger *zap.Logger) *Client {
	dispatcher := tg.NewUpdateDispatcher()
	gaps := updates.New(updates.Config{
		Handler: dispatcher,
		Logger:  logger.Named("gaps"),
	})

	client := telegram.NewClient(cfg.APIID, cfg.APIHash, telegram.Options{
		Logger:         logger.Named("td"),
		SessionStorage: &session.FileStorage{Path: cfg.SessionFile},
		UpdateHandler:  gaps,
		Middlewares: []telegram.Middleware{
			updhook.UpdateHook(gaps.Handle),
		},
	})

	c := newClient(cfg, logger)
	c.Client = client
	c.Sender = message.NewSender(client.API())
	c.gaps = gaps
	c.uploader = uploader.NewUploader(client.API())
	c.downloader = downloader.NewDownloader()
	c.registerDispatcher(dispatcher)
	return c
}

// newClient builds the parts that do not need a connection.
func newClient(cfg config.TelegramConfig, logger *zap.Logger) *Client {
	return &Client{
		AuthCode:      make(chan string),
		AuthCompleted: make(chan struct{}),
		cfg:           cfg,
		logger:        logger,
		peers:         newPeerTable(),
	}
}

// Run connects, authenticates if the session requires it and calls f while
// updates are being received. The connection closes when f returns.
func (c *Client) Run(ctx context.Context, f func(ctx context.Context) error) error {
	return c.Client.Run(ctx, func(ctx context.Context) error {
		if err := c.auth(ctx); err != nil {
			return errors.Wrap(err, "authentication failed")
		}

		self, err := c.Client.Self(ctx)
		if err != nil {
			return errors.Wrap(err, "get self")
		}
		c.selfID.Store(self.ID)
		c.peers.rememberUser(self)
		c.authorized.Store(true)
		c.authOnce.Do(func() { close(c.AuthCompleted) })
		c.logger.Info("Telegram client started and authenticated", zap.Int64("self_id", self.ID))

		g, gctx := errgroup.WithContext(ctx)
		updCtx, stopUpdates := context.WithCancel(gctx)
		g.Go(func() error {
			err := c.gaps.Run(updCtx, c.API(), self.ID, updates.AuthOptions{
				OnStart: func(ctx context.Context) {
					c.logger.Info("Update stream started")
				},
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			defer stopUpdates()
			return f(gctx)
		})
		return g.Wait()
	})
}

func (c *Client) auth(ctx context.Context) error {
	status, err := c.Client.Auth().Status(ctx)
	if err != nil {
		return errors.Wrap(err, "auth status")
	}
	if status.Authorized {
		c.logger.Debug("Already authorized, session restored")
		return nil
	}
	if c.cfg.Phone == "" {
		return errors.New("session is not authorized and PHONE is not set")
	}

	flow := auth.NewFlow(
		auth.Constant(c.cfg.Phone, c.cfg.Password, auth.CodeAuthenticatorFunc(func(ctx context.Context, sentCode *tg.AuthSentCode) (string, error) {
			c.logger.Info("Waiting for authentication code via API...")
			select {
			case code := <-c.AuthCode:
				return strings.TrimSpace(code), nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		})),
		auth.SendCodeOptions{},
	)

	return c.Client.Auth().IfNecessary(ctx, flow)
}

// SubmitCode hands a login code to a pending authentication.
func (c *Client) SubmitCode(ctx context.Context, code string) error {
	select {
	case c.AuthCode <- code:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Authorized reports whether the session is logged in.
func (c *Client) Authorized() bool {
	return c.authorized.Load()
}
