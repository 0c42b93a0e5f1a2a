// Command azureafeed tails one of the hotel real-time feeds and logs every
// event. On the notification feed it first fetches recent notifications over
// REST.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/azurea-hotel/azurea-sdk-go/channel"
	"github.com/azurea-hotel/azurea-sdk-go/config"
	"github.com/azurea-hotel/azurea-sdk-go/events"
	"github.com/azurea-hotel/azurea-sdk-go/feeds"
	"github.com/azurea-hotel/azurea-sdk-go/logx"
	"github.com/azurea-hotel/azurea-sdk-go/rest"
	"github.com/azurea-hotel/azurea-sdk-go/sdkerr"
	"github.com/azurea-hotel/azurea-sdk-go/ws"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// defaultReadyTimeout bounds the wait for the first frame that proves the
// feed is usable.
const defaultReadyTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (environment only when empty)")
	markAllRead := flag.Bool("mark-all-read", false, "mark every notification read after the initial fetch")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "azureafeed: %v\n", err)
		os.Exit(1)
	}

	level, err := logx.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "azureafeed: log_level: %v\n", err)
		os.Exit(1)
	}
	zl := logx.NewConsole(os.Stderr, level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl.Info().
		Str("origin", cfg.Origin).
		Str("feed", cfg.Feed).
		Str("user_id", cfg.UserID).
		Msg("starting azureafeed")

	app := &app{cfg: cfg, log: zl, markAllRead: *markAllRead}
	if err := app.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zl.Error().Err(err).Msg("azureafeed stopped")
		os.Exit(1)
	}
	zl.Info().Msg("bye")
}

type app struct {
	cfg         *config.Config
	log         zerolog.Logger
	markAllRead bool

	// factory overrides socket construction in tests.
	factory      func(url string) ws.Client
	rest         *rest.NotificationService
	readyTimeout time.Duration
}

func (a *app) run(ctx context.Context) error {
	feed := a.newFeed()

	g, ctx := errgroup.WithContext(ctx)
	if a.cfg.Feed == config.FeedNotifications && a.cfg.InitialLimit > 0 {
		g.Go(func() error { return a.bootstrap(ctx) })
	}
	g.Go(func() error { return a.tail(ctx, feed) })
	return g.Wait()
}

func (a *app) newFeed() *channel.Channel {
	opts := []channel.Option{
		channel.WithConfig(a.cfg.ChannelConfig()),
		channel.WithLogger(logx.New(a.log).Named("channel")),
	}
	if a.cfg.AccessToken != "" {
		c := &http.Cookie{Name: rest.AccessTokenCookie, Value: a.cfg.AccessToken}
		opts = append(opts, channel.WithHeader(http.Header{"Cookie": {c.String()}}))
	}
	if a.factory != nil {
		opts = append(opts, channel.WithClientFactory(a.factory))
	}

	if a.cfg.Feed == config.FeedActiveBookings {
		return feeds.NewActiveBookings(a.cfg.Origin, opts...)
	}
	return feeds.NewNotifications(a.cfg.Origin, opts...)
}

func (a *app) notifications() *rest.NotificationService {
	if a.rest == nil {
		a.rest = rest.NewNotificationService(a.cfg.APIBaseURL, a.cfg.AccessToken)
	}
	return a.rest
}

// bootstrap logs the most recent notifications, like the bell does before
// the socket delivers live updates.
func (a *app) bootstrap(ctx context.Context) error {
	svc := a.notifications()
	page, err := svc.List(ctx, a.cfg.InitialLimit, 0)
	if err != nil {
		return fmt.Errorf("fetch notifications: %w", err)
	}

	a.log.Info().
		Int("count", len(page.Notifications)).
		Int("unread", page.UnreadCount).
		Bool("has_more", page.HasMore).
		Msg("notifications fetched")
	for _, n := range page.Notifications {
		a.logNotification(n, "notification")
	}

	if a.markAllRead && page.UnreadCount > 0 {
		if err := svc.MarkAllRead(ctx); err != nil {
			return fmt.Errorf("mark all read: %w", err)
		}
		a.log.Info().Msg("all notifications marked read")
	}
	return nil
}

// tail holds a lease on the feed until ctx ends.
func (a *app) tail(ctx context.Context, feed *channel.Channel) error {
	if a.cfg.Feed == config.FeedActiveBookings {
		return a.tailBookings(ctx, feed)
	}

	auth := feeds.ExpectAuthenticated(feed)
	lease := feed.Mount(a.cfg.UserID, a.handlers())
	defer lease.Release()

	if err := a.await(ctx, auth.Wait); err != nil {
		return fmt.Errorf("authenticate: %w", err)
	}
	a.log.Info().Str("url", feed.URL()).Msg("feed authenticated")
	return a.hold(ctx, feed)
}

// tailBookings follows the admin feed. It has no handshake: the server pushes
// the current bookings as soon as it accepts the socket, so that push marks
// the feed ready. If it does not come in time the snapshot is requested once.
func (a *app) tailBookings(ctx context.Context, feed *channel.Channel) error {
	first := feed.Expect(events.TypeBookingsUpdate)
	lease := feed.Mount(a.cfg.UserID, a.handlers())
	defer lease.Release()

	err := a.await(ctx, waitEvent(first))
	if errors.Is(err, sdkerr.ErrAwaitTimeout) {
		a.log.Warn().Dur("after", a.timeout()).Msg("no bookings pushed, requesting snapshot")
		again := feed.Expect(events.TypeBookingsUpdate)
		if err := feeds.RequestActiveBookings(lease); err != nil {
			a.log.Warn().Err(err).Msg("request bookings snapshot")
		}
		err = a.await(ctx, waitEvent(again))
	}
	if err != nil {
		return fmt.Errorf("wait for bookings: %w", err)
	}
	a.log.Info().Str("url", feed.URL()).Msg("feed ready")
	return a.hold(ctx, feed)
}

// await runs wait under the ready timeout. Shutdown wins over the wait's own
// error.
func (a *app) await(ctx context.Context, wait func(context.Context) error) error {
	wctx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()
	if err := wait(wctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func waitEvent(w *channel.Waiter) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := w.Wait(ctx)
		return err
	}
}

func (a *app) timeout() time.Duration {
	if a.readyTimeout > 0 {
		return a.readyTimeout
	}
	return defaultReadyTimeout
}

func (a *app) hold(ctx context.Context, feed *channel.Channel) error {
	<-ctx.Done()
	st := feed.Stats()
	a.log.Info().
		Uint64("attempts", st.Attempts).
		Uint64("frames", st.Frames).
		Msg("feed closed")
	return ctx.Err()
}

func (a *app) handlers() channel.Handlers {
	if a.cfg.Feed == config.FeedActiveBookings {
		return feeds.BookingHandlers(
			func(n int) { a.log.Info().Int("active", n).Msg("active bookings") },
			func(bs []events.Booking) {
				a.log.Info().Int("count", len(bs)).Msg("bookings snapshot")
				for _, b := range bs {
					a.log.Info().
						Str("id", string(b.ID)).
						Str("status", string(b.Status)).
						Str("property", b.PropertyName()).
						Str("total", b.TotalPrice.StringFixed(2)).
						Msg("booking")
				}
			},
		)
	}

	return feeds.NotificationHandlers(
		func(n int) { a.log.Info().Int("unread", n).Msg("unread count") },
		func(n events.Notification, unread int) {
			a.logNotification(n, "new notification")
			a.log.Info().Int("unread", unread).Msg("unread count")
		},
	)
}

func (a *app) logNotification(n events.Notification, msg string) {
	a.log.Info().
		Str("id", string(n.ID)).
		Str("type", string(n.Type)).
		Bool("read", n.IsRead).
		Time("created_at", n.CreatedAt).
		Str("message", n.Message).
		Msg(msg)
}
