package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go-voicemaster/internal/bot"
	"go-voicemaster/internal/commands"
	"go-voicemaster/internal/config"
	"go-voicemaster/internal/database"
	"go-voicemaster/internal/dispatcher"
	"go-voicemaster/internal/logging"
	"go-voicemaster/internal/metrics"
	"go-voicemaster/internal/notifier"
	"go-voicemaster/internal/platform"
	"go-voicemaster/internal/rooms"
	"go-voicemaster/internal/state"
	"go-voicemaster/internal/watchdog"

	"github.com/robfig/cron/v3"
)

const (
	sweepComponent = "reaper_sweep"
	// actionRetention is how long the command journal is kept.
	actionRetention = 30 * 24 * time.Hour
)

type Components struct {
	Config *config.Config

	// Persistence and in-memory state
	DB     *database.Database
	Guilds *config.GuildStore
	Owners *state.OwnerTracker
	Locks  *state.RoomLocks

	// Discord
	Session     *bot.Session
	HTTPPool    *dispatcher.HTTPPool
	RateLimiter *dispatcher.RateLimitMonitor
	Members     *dispatcher.MemberClient
	Platform    *platform.Discord

	// Rooms core and its entry points
	Rooms    *rooms.Service
	Events   *bot.EventHandlers
	Commands *commands.Handler

	// Monitoring and scheduling
	Metrics       *metrics.Registry
	MetricsServer *metrics.Server
	Watchdog      *watchdog.Watchdog
	Scheduler     *cron.Cron
}

func Wire(b *Bootstrap) error {
	logging.Info("Wiring components...")
	cfg := b.Config
	c := b.Components
	c.Config = cfg

	c.Metrics = metrics.InitGlobalRegistry()
	c.Metrics.SetTrackedRooms(c.Owners.Len())

	c.Watchdog = watchdog.NewWatchdog(10 * time.Second)
	threshold, err := sweepThreshold(cfg.Rooms.SweepSchedule)
	if err != nil {
		return err
	}
	c.Watchdog.RegisterComponent(sweepComponent, threshold)
	c.Watchdog.OnUnhealthy = func(name string, silentFor time.Duration) {
		logging.Critical("[WATCHDOG] %s silent for %s, empty rooms may not be cleaned up", name, silentFor.Round(time.Second))
	}

	if cfg.Metrics.Enabled {
		c.MetricsServer = metrics.NewServer(cfg.Metrics.Addr, c.Metrics, c.Watchdog.AllHealthy)
	}

	if err := bot.Initialize(cfg.Bot.Token); err != nil {
		return err
	}
	c.Session = bot.GetSession()

	c.HTTPPool = dispatcher.NewHTTPPool(cfg.Network.HTTPPoolSize, cfg.Rooms.APITimeout)
	c.RateLimiter = dispatcher.NewRateLimitMonitor()
	c.Members = dispatcher.NewMemberClient(c.HTTPPool, c.RateLimiter, cfg.Bot.Token, cfg.Network.APIBaseURL)
	c.Platform = platform.NewDiscord(c.Session.GetDiscord(), c.Members)

	c.Rooms = rooms.NewService(rooms.Deps{
		Platform: c.Platform,
		Configs:  c.Guilds,
		Owners:   c.Owners,
		Locks:    c.Locks,
		Notifier: notifier.NewDMNotifier(c.Session.GetDiscord()),
		Journal:  c.DB,
		Metrics:  c.Metrics,
	}, rooms.Options{
		APITimeout:       cfg.Rooms.APITimeout,
		LockTimeout:      cfg.Rooms.LockTimeout,
		ReapGrace:        cfg.Rooms.ReapGrace,
		SweepConcurrency: cfg.Rooms.SweepConcurrency,
	})

	c.Events = &bot.EventHandlers{
		Rooms:   c.Rooms,
		Owners:  c.Owners,
		Guilds:  c.Guilds,
		Metrics: c.Metrics,
		Timeout: cfg.Rooms.LockTimeout + 4*cfg.Rooms.APITimeout,
	}

	c.Scheduler = cron.New(cron.WithChain(
		cron.Recover(cronLogger{}),
		cron.SkipIfStillRunning(cronLogger{}),
	))
	if _, err := c.Scheduler.AddFunc(cfg.Rooms.SweepSchedule, c.sweep); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", cfg.Rooms.SweepSchedule, err)
	}
	if _, err := c.Scheduler.AddFunc("@daily", c.pruneActions); err != nil {
		return fmt.Errorf("failed to schedule journal pruning: %w", err)
	}

	logging.Info("Component wiring complete")
	return nil
}

func StartAll(c *Components) error {
	logging.Info("Starting components...")

	c.Watchdog.Start()
	logging.Info("Watchdog started")

	if c.MetricsServer != nil {
		c.MetricsServer.Start()
	}

	c.Session.SetupEventHandlers(c.Events)
	if err := c.Session.Connect(); err != nil {
		return err
	}

	handler, err := commands.Initialize(c.Session, commands.Deps{
		Rooms:    c.Rooms,
		Guilds:   c.Guilds,
		Owners:   c.Owners,
		Metrics:  c.Metrics,
		Watchdog: c.Watchdog,
		Prefix:   c.Config.Bot.Prefix,
		GuildID:  c.Config.Bot.CommandGuildID,
	})
	if err != nil {
		return err
	}
	c.Commands = handler

	warmed := c.HTTPPool.Warmup(c.Config.Network.APIBaseURL)
	logging.Info("HTTP pool warmed (%d/%d clients)", warmed, c.HTTPPool.Size())

	// rooms emptied while the bot was offline
	go c.sweep()
	c.Scheduler.Start()
	logging.Info("Reaper sweep scheduled (%s)", c.Config.Rooms.SweepSchedule)

	logging.Info("All components started")
	return nil
}

func (c *Components) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), c.Config.Rooms.LockTimeout+time.Minute)
	defer cancel()

	start := time.Now()
	if err := c.Rooms.Reaper.Sweep(ctx); err != nil {
		logging.Warn("[SWEEP] Incomplete: %v", err)
	}
	c.Watchdog.Heartbeat(sweepComponent)
	c.Metrics.SweepCompleted()
	c.Metrics.SetTrackedRooms(c.Owners.Len())
	logging.Debug("[SWEEP] Done in %s, %d rooms tracked", time.Since(start).Round(time.Millisecond), c.Owners.Len())
}

func (c *Components) pruneActions() {
	n, err := c.DB.PruneActions(time.Now().Add(-actionRetention))
	if err != nil {
		logging.Error("[DATABASE] Failed to prune room actions: %v", err)
		return
	}
	logging.Info("[DATABASE] Pruned %d room actions", n)
}

// sweepThreshold allows three missed sweeps before the watchdog complains.
func sweepThreshold(spec string) (time.Duration, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	first := sched.Next(time.Now())
	interval := sched.Next(first).Sub(first)
	return 3 * interval, nil
}

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logging.Debug("[CRON] %s %v", msg, keysAndValues)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logging.Error("[CRON] %s: %v %v", msg, err, keysAndValues)
}
