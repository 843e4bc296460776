package bootstrap

import (
	"context"
	"time"

	"go-voicemaster/internal/database"
	"go-voicemaster/internal/logging"
)

const drainTimeout = 10 * time.Second

func Shutdown(c *Components) error {
	logging.Info("Starting graceful shutdown...")

	if c.Scheduler != nil {
		logging.Info("Stopping scheduler...")
		<-c.Scheduler.Stop().Done()
	}

	if c.Events != nil {
		logging.Info("Draining voice events...")
		ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		c.Events.Drain(ctx)
		cancel()
	}

	if c.Watchdog != nil {
		logging.Info("Stopping watchdog...")
		c.Watchdog.Stop()
	}

	if c.MetricsServer != nil {
		logging.Info("Stopping metrics server...")
		if err := c.MetricsServer.Shutdown(); err != nil {
			logging.Warn("%v", err)
		}
	}

	if c.Session != nil {
		logging.Info("Closing Discord session...")
		if err := c.Session.Close(); err != nil {
			logging.Warn("Failed to close Discord session: %v", err)
		}
	}

	logging.Info("Closing database...")
	if err := database.Close(); err != nil {
		logging.Warn("Failed to close database: %v", err)
	}

	logging.Info("Graceful shutdown complete")
	if logging.GlobalLogger != nil {
		return logging.GlobalLogger.Close()
	}
	return nil
}
