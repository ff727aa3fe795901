package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"reawwise/internal/config"
	"reawwise/internal/daemon"
	"reawwise/internal/ipc"
	"reawwise/internal/logging"
)

const connectTimeout = 10 * time.Second

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

// newLogger returns the process logger. Setup failures fall back to a
// silent logger so a broken log directory never blocks a command.
func (c *commandContext) newLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

// dialWatch connects to a running `reawwise watch`. It reports false when
// no watch is listening, in which case callers run their own session.
func (c *commandContext) dialWatch() (*ipc.Client, bool) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, false
	}
	socket := cfg.SocketPath()
	if _, err := os.Stat(socket); err != nil {
		return nil, false
	}
	client, err := ipc.Dial(socket)
	if err != nil {
		return nil, false
	}
	return client, true
}

// withDaemon starts a daemon for the duration of fn. When connected is set,
// fn only runs once the authoring tool answers.
func (c *commandContext) withDaemon(cmd *cobra.Command, opts daemon.Options, connected bool, fn func(context.Context, *daemon.Daemon) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	d, err := daemon.New(cfg, c.newLogger(), opts)
	if err != nil {
		return err
	}
	defer d.Close()

	ctx := commandCtx(cmd)
	if err := d.Start(ctx); err != nil {
		return err
	}
	if connected {
		waitCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		_, err := d.WaitConnected(waitCtx)
		cancel()
		if err != nil {
			return fmt.Errorf("connect to Wwise: %w", err)
		}
	}
	return fn(ctx, d)
}

func commandCtx(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
