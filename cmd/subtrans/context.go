package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"subtrans/internal/config"
	"subtrans/internal/logging"
)

// errReported marks failures whose details were already printed.
var errReported = errors.New("run failed")

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(c.configFlagValue())
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				if !logging.ValidLevel(level) {
					c.configErr = fmt.Errorf("invalid --log-level %q", level)
					return
				}
				cfg.Logging.Level = level
			}
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

func (c *commandContext) configFlagValue() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// ensureLogger builds the CLI logger once the config is known.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.ForCLI(cfg.Logging.Level, cfg.Logging.Format, cfg.Paths.LogDir)
	})
	return c.logger, c.loggerErr
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// overrideString replaces *dst when the flag was set explicitly.
func overrideString(cmd *cobra.Command, name string, dst *string, value string) {
	if cmd.Flags().Changed(name) {
		*dst = strings.TrimSpace(value)
	}
}

// overrideInt replaces *dst when the flag was set explicitly.
func overrideInt(cmd *cobra.Command, name string, dst *int, value int) {
	if cmd.Flags().Changed(name) {
		*dst = value
	}
}

// overridePath expands and replaces *dst when the flag was set explicitly.
func overridePath(cmd *cobra.Command, name string, dst *string, value string) error {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	expanded, err := config.ExpandPath(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("resolve --%s: %w", name, err)
	}
	*dst = expanded
	return nil
}
