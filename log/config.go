package log

import (
	"context"
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
	"moul.io/zapfilter"
)

// Config describes logging via a YAML file. DefaultLevel applies to every
// logger; Filters holds zapfilter rules that override it per logger name,
// for example "debug:lap.*,ingest". Changes to the file take effect on a
// running process when the command watches it (see WatchConfig).
type Config struct {
	DefaultLevel string `yaml:"defaultLevel"`
	Filters      string `yaml:"filters"`
}

// LoadConfig reads a logging config file.
func LoadConfig(fileName string) (*Config, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		return nil, err
	}
	cfg := &Config{DefaultLevel: "info"}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = "info"
	}
	return cfg, nil
}

// rules combines DefaultLevel and Filters into one zapfilter rule set.
// Rules are OR-ed by zapfilter, so the default level acts as the floor
// for all loggers and the filters add per-logger exceptions on top.
func (c *Config) rules() string {
	base := fmt.Sprintf("%s+:*", c.DefaultLevel)
	if c.Filters == "" {
		return base
	}
	return fmt.Sprintf("%s %s", c.Filters, base)
}

// ApplyConfig installs the level and filter rules of cfg on a running
// logger and everything derived from it.
func (l *Logger) ApplyConfig(cfg *Config) error {
	level, err := ParseLevel(cfg.DefaultLevel)
	if err != nil {
		return fmt.Errorf("invalid default level %q: %w", cfg.DefaultLevel, err)
	}
	fn, err := zapfilter.ParseRules(cfg.rules())
	if err != nil {
		return fmt.Errorf("invalid filter rules: %w", err)
	}
	l.level.SetLevel(level)
	l.rules.Store(&fn)
	return nil
}

// WatchConfig reloads fileName into l whenever it changes. It blocks
// until ctx is done and is meant to run as a goroutine; a broken watcher
// only costs the reload feature, so errors are logged and swallowed.
func (l *Logger) WatchConfig(ctx context.Context, fileName string) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		l.Error("could not create fsnotify watcher", ErrorField(err))
		return
	}
	defer watcher.Close()
	if err := watcher.Add(fileName); err != nil {
		l.Error("could not watch log config",
			String("file", fileName), ErrorField(err))
		return
	}
	for {
		select {
		case <-ctx.Done():
			l.Debug("context done, stopping log config reload")
			return
		case event, ok := <-watcher.Events:
			if !ok {
				l.Debug("watcher events channel closed, stopping log config reload")
				return
			}
			if event.Op&fsnotify.Write == fsnotify.Write ||
				event.Op&fsnotify.Create == fsnotify.Create ||
				event.Op&fsnotify.Chmod == fsnotify.Chmod {

				l.Info("log config changed, reloading",
					String("file", event.Name))
				cfg, err := LoadConfig(fileName)
				if err != nil {
					l.Error("could not reload log config", ErrorField(err))
					continue
				}
				if err := l.ApplyConfig(cfg); err != nil {
					l.Error("could not apply log config", ErrorField(err))
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				l.Debug("watcher errors channel closed, stopping log config reload")
				return
			}
			l.Error("watcher error", ErrorField(err))
		}
	}
}
