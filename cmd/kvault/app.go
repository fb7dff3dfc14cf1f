package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/kvault"
	"github.com/unkn0wn-root/kvault/instance"
	kvzap "github.com/unkn0wn-root/kvault/log/zap"
	"github.com/unkn0wn-root/kvault/sloghooks"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

const (
	metaInstance = "instance"
	metaLogger   = "logger"
)

var errNotFound = cli.Exit("not found", 3)

func App() *cli.App {
	return &cli.App{
		Name:    "kvault",
		Usage:   "namespaced, expiring, optionally encrypted key/value storage",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			getCommand(),
			setCommand(),
			removeCommand(),
			keysCommand(),
			hasCommand(),
			clearCommand(),
			sizeCommand(),
			purgeCommand(),
		},
		Before: setup,
		After:  teardown,
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "YAML config file",
			EnvVars: []string{"KVAULT_CONFIG"},
		},
		&cli.StringFlag{Name: "backend", Aliases: []string{"b"}, Usage: "local, reactive or embedded"},
		&cli.StringFlag{Name: "engine", Usage: "area engine for local/reactive: memory, badger, bigcache, redis"},
		&cli.StringFlag{Name: "prefix", Usage: "key namespace"},
		&cli.StringFlag{Name: "db-dir", Usage: "directory of the embedded database"},
		&cli.StringFlag{Name: "badger-dir", Usage: "directory of the badger area"},
		&cli.StringFlag{Name: "redis-addr", Usage: "redis address for the redis engine"},
		&cli.StringFlag{
			Name:    "encryption-key",
			Usage:   "enable encryption with this key",
			EnvVars: []string{"KVAULT_ENCRYPTION_KEY"},
		},
		&cli.StringFlag{Name: "log-level", Usage: "debug, info, warn, error"},
	}
}

// applyFlags lets explicitly set flags win over file and environment.
func applyFlags(c *cli.Context, cfg *instance.Config) {
	set := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	set("backend", &cfg.Backend)
	set("engine", &cfg.Engine)
	set("prefix", &cfg.Prefix)
	set("db-dir", &cfg.DB.Dir)
	set("badger-dir", &cfg.Badger.Dir)
	set("redis-addr", &cfg.Redis.Addr)
	set("log-level", &cfg.Log.Level)
	if k := c.String("encryption-key"); k != "" {
		cfg.Encryption.Enabled = true
		cfg.Encryption.Key = k
	}
}

func setup(c *cli.Context) error {
	if c.Args().Len() == 0 || c.Args().First() == "help" {
		return nil
	}
	cfg, err := instance.Load(c.String("config"))
	if err != nil {
		return err
	}
	applyFlags(c, &cfg)

	zl, err := newZap(cfg.Log)
	if err != nil {
		return err
	}
	// zap and slog levels share an order: slog = zap*4
	hl := slog.New(slog.NewTextHandler(c.App.ErrWriter, &slog.HandlerOptions{Level: slog.Level(zl.Level() * 4)}))
	hooks := sloghooks.New(hl, sloghooks.Options{ExpiredEvery: 10})
	inst, err := instance.Open(c.Context, cfg, kvzap.New(zl), hooks)
	if err != nil {
		_ = zl.Sync()
		return err
	}
	c.App.Metadata[metaInstance] = inst
	c.App.Metadata[metaLogger] = zl
	return nil
}

func teardown(c *cli.Context) error {
	var err error
	if inst, ok := c.App.Metadata[metaInstance].(*instance.Instance); ok {
		err = inst.Close(c.Context)
	}
	if zl, ok := c.App.Metadata[metaLogger].(*zap.Logger); ok {
		_ = zl.Sync()
	}
	return err
}

func newZap(cfg instance.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	if cfg.Format != "json" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	return zc.Build()
}

func storage(c *cli.Context) (*instance.Instance, error) {
	inst, ok := c.App.Metadata[metaInstance].(*instance.Instance)
	if !ok {
		return nil, errors.New("storage not initialized")
	}
	return inst, nil
}

func keyArg(c *cli.Context) (string, error) {
	if c.NArg() < 1 {
		return "", cli.Exit("missing KEY argument", 2)
	}
	return c.Args().First(), nil
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseValue treats the argument as JSON when it parses, else as a string.
func parseValue(s string) any {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		return v
	}
	return s
}

func getCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "print the value stored under KEY as JSON",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key, err := keyArg(c)
			if err != nil {
				return err
			}
			s, err := storage(c)
			if err != nil {
				return err
			}
			v, ok := kvault.GetAs[any](c.Context, s, key)
			if !ok {
				return errNotFound
			}
			return printJSON(c, v)
		},
	}
}

func setCommand() *cli.Command {
	return &cli.Command{
		Name:      "set",
		Usage:     "store VALUE (JSON, or a plain string) under KEY",
		ArgsUsage: "KEY VALUE",
		Flags: []cli.Flag{
			&cli.DurationFlag{Name: "ttl", Usage: "time to live; overrides the configured default"},
			&cli.BoolFlag{Name: "string", Usage: "store VALUE as a string even if it parses as JSON"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return cli.Exit("usage: set KEY VALUE", 2)
			}
			s, err := storage(c)
			if err != nil {
				return err
			}
			key, raw := c.Args().Get(0), strings.Join(c.Args().Slice()[1:], " ")
			var value any = raw
			if !c.Bool("string") {
				value = parseValue(raw)
			}
			var ok bool
			if c.IsSet("ttl") {
				ok = s.SetWithTTL(c.Context, key, value, c.Duration("ttl"))
			} else {
				ok = s.Set(c.Context, key, value)
			}
			if !ok {
				return cli.Exit("set failed", 1)
			}
			return nil
		},
	}
}

func removeCommand() *cli.Command {
	return &cli.Command{
		Name:      "rm",
		Usage:     "remove KEY",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key, err := keyArg(c)
			if err != nil {
				return err
			}
			s, err := storage(c)
			if err != nil {
				return err
			}
			if !s.Remove(c.Context, key) {
				return cli.Exit("remove failed", 1)
			}
			return nil
		},
	}
}

func keysCommand() *cli.Command {
	return &cli.Command{
		Name:  "keys",
		Usage: "list keys in the namespace",
		Action: func(c *cli.Context) error {
			s, err := storage(c)
			if err != nil {
				return err
			}
			for _, k := range s.Keys(c.Context) {
				fmt.Fprintln(c.App.Writer, k)
			}
			return nil
		},
	}
}

func hasCommand() *cli.Command {
	return &cli.Command{
		Name:      "has",
		Usage:     "print whether KEY holds a live value",
		ArgsUsage: "KEY",
		Action: func(c *cli.Context) error {
			key, err := keyArg(c)
			if err != nil {
				return err
			}
			s, err := storage(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, s.Has(c.Context, key))
			return nil
		},
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear",
		Usage: "remove every key in the namespace",
		Action: func(c *cli.Context) error {
			s, err := storage(c)
			if err != nil {
				return err
			}
			if !s.Clear(c.Context) {
				return cli.Exit("clear failed", 1)
			}
			return nil
		},
	}
}

func sizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "size",
		Usage: "print estimated usage in KiB",
		Action: func(c *cli.Context) error {
			s, err := storage(c)
			if err != nil {
				return err
			}
			return printJSON(c, s.Size(c.Context))
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:  "purge",
		Usage: "delete expired entries now",
		Action: func(c *cli.Context) error {
			s, err := storage(c)
			if err != nil {
				return err
			}
			n, err := s.Purge(c.Context)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "purged %d\n", n)
			return nil
		},
	}
}
