package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/builtin"
	zaplog "github.com/unkn0wn-root/tiercache/log/zap"
)

var (
	errNotFound = errors.New("not found")
	errRejected = errors.New("write rejected by the authoritative layer")
)

type app struct {
	out io.Writer

	configPath string
	namespace  string
	logLevel   string

	cfg   tiercache.Config
	log   *zap.Logger
	cache tiercache.Cache[any]
}

func newRootCmd(e env, out io.Writer) *cobra.Command {
	a := &app{out: out}
	cmd := &cobra.Command{
		Use:               "tierctl",
		Short:             "Inspect and drive a multi-tier cache stack",
		SilenceUsage:      true,
		PersistentPreRunE: a.open,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.Context())
		},
	}
	cmd.SetOut(out)

	pf := cmd.PersistentFlags()
	pf.StringVar(&a.configPath, "config", e.Config, "stack YAML file (env TIERCTL_CONFIG)")
	pf.StringVar(&a.namespace, "namespace", e.Namespace, "override the configured namespace (env TIERCTL_NAMESPACE)")
	pf.StringVar(&a.logLevel, "log-level", e.LogLevel, "debug|info|warn|error (env TIERCTL_LOG_LEVEL)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "get KEY",
			Short: "Read a key through the stack, promoting it on the way",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, ok, err := a.cache.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("%s: %w", args[0], errNotFound)
				}
				return a.print(v)
			},
		},
		&cobra.Command{
			Use:   "mget KEY...",
			Short: "Read several keys; missing keys are left out",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				got, err := a.cache.GetMulti(cmd.Context(), args)
				if perr := a.print(got); perr != nil {
					return perr
				}
				return err
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Write through every layer, deepest first",
			Long:  "VALUE is stored as parsed JSON when it is valid JSON, otherwise as a string.",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := a.cache.Set(cmd.Context(), args[0], parseValue(args[1]))
				if err != nil {
					return err
				}
				if !ok {
					return errRejected
				}
				return a.print(true)
			},
		},
		&cobra.Command{
			Use:   "contains KEY",
			Short: "Report whether any layer holds KEY (miss markers included)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.print(a.cache.Contains(cmd.Context(), args[0]))
			},
		},
		&cobra.Command{
			Use:     "del KEY...",
			Aliases: []string{"delete"},
			Short:   "Delete keys from every layer",
			Args:    cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.print(a.cache.DeleteMulti(cmd.Context(), args))
			},
		},
		&cobra.Command{
			Use:   "flush",
			Short: "Remove every key of the namespace from every layer",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.print(a.cache.Flush(cmd.Context()))
			},
		},
		&cobra.Command{
			Use:   "layers",
			Short: "List the configured stack, fastest first",
			Args:  cobra.NoArgs,
			RunE: func(*cobra.Command, []string) error {
				return a.print(a.describe())
			},
		},
	)
	return cmd
}

func (a *app) open(cmd *cobra.Command, _ []string) error {
	lvl, err := zap.ParseAtomicLevel(a.logLevel)
	if err != nil {
		return err
	}
	zc := zap.NewProductionConfig()
	zc.Level = lvl
	if a.log, err = zc.Build(); err != nil {
		return err
	}

	if a.cfg, err = tiercache.LoadConfig(a.configPath); err != nil {
		return err
	}
	if a.namespace != "" {
		a.cfg.Namespace = a.namespace
	}
	a.cache, err = builtin.New[any](a.cfg, tiercache.Options[any]{Logger: zaplog.New(a.log)})
	if err != nil {
		return err
	}
	a.log.Debug("stack ready",
		zap.String("config", a.configPath),
		zap.String("namespace", a.cache.Namespace()),
		zap.Int("layers", len(a.cfg.Layers)))
	return nil
}

func (a *app) close(ctx context.Context) error {
	var err error
	if a.cache != nil {
		if ctx == nil {
			ctx = context.Background()
		}
		err = a.cache.Close(ctx)
	}
	if a.log != nil {
		_ = a.log.Sync()
	}
	return err
}

type layerInfo struct {
	Level             int    `json:"level"`
	Adapter           string `json:"adapter"`
	Namespace         string `json:"namespace"`
	CacheNotFoundKeys bool   `json:"cache_not_found_keys"`
}

func (a *app) describe() []layerInfo {
	ls := a.cache.Layers()
	out := make([]layerInfo, len(ls))
	for i, l := range ls {
		out[i] = layerInfo{
			Level:             i,
			Adapter:           a.cfg.Layers[i].Name,
			Namespace:         l.Namespace(),
			CacheNotFoundKeys: l.CacheNotFoundKeys(),
		}
	}
	return out
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseValue returns s decoded as JSON when it is valid JSON, otherwise s itself.
func parseValue(s string) any {
	if !json.Valid([]byte(s)) {
		return s
	}
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return s
	}
	return v
}
