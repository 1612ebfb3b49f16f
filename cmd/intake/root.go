package main

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/meridianhealth/intake"
	"github.com/meridianhealth/intake/internal/logging"
	"github.com/meridianhealth/intake/pkg/adapters/openai"
	redisadapter "github.com/meridianhealth/intake/pkg/adapters/redis"
	"github.com/meridianhealth/intake/pkg/observability"
	"github.com/meridianhealth/intake/pkg/persistence/middleware"
	"github.com/meridianhealth/intake/pkg/ports"
)

var rootCmd = &cobra.Command{
	Use:   "intake",
	Short: "intake runs guided health-intake conversations",
	Long: `intake drives multi-turn health-intake dialogues over a YAML
conversation graph, with deterministic symptom reasoning and red-flag
escalation. Sessions live in memory by default or in Redis with --redis-addr.`,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringP("graph", "g", "intake.yaml", "Path to the conversation graph document")
	pf.String("log-level", "info", "Log level: debug, info, warn, error")
	pf.String("log-format", "text", "Log format: text or json")

	pf.String("redis-addr", "", "Redis address; empty keeps sessions in memory")
	pf.String("redis-password", "", "Redis password")
	pf.Int("redis-db", 0, "Redis database number")
	pf.Duration("session-ttl", 24*time.Hour, "Session expiry when using Redis")

	pf.String("openai-key", "", "OpenAI API key; defaults to $OPENAI_API_KEY, empty uses canned responses")
	pf.String("model", "", "Chat model to use for response generation")

	pf.String("encryption-key", "", "Hex-encoded 32-byte key; encrypts session context and steps at rest")
	pf.StringSlice("mask-pii", nil, "Context key patterns to mask before persisting (regexp)")
}

func newLogger(cmd *cobra.Command) (*slog.Logger, error) {
	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := logging.ParseLevel(levelName)
	if err != nil {
		return nil, err
	}
	format, _ := cmd.Flags().GetString("log-format")
	return logging.New(level, logging.Format(format)), nil
}

// buildEngine assembles an engine from the persistent flags.
func buildEngine(cmd *cobra.Command, metrics *observability.Metrics) (*intake.Engine, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, err
	}

	opts := []intake.Option{intake.WithLogger(logger)}
	if metrics != nil {
		opts = append(opts, intake.WithLifecycleHooks(metrics.Hooks()))
	}

	store, locker, err := buildStore(cmd, logger)
	if err != nil {
		return nil, err
	}
	if store != nil {
		opts = append(opts, intake.WithStore(store))
	}
	if locker != nil {
		opts = append(opts, intake.WithLocker(locker))
	}

	if gen := buildGenerator(cmd, logger); gen != nil {
		opts = append(opts, intake.WithGenerator(gen))
	}

	graphPath, _ := cmd.Flags().GetString("graph")
	return intake.New(graphPath, opts...)
}

// buildStore wires the session store, the optional persistence middleware,
// and the distributed locker.
func buildStore(cmd *cobra.Command, logger *slog.Logger) (ports.SessionStore, ports.DistributedLocker, error) {
	var store ports.SessionStore
	var locker ports.DistributedLocker

	if addr, _ := cmd.Flags().GetString("redis-addr"); addr != "" {
		password, _ := cmd.Flags().GetString("redis-password")
		db, _ := cmd.Flags().GetInt("redis-db")
		ttl, _ := cmd.Flags().GetDuration("session-ttl")

		client := backend.NewClient(&backend.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		})
		store = redisadapter.NewFromClient(client, redisadapter.WithTTL(ttl))
		locker = redisadapter.NewLocker(client, "intake:lock:")
		logger.Info("using redis session store", "addr", addr, "ttl", ttl)
	}

	var chain []middleware.Middleware
	if patterns, _ := cmd.Flags().GetStringSlice("mask-pii"); len(patterns) > 0 {
		for _, p := range patterns {
			if _, err := regexp.Compile(p); err != nil {
				return nil, nil, fmt.Errorf("invalid --mask-pii pattern %q: %w", p, err)
			}
		}
		chain = append(chain, middleware.NewPIIMiddleware(patterns))
	}
	if keyHex, _ := cmd.Flags().GetString("encryption-key"); keyHex != "" {
		key, err := hex.DecodeString(strings.TrimSpace(keyHex))
		if err != nil || len(key) != 32 {
			return nil, nil, fmt.Errorf("--encryption-key must be 64 hex characters (32 bytes)")
		}
		chain = append(chain, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
			ActiveKey: key,
		}))
	}

	if len(chain) > 0 {
		if store == nil {
			// The default in-memory store is built inside the engine, out of
			// reach of middleware, so persistence options require a real one.
			return nil, nil, fmt.Errorf("--mask-pii and --encryption-key require --redis-addr")
		}
		store = middleware.Chain(store, chain...)
	}
	return store, locker, nil
}

func buildGenerator(cmd *cobra.Command, logger *slog.Logger) ports.Generator {
	apiKey, _ := cmd.Flags().GetString("openai-key")
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		logger.Warn("no OpenAI API key configured, responses use canned text")
		return nil
	}

	opts := []openai.Option{openai.WithLogger(logger)}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		opts = append(opts, openai.WithModel(model))
	}
	return openai.New(apiKey, opts...)
}
