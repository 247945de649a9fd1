package main

import (
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/ai"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
)

// v carries configuration for the running command: environment, optional
// config file and bound flags.
var v = config.NewViper()

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "jeff",
		Short:         "Jeff is a supportive AI companion you can chat with",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initialize()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "path to a YAML config file")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (json or text)")
	flags.String("log-file", "", "also write logs to this file, rotated")
	flags.Bool("with-caller", false, "include the caller in log lines")
	flags.String("provider", "", "model provider (gemini, ark, openai)")
	flags.String("model", "", "model name or endpoint id")
	flags.String("timeout", "", "request timeout, e.g. 30s or 30")
	flags.Bool("rollback-on-failure", false, "remove the user turn when a send fails")

	cobra.CheckErr(v.BindPFlag("log.level", flags.Lookup("log-level")))
	cobra.CheckErr(v.BindPFlag("log.format", flags.Lookup("log-format")))
	cobra.CheckErr(v.BindPFlag("log.file", flags.Lookup("log-file")))
	cobra.CheckErr(v.BindPFlag("log.with_caller", flags.Lookup("with-caller")))
	cobra.CheckErr(v.BindPFlag("ai.provider", flags.Lookup("provider")))
	cobra.CheckErr(v.BindPFlag("ai.model", flags.Lookup("model")))
	cobra.CheckErr(v.BindPFlag("ai.timeout", flags.Lookup("timeout")))
	cobra.CheckErr(v.BindPFlag("chat.rollback_on_failure", flags.Lookup("rollback-on-failure")))
	cobra.CheckErr(v.BindPFlag("config", flags.Lookup("config")))

	rootCmd.AddCommand(newServeCmd(), newChatCmd(), newHistoryCmd())
	return rootCmd
}

func initialize() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "load .env")
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "read config %s", path)
		}
	}

	if err := initLogger(logConfig{
		Level:      v.GetString("log.level"),
		Format:     v.GetString("log.format"),
		File:       v.GetString("log.file"),
		WithCaller: v.GetBool("log.with_caller"),
	}); err != nil {
		return err
	}

	log.Debug().Str("config", v.ConfigFileUsed()).Msg("configuration loaded")
	return nil
}

type logConfig struct {
	Level      string
	Format     string
	File       string
	WithCaller bool
}

func initLogger(cfg logConfig) error {
	var out io.Writer = os.Stderr
	if cfg.Format == "text" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	if cfg.File != "" {
		out = io.MultiWriter(out, zerolog.ConsoleWriter{
			NoColor: true,
			Out: &lumberjack.Logger{
				Filename:   cfg.File,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			},
		})
	}

	logger := zerolog.New(out).With().Timestamp()
	if cfg.WithCaller {
		logger = logger.Caller()
	}
	log.Logger = logger.Logger()

	level := zerolog.InfoLevel
	if cfg.Level != "" {
		parsed, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = parsed
	}
	zerolog.SetGlobalLevel(level)
	return nil
}

// app is what every command needs to talk to the assistant.
type app struct {
	cfg      *config.Config
	personas *persona.MemoryStore
	factory  ai.Factory
}

func loadApp(v *viper.Viper) (*app, error) {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load configuration")
	}

	factory, err := ai.NewFactory(cfg.AI)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:      cfg,
		personas: persona.NewMemoryStore(persona.Seed()),
		factory:  factory,
	}, nil
}

func (a *app) serviceConfig() chat.ServiceConfig {
	return chat.ServiceConfig{
		APIKey:            a.cfg.AI.Credential(),
		Model:             a.cfg.AI.Model,
		Timeout:           a.cfg.AI.Timeout,
		RollbackOnFailure: a.cfg.Chat.RollbackOnFailure,
	}
}

// reloadCredential rereads the configuration and hands its credential to
// every session. Provider and model stay as they were at startup.
func reloadCredential(v *viper.Viper, svc *chat.Service) error {
	cfg, err := config.LoadFrom(v)
	if err != nil {
		return errors.Wrap(err, "failed to reload configuration")
	}
	if !cfg.AI.Enabled() {
		return errors.New("reloaded configuration has no API key")
	}
	return svc.Rekey(cfg.AI.Credential())
}
