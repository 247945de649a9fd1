package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/jeff-companion/backend/internal/config"
	"github.com/zhouzirui/jeff-companion/backend/internal/events"
	"github.com/zhouzirui/jeff-companion/backend/internal/handler"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), a)
		},
	}
	cmd.Flags().String("addr", "", "listen address, e.g. :8080")
	cobra.CheckErr(v.BindPFlag("server.addr", cmd.Flags().Lookup("addr")))
	return cmd
}

func serve(ctx context.Context, a *app) error {
	if !a.cfg.AI.Enabled() {
		// sessions will be refused until a key is configured
		log.Warn().Str("provider", a.cfg.AI.Provider).Msg("no API key configured; set JEFF_AI_API_KEY or the provider's key variable")
	}

	pubSub := events.NewPubSub(log.Logger)
	defer func() {
		if err := pubSub.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close event bus")
		}
	}()

	chatSvc := chat.NewService(a.serviceConfig(), a.personas, a.factory, pubSub)

	if path := v.ConfigFileUsed(); path != "" {
		v.OnConfigChange(func(fsnotify.Event) {
			if err := reloadCredential(v, chatSvc); err != nil {
				log.Warn().Err(err).Str("config", path).Msg("credential not reloaded")
				return
			}
			log.Info().Str("config", path).Msg("credential reloaded")
		})
		v.WatchConfig()
	}

	router := handler.NewRouter(handler.Dependencies{
		Personas:       a.personas,
		Chat:           chatSvc,
		Events:         pubSub,
		DefaultPersona: a.cfg.Chat.PersonaID,
	})

	return startServer(ctx, a.cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) error {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", serverCfg.Addr).Msg("jeff backend listening")
	return runServer(ctx, srv)
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
