package main

import (
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zhouzirui/jeff-companion/backend/internal/handler/console"
	"github.com/zhouzirui/jeff-companion/backend/internal/service/chat"
)

func newChatCmd() *cobra.Command {
	var transcript string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with Jeff in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(v)
			if err != nil {
				return err
			}

			p, ok := a.personas.FindByID(a.cfg.Chat.PersonaID)
			if !ok {
				return errors.Wrapf(chat.ErrPersonaNotFound, "persona %q", a.cfg.Chat.PersonaID)
			}

			cfg := a.serviceConfig()
			manager, err := chat.NewManager(chat.ManagerConfig{
				APIKey:            cfg.APIKey,
				Model:             cfg.Model,
				Timeout:           cfg.Timeout,
				RollbackOnFailure: cfg.RollbackOnFailure,
				Persona:           &p,
				Factory:           a.factory,
			})
			if err != nil {
				return errors.Wrap(err, "set JEFF_AI_API_KEY (or GOOGLE_API_KEY for gemini) before chatting")
			}

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			log.Debug().Bool("interactive", interactive).Str("provider", a.cfg.AI.Provider).Msg("starting console")

			c := console.New(manager, p, os.Stdin, cmd.OutOrStdout(), console.Options{
				Prompt:         interactive,
				TranscriptPath: transcript,
			})
			return c.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&transcript, "transcript", "", "save the conversation to this YAML file on exit")
	return cmd
}
