package main

import (
	"github.com/spf13/cobra"

	"github.com/zhouzirui/jeff-companion/backend/internal/handler/console"
	"github.com/zhouzirui/jeff-companion/backend/internal/model/persona"
	"github.com/zhouzirui/jeff-companion/backend/internal/store"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <file>",
		Short: "Print a saved conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := store.LoadTranscript(args[0])
			if err != nil {
				return err
			}

			personas := persona.NewMemoryStore(persona.Seed())
			p, ok := personas.FindByID(doc.PersonaID)
			if !ok {
				p = persona.Persona{ID: doc.PersonaID, Name: "Assistant"}
			}

			console.PrintTranscript(cmd.OutOrStdout(), doc, p)
			return nil
		},
	}
}
