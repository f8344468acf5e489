package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fabfab/pdfqa/config"
)

func (a *app) newClearCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove stored chunks from the configured index backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.IndexBackend == config.BackendMemory {
				a.logger.Println("memory backend keeps nothing between runs, nothing to clear")
				return nil
			}

			if !confirmed {
				answer, err := promptLine(cmd.InOrStdin(), cmd.OutOrStdout(),
					"This will permanently delete stored chunks from "+a.cfg.IndexBackend+". Continue? [y/N]: ")
				if err != nil {
					return err
				}
				answer = strings.ToLower(strings.TrimSpace(answer))
				if answer != "y" && answer != "yes" {
					a.logger.Println("clear aborted")
					return nil
				}
			}

			return a.clear()
		},
	}
	cmd.Flags().BoolVar(&confirmed, "confirm", false, "skip confirmation prompt")
	return cmd
}

func (a *app) clear() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer store.close(context.Background())

	if err := store.purge(ctx); err != nil {
		return err
	}
	a.logger.Printf("%s index data removed", store.name)
	return nil
}
