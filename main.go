package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/fabfab/pdfqa/config"
)

type app struct {
	cfg    config.Config
	logger *log.Logger
}

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := newRootCmd(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(logger *log.Logger) *cobra.Command {
	a := &app{logger: logger}

	root := &cobra.Command{
		Use:          "pdfqa",
		Short:        "Ask questions about a PDF",
		Long:         "pdfqa indexes one PDF at a time and answers questions using only the text it contains.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(a.newServeCmd(), a.newAskCmd(), a.newClearCmd())
	return root
}
