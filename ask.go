package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fabfab/pdfqa/ingestion"
	"github.com/fabfab/pdfqa/pipeline"
)

func (a *app) newAskCmd() *cobra.Command {
	var (
		file     string
		question string
	)

	cmd := &cobra.Command{
		Use:   "ask",
		Short: "Index a PDF and answer one question from the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(question) == "" {
				q, err := promptLine(cmd.InOrStdin(), cmd.OutOrStdout(), "Enter your question: ")
				if err != nil {
					return fmt.Errorf("read question: %w", err)
				}
				question = q
			}
			return a.ask(cmd.OutOrStdout(), file, question)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "path to the PDF to index")
	cmd.Flags().StringVarP(&question, "question", "q", "", "question to ask (prompted when empty)")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *app) ask(out io.Writer, path, question string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}

	store, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}
	defer store.close(context.Background())

	coord, err := newCoordinator(a.cfg, store.factory, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := coord.Close(context.Background()); err != nil {
			a.logger.Printf("release index: %v", err)
		}
	}()

	result, err := coord.Ingest(ctx, ingestion.Source{
		Name:   filepath.Base(path),
		Reader: f,
		Size:   info.Size(),
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %s", pipeline.UserMessage(err))
	}
	a.logger.Printf("indexed %d chunks from %d pages", result.ChunkCount, result.PageCount)

	answer, err := coord.Answer(ctx, question)
	if err != nil {
		return fmt.Errorf("answer failed: %s", pipeline.UserMessage(err))
	}

	fmt.Fprintln(out, answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Sources:")
		for i, hit := range answer.Sources {
			fmt.Fprintf(out, "%d. page %d (score %.3f)\n", i+1, hit.Chunk.Page, hit.Score)
		}
	}
	return nil
}

func promptLine(in io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	scanner := bufio.NewScanner(in)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	return "", scanner.Err()
}
