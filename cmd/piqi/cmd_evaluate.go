//
// The PIQI Alliance is pleased to support the open source community by making piqi-go available.
//
// Copyright (C) 2026 PIQI Alliance.  All rights reserved.
//
// piqi-go is licensed under the Apache License Version 2.0.
//
//

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/piqi-framework/piqi-go/evaluation"
	"github.com/piqi-framework/piqi-go/log"
	"github.com/piqi-framework/piqi-go/message"
	refdatalocal "github.com/piqi-framework/piqi-go/refdata/local"
	"github.com/piqi-framework/piqi-go/scorecard"
	"github.com/piqi-framework/piqi-go/scorecard/pdf"
)

var pdfOut string

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <message-file>",
	Short: "Evaluate one message and print its scorecard",
	Long: `Evaluate a single patient message against the active rubric.

The message file holds the JSON envelope: messageId, rootMnemonic and
the message body. The resulting scorecard is printed to stdout as JSON;
--pdf additionally renders it to a file.`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVar(&pdfOut, "pdf", "", "also render the scorecard to this PDF file")
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.Logging.Level)

	index, err := refdatalocal.Load(cfg.RefData.Dir, refdataOptions(cfg)...)
	if err != nil {
		return err
	}

	evalOpts, err := evaluationOptions(cfg)
	if err != nil {
		return err
	}
	eval, err := evaluation.New(index, evalOpts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := eval.Close(); err != nil {
			log.Warnf("close evaluation engine: %v", err)
		}
	}()

	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read message file: %w", err)
	}
	var msg message.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("decode message %s: %w", path, err)
	}

	card, err := eval.Evaluate(context.Background(), &msg)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(card, "", "  ")
	if err != nil {
		return fmt.Errorf("encode scorecard: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))

	if pdfOut != "" {
		if err := writePDF(card, pdfOut); err != nil {
			return err
		}
		log.Infof("scorecard rendered to %s", pdfOut)
	}
	return nil
}

// writePDF renders the scorecard to a PDF file.
func writePDF(card *scorecard.Scorecard, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create pdf file: %w", err)
	}
	if err := pdf.NewRenderer().Render(card, f); err != nil {
		f.Close()
		return fmt.Errorf("render scorecard pdf: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close pdf file: %w", err)
	}
	return nil
}
