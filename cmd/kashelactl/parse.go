package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kashela/internal/parse"
)

func (a *app) parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse",
		Short: "Run the transaction parsers without storing anything",
	}
	cmd.AddCommand(&cobra.Command{
		Use:     "voice <text>",
		Short:   `Parse a phrase such as "expense of 200 for food"`,
		Example: `  kashelactl parse voice "income of 500 for salary"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := parse.NewVoiceParser().Parse(strings.Join(args, " "))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "receipt <file|->",
		Short: "Parse receipt text from a file, or stdin with -",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			parser, err := a.receiptParser()
			if err != nil {
				return err
			}
			rec, err := parser.Parse(text)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rec)
		},
	})
	return cmd
}

func (a *app) receiptParser() (*parse.ReceiptParser, error) {
	path := a.v.GetString("receipt.keywords_file")
	if path == "" {
		return parse.NewReceiptParser(parse.DefaultKeywordTable()), nil
	}
	table, err := parse.LoadKeywordTable(path)
	if err != nil {
		return nil, fmt.Errorf("receipt keywords: %w", err)
	}
	return parse.NewReceiptParser(table), nil
}

func readInput(cmd *cobra.Command, name string) (string, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(io.LimitReader(cmd.InOrStdin(), 1<<20))
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read receipt: %w", err)
	}
	return string(data), nil
}
