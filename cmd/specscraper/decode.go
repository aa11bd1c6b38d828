package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/product-spec-scraper/internal/decode"
)

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <file>",
		Short: "Decode the plain-all-data payload embedded in a saved page source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, logger, err := resolve(cmd.Context())
			if err != nil {
				return err
			}
			res, err := decode.File(args[0])
			if err != nil {
				return err
			}
			logger.Info("payload decoded", zap.String("file", args[0]), zap.String("identifier", res.Identifier))

			out, err := json.MarshalIndent(struct {
				Identifier     string          `json:"identifier"`
				Specifications json.RawMessage `json:"specifications"`
			}{res.Identifier, res.Specifications}, "", "  ")
			if err != nil {
				return fmt.Errorf("encode output: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}
