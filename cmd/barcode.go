package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"xenith/internal/barcode"
)

func getBarcodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "barcode <id> <patron|copy>",
		Short: "Renders a Code 128 barcode image",
		Long: `Renders the barcode for a patron or copy identifier under BARCODE_DIR and
prints the path of the written PNG. An existing image is overwritten.`,
		Args: cobra.ExactArgs(2),
		RunE: runBarcode,
	}
}

func runBarcode(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", args[0], err)
	}

	category, err := barcode.ParseCategory(args[1])
	if err != nil {
		return err
	}

	path, err := barcode.NewGenerator(cfg.Barcode.Dir).Generate(id, category)
	if err != nil {
		logger.Error("barcode generation failed", "id", id, "category", args[1], "error", err)
		return err
	}
	logger.Debug("barcode written", "path", path)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
