package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"docconverter/config"
	"docconverter/models"
	"docconverter/services"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert one local file",
	Long: `Convert runs a single conversion on local disk with the configured
engines. The direction follows the input extension: .docx becomes PDF,
.pdf becomes DOCX. --direction overrides it for inputs without a usable
extension.`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringP("output", "o", "", "output path (default: input path with the new extension)")
	convertCmd.Flags().StringP("direction", "d", "", "docx2pdf or pdf2docx (default: from the input extension)")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	dir, err := inputDirection(cmd, input)
	if err != nil {
		return err
	}
	if _, err := os.Stat(input); err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + dir.OutputExt()
	}
	if output == input {
		return fmt.Errorf("output %q would overwrite the input", output)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return err
	}

	cfg := config.Load()
	converters, err := services.NewConverters(cfg, services.NewCommandRunner())
	if err != nil {
		return err
	}
	gateway := services.NewGateway(cfg, converters, nil, nil, nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gateway.ConvertFile(ctx, dir, input, output); err != nil {
		return err
	}

	if dir == models.DocxToPDF {
		if pages, err := services.PageCount(output); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d pages)\n", output, pages)
			return nil
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), output)
	return nil
}

// inputDirection honours --direction and falls back to the input extension.
func inputDirection(cmd *cobra.Command, input string) (models.Direction, error) {
	if name, _ := cmd.Flags().GetString("direction"); name != "" {
		dir, ok := models.ParseDirection(name)
		if !ok {
			return "", fmt.Errorf("unknown direction %q: expected %s or %s", name, models.DocxToPDF, models.PDFToDocx)
		}
		return dir, nil
	}

	dir, ok := models.DirectionForFile(input)
	if !ok {
		return "", fmt.Errorf("unsupported input %q: expected a .docx or .pdf file", input)
	}
	return dir, nil
}
