package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"docconverter/models"
)

// Pdf2DocxConverter rebuilds a DOCX from a PDF's layout with the pdf2docx tool,
// always over the full page range.
type Pdf2DocxConverter struct {
	bin    string
	runner commandRunner
}

func NewPdf2DocxConverter(bin string, runner commandRunner) *Pdf2DocxConverter {
	return &Pdf2DocxConverter{bin: bin, runner: runner}
}

func (p *Pdf2DocxConverter) Direction() models.Direction { return models.PDFToDocx }

func (p *Pdf2DocxConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	output, err := p.runner.Run(ctx, p.bin, "convert", inputPath, outputPath, "--start=0")
	if err != nil {
		return err
	}

	// pdf2docx logs conversion exceptions and still exits 0.
	if _, err := os.Stat(outputPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return withToolOutput("DOCX not created", output)
		}
		return fmt.Errorf("failed to stat pdf2docx output: %w", err)
	}
	return nil
}
