package services

import (
	"context"
	"fmt"

	"docconverter/config"
	"docconverter/models"
)

// Converter turns the file at inputPath into outputPath in one direction.
// Engines (LibreOffice, pdf2docx, Gotenberg) implement this interface.
type Converter interface {
	Direction() models.Direction
	Convert(ctx context.Context, inputPath, outputPath string) error
}

// commandRunner is satisfied by *CommandRunner; adapters depend on it so they
// can be tested without the real binaries.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// NewConverters builds the converter for each direction from configuration.
func NewConverters(cfg *config.Config, runner *CommandRunner) (map[models.Direction]Converter, error) {
	var docx Converter
	switch cfg.DocxEngine {
	case config.DocxEngineSoffice:
		docx = NewSofficeConverter(cfg.SofficeBin, runner)
	case config.DocxEngineGotenberg:
		docx = NewGotenbergService(cfg.GotenbergURL, cfg.GotenbergPDFA)
	default:
		return nil, fmt.Errorf("unknown DOCX_ENGINE %q", cfg.DocxEngine)
	}

	return map[models.Direction]Converter{
		models.DocxToPDF: docx,
		models.PDFToDocx: NewPdf2DocxConverter(cfg.Pdf2DocxBin, runner),
	}, nil
}
