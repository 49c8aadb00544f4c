package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docconverter/models"
)

// SofficeConverter converts DOCX to PDF with headless LibreOffice.
type SofficeConverter struct {
	bin    string
	runner commandRunner
}

func NewSofficeConverter(bin string, runner commandRunner) *SofficeConverter {
	return &SofficeConverter{bin: bin, runner: runner}
}

func (s *SofficeConverter) Direction() models.Direction { return models.DocxToPDF }

func (s *SofficeConverter) Convert(ctx context.Context, inputPath, outputPath string) error {
	outDir := filepath.Dir(outputPath)
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// A private profile per run; concurrent soffice processes sharing the
	// default profile block on its lock file.
	profileDir, err := os.MkdirTemp("", "lo-profile-")
	if err != nil {
		return fmt.Errorf("failed to create LibreOffice profile: %w", err)
	}
	defer os.RemoveAll(profileDir)

	profileURL, err := fileURL(profileDir)
	if err != nil {
		return err
	}

	output, err := s.runner.Run(ctx, s.bin,
		"-env:UserInstallation="+profileURL,
		"--headless", "--nologo", "--nofirststartwizard",
		"--convert-to", "pdf",
		"--outdir", outDir,
		inputPath,
	)
	if err != nil {
		return err
	}

	// LibreOffice names its output after the input file.
	produced := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))+".pdf")
	if _, err := os.Stat(produced); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return withToolOutput("LibreOffice did not produce a PDF output", output)
		}
		return fmt.Errorf("failed to stat LibreOffice output: %w", err)
	}

	if produced != outputPath {
		if err := os.Rename(produced, outputPath); err != nil {
			return fmt.Errorf("failed to move LibreOffice output: %w", err)
		}
	}
	return nil
}

func fileURL(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	abs = filepath.ToSlash(abs)
	if !strings.HasPrefix(abs, "/") {
		abs = "/" + abs
	}
	return "file://" + abs, nil
}
