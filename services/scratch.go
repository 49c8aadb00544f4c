package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"docconverter/models"

	"github.com/google/uuid"
)

// Scratch hands out per-job directories under the inputs and outputs roots.
type Scratch struct {
	inputDir  string
	outputDir string
}

func NewScratch(inputDir, outputDir string) (*Scratch, error) {
	for _, dir := range []string{inputDir, outputDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create scratch directory %s: %w", dir, err)
		}
	}
	return &Scratch{inputDir: inputDir, outputDir: outputDir}, nil
}

// NewJob allocates a fresh identifier and the two job directories. Files are
// named after the identifier: inputs/<id>/<id>.docx, outputs/<id>/<id>.pdf.
func (s *Scratch) NewJob(direction models.Direction, source string) (*models.ConversionJob, error) {
	id := newJobID()

	inDir := filepath.Join(s.inputDir, id)
	outDir := filepath.Join(s.outputDir, id)
	if err := os.Mkdir(inDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create job input directory: %w", err)
	}
	if err := os.Mkdir(outDir, 0755); err != nil {
		os.RemoveAll(inDir)
		return nil, fmt.Errorf("failed to create job output directory: %w", err)
	}

	return &models.ConversionJob{
		ID:         id,
		Direction:  direction,
		Source:     source,
		InputPath:  filepath.Join(inDir, id+direction.InputExt()),
		OutputPath: filepath.Join(outDir, id+direction.OutputExt()),
		CreatedAt:  time.Now(),
	}, nil
}

// Cleanup removes everything a job wrote. Safe to call more than once.
func (s *Scratch) Cleanup(job *models.ConversionJob) error {
	if job == nil || job.ID == "" {
		return nil
	}
	errIn := os.RemoveAll(filepath.Join(s.inputDir, job.ID))
	errOut := os.RemoveAll(filepath.Join(s.outputDir, job.ID))
	if errIn != nil {
		return errIn
	}
	return errOut
}

// Sweep removes job directories older than maxAge, left behind by a crash.
func (s *Scratch) Sweep(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, root := range []string{s.inputDir, s.outputDir} {
		entries, err := os.ReadDir(root)
		if err != nil {
			log.Printf("[Scratch] Failed to read %s: %v", root, err)
			continue
		}
		for _, e := range entries {
			info, err := e.Info()
			if err != nil || info.ModTime().After(cutoff) {
				continue
			}
			if err := os.RemoveAll(filepath.Join(root, e.Name())); err != nil {
				log.Printf("[Scratch] Failed to remove %s: %v", e.Name(), err)
				continue
			}
			removed++
		}
	}
	return removed
}

func newJobID() string {
	id := uuid.New()
	return fmt.Sprintf("%x", id[:])
}
