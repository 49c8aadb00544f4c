package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"docconverter/config"
	"docconverter/handler"
	"docconverter/worker"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP conversion service",
	Long: `Serve exposes the upload page, POST /docx2pdf, POST /pdf2docx and the
storage trigger POST /{name}. With --with-workers it also consumes the
Redis trigger queue in the same process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Bool("with-workers", false, "run trigger queue workers in the same process (needs REDIS_ADDR)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log.Println("Starting document conversion service...")

	withWorkers, _ := cmd.Flags().GetBool("with-workers")
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if withWorkers {
		if err := a.requireQueue(); err != nil {
			return err
		}
	}

	var jobQueue handler.JobQueue
	if a.queue != nil {
		jobQueue = a.queue
	}
	router := handler.NewRouter(
		cfg,
		handler.NewConversionHandler(a.gateway, cfg.MaxFileSize),
		handler.NewJobHandler(jobQueue, cfg.MaxRetries, cfg.ConversionTimeout),
	)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var wg sync.WaitGroup
	if withWorkers {
		pool := worker.NewPool(cfg, a.queue, a.gateway)
		wg.Add(1)
		go func() {
			defer wg.Done()
			pool.Run(ctx)
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("Listening on :%s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		log.Println("Shutdown signal received, stopping server...")
	case err := <-serveErr:
		if err != nil {
			stop()
			wg.Wait()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	stop()
	waitWithTimeout(&wg, shutdownTimeout)
	log.Println("Conversion service stopped")
	return nil
}

// waitWithTimeout waits for wg but gives up after d.
func waitWithTimeout(wg *sync.WaitGroup, d time.Duration) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Println("All workers stopped gracefully")
	case <-time.After(d):
		log.Println("Shutdown timeout, forcing exit")
	}
}
