package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"docconverter/config"
	"docconverter/worker"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume storage-triggered conversions from the Redis queue",
	Long: `Worker pops jobs queued by POST /jobs/{name}, downloads <name>.docx from
the upload bucket, converts it and uploads <name>.pdf to the output bucket.
Failed jobs are retried with backoff and end up in the failed list.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	log.Println("Starting conversion workers...")

	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.requireQueue(); err != nil {
		return err
	}

	pool := worker.NewPool(cfg, a.queue, a.gateway)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		pool.Run(ctx)
	}()

	log.Printf("Listening on Redis queue: %s", cfg.PendingQueue)
	log.Println("Service is ready to process conversions")

	<-ctx.Done()
	log.Println("Shutdown signal received, stopping workers...")
	waitWithTimeout(&wg, shutdownTimeout)
	log.Println("Conversion workers stopped")
	return nil
}
