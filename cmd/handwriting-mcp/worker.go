package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume analysis tasks from the Redis queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		store, err := openStore(ctx, a.cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
			RedisURL:    a.cfg.RedisURL,
			QueueName:   a.cfg.QueueName,
			Concurrency: a.cfg.WorkerConcurrency,
			Handler:     queue.NewHandler(a.analyzer, store, timeout),
		})
		if err != nil {
			return err
		}

		a.logger.Info("Worker starting", "store", storeLabel(a.cfg), "version", Version)
		return consumer.Run(ctx)
	},
}

func init() {
	workerCmd.Flags().Duration("timeout", queue.DefaultProcessingTimeout, "Processing timeout per sample")
}
