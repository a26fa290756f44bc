package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/queue"
	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <image>",
	Short: "Submit a sample to the analysis queue",
	Long: `enqueue checks the subject's history first: a sample is refused when
the subject's last successful analysis is less than 20 days old.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		if subject == "" {
			return fmt.Errorf("--subject is required")
		}

		cfg, err := readConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required to enqueue")
		}

		raw, err := imaging.ReadRaw(args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := storage.CheckInterval(ctx, store, subject, time.Now()); err != nil {
			return err
		}

		producer, err := queue.NewProducer(cfg.RedisURL, cfg.QueueName)
		if err != nil {
			return err
		}
		defer producer.Close()

		id, err := producer.Enqueue(ctx, &queue.AnalyzePayload{
			SubjectID: subject,
			Filename:  raw.Filename,
			Image:     raw.Data,
		})
		if err != nil {
			return err
		}
		fmt.Println(id)
		return nil
	},
}

func init() {
	enqueueCmd.Flags().String("subject", "", "Subject the sample belongs to")
}
