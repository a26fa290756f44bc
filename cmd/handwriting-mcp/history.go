package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

var historyCmd = &cobra.Command{
	Use:   "history [subject]",
	Short: "List a subject's stored analyses, newest first",
	Long: `history lists a subject's stored analyses, newest first. With --id it
prints the single record with that ID instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		asJSON, _ := cmd.Flags().GetBool("json")
		idFlag, _ := cmd.Flags().GetString("id")

		var id uuid.UUID
		switch {
		case idFlag != "":
			parsed, err := uuid.Parse(idFlag)
			if err != nil {
				return fmt.Errorf("invalid --id: %w", err)
			}
			id = parsed
		case len(args) == 0:
			return fmt.Errorf("a subject or --id is required")
		}

		cfg, err := readConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		store, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		var records []storage.Record
		if id != uuid.Nil {
			rec, err := store.Get(ctx, id)
			if err != nil {
				return err
			}
			records = []storage.Record{*rec}
		} else {
			records, err = store.History(ctx, args[0], limit)
			if err != nil {
				return err
			}
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if id != uuid.Nil {
				return enc.Encode(records[0])
			}
			return enc.Encode(records)
		}

		if len(records) == 0 {
			fmt.Printf("No analyses for %s\n", args[0])
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREATED\tSUBJECT\tFILE\tPREDICTION\tCONFIDENCE\tRELAPSE\tRECOVERY\tID")
		for _, r := range records {
			prediction := r.Prediction
			confidence := fmt.Sprintf("%.1f%%", r.Confidence)
			if r.Error != "" {
				prediction = "error: " + r.Error
				confidence = "-"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
				r.CreatedAt.Local().Format("2006-01-02 15:04"), r.SubjectID, r.Filename, prediction,
				confidence, r.Relapse, r.Recovery, r.ID)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "Maximum number of records (0 for all)")
	historyCmd.Flags().Bool("json", false, "Print records as JSON")
	historyCmd.Flags().String("id", "", "Print the single record with this ID")
}
