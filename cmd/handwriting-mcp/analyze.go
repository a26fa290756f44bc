package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/analysis"
	"github.com/ironsheep/handwriting-tools-mcp/internal/imaging"
	"github.com/ironsheep/handwriting-tools-mcp/internal/scoring"
	"github.com/ironsheep/handwriting-tools-mcp/internal/storage"
)

var errAnalysisFailed = errors.New("analysis failed")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyze one handwriting sample and print the result document",
	Long: `analyze runs the full pipeline on one image. With --save the result is
stored in the subject's history; saving is refused when the subject's last
successful analysis is less than 20 days old.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		save, _ := cmd.Flags().GetBool("save")
		detail, _ := cmd.Flags().GetBool("detail")
		if save && subject == "" {
			return fmt.Errorf("--save requires --subject")
		}

		raw, err := imaging.ReadRaw(args[0])
		if err != nil {
			return err
		}
		if _, err := imaging.ValidateUpload(raw.Data); err != nil {
			return err
		}

		ctx := cmd.Context()
		a, err := newApp(ctx, cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var store storage.Store
		if save {
			store, err = openStore(ctx, a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := storage.CheckInterval(ctx, store, subject, time.Now()); err != nil {
				return err
			}
		}

		var (
			res   *scoring.Result
			trace *analysis.Trace
		)
		trace, err = a.analyzer.Inspect(ctx, raw)
		if err == nil {
			res = &trace.Result
		}

		out := map[string]interface{}{}
		doc := analysis.Document(res, err)
		if detail && trace != nil {
			out["trace"] = trace
		}
		out["result"] = doc
		if res != nil {
			out["confidence"] = scoring.Confidence(res.Relapse, res.Recovery)
		}

		if save {
			rec := storage.NewRecord(subject, raw.Filename, res, err)
			if serr := store.Save(ctx, rec); serr != nil {
				return serr
			}
			out["record_id"] = rec.ID.String()
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if eerr := enc.Encode(out); eerr != nil {
			return eerr
		}
		if doc.Failed() {
			return errAnalysisFailed
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().String("subject", "", "Subject the sample belongs to")
	analyzeCmd.Flags().Bool("save", false, "Store the result in the subject's history")
	analyzeCmd.Flags().Bool("detail", false, "Include the transcription, letter boxes and classifier probabilities")
}
