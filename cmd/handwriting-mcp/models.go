package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/classifier"
	"github.com/ironsheep/handwriting-tools-mcp/internal/config"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage threshold files and classifier weights",
}

var modelsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write default thresholds and neutral classifier weights",
	Long: `init writes pressure_model.json and spacing_model.json with the default
thresholds, and one zero-weight softmax model per classifier whose bias selects
the feature's default label. Existing files are kept unless --force is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			cfg, err := readConfig(cmd)
			if err != nil {
				return err
			}
			dir = cfg.ModelsPath
		}

		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := config.WriteDefaultThresholds(dir, force); err != nil {
			return err
		}

		written := 0
		for _, spec := range classifier.Specs {
			if _, err := classifier.LoadSoftmax(dir, spec); err == nil && !force {
				continue
			}
			if err := classifier.SaveSoftmax(dir, classifier.NeutralModel(spec)); err != nil {
				return err
			}
			written++
		}

		if _, err := config.LoadThresholds(dir); err != nil {
			return err
		}
		fmt.Printf("Models in %s ready (%d classifier files written)\n", dir, written)
		return nil
	},
}

func init() {
	modelsInitCmd.Flags().Bool("force", false, "Overwrite existing files")
	modelsInitCmd.Flags().String("dir", "", "Target directory (defaults to MODELS_PATH)")
	modelsCmd.AddCommand(modelsInitCmd)
}
