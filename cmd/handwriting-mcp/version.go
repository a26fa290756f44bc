package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ironsheep/handwriting-tools-mcp/internal/ocr"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("handwriting-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		if v := ocr.NewTesseractEngine("").Version(); v != "" {
			fmt.Printf("  Tesseract:  %s\n", v)
		}
	},
}
