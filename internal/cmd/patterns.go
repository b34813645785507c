package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-sh/veil/internal/recognizer"
)

var patternsValidateFile string

var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Work with recognizer pattern files",
}

var patternsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a recognizer YAML file",
	Long:  "Validates the file against the recognizer schema and compiles every regex",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "patterns.validate")
		defer span.End()

		data, err := os.ReadFile(patternsValidateFile)
		if err != nil {
			return fmt.Errorf("reading %s: %w", patternsValidateFile, err)
		}

		if err := recognizer.ValidateSchema(data); err != nil {
			log.Error().Err(err).Str("file", patternsValidateFile).Msg("Schema validation failed")
			fmt.Fprintf(os.Stderr, "✗ Validation failed: %s\n", patternsValidateFile)
			return fmt.Errorf("validation failed: %w", err)
		}

		rf, err := recognizer.ParseRecognizerFile(data)
		if err != nil {
			return fmt.Errorf("parsing recognizer file: %w", err)
		}

		// Compiling verifies every regex and validator reference.
		compiled, err := recognizer.CompileRecognizers(rf.Recognizers)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ Pattern compilation failed: %s\n", patternsValidateFile)
			return fmt.Errorf("pattern compilation failed: %w", err)
		}

		fmt.Printf("✓ Recognizer file valid: %s\n", patternsValidateFile)
		fmt.Printf("  Recognizers: %d defined, %d enabled\n", len(rf.Recognizers), len(compiled))
		return nil
	},
}

func init() {
	patternsValidateCmd.Flags().StringVarP(&patternsValidateFile, "file", "f", "", "recognizer YAML file to validate")
	_ = patternsValidateCmd.MarkFlagRequired("file")
	patternsCmd.AddCommand(patternsValidateCmd)
	rootCmd.AddCommand(patternsCmd)
}
