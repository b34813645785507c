package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/redact"
	"github.com/veil-sh/veil/internal/vault"
)

var (
	restoreMappingFile string
	restoreMappingID   string
)

var restoreCmd = &cobra.Command{
	Use:   "restore [file]",
	Short: "Restore original text from redacted text and a mapping",
	Long: `Reads redacted text from the given file (or stdin) and replaces each
placeholder with its original text. The mapping comes from --mapping (a JSON
file produced by "veil redact --mapping-out") or --mapping-id (a vault entry
produced by "veil redact --store"). Placeholders absent from the mapping are
left verbatim.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	restoreCmd.Flags().StringVar(&restoreMappingFile, "mapping", "", "mapping JSON file")
	restoreCmd.Flags().StringVar(&restoreMappingID, "mapping-id", "", "mapping ID in the encrypted vault")
	restoreCmd.MarkFlagsMutuallyExclusive("mapping", "mapping-id")
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "restore")
	defer span.End()

	if restoreMappingFile == "" && restoreMappingID == "" {
		return fmt.Errorf("either --mapping or --mapping-id is required")
	}

	input, err := readInput(args)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	var mapping redact.Mapping
	if restoreMappingFile != "" {
		data, err := os.ReadFile(restoreMappingFile)
		if err != nil {
			return fmt.Errorf("reading mapping file: %w", err)
		}
		if err := json.Unmarshal(data, &mapping); err != nil {
			return fmt.Errorf("decoding mapping file: %w", err)
		}
	} else {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg.WarnIfDerivedKey()
		store, err := vault.New(cfg.VaultPath(), cfg.VaultKey)
		if err != nil {
			return fmt.Errorf("opening mapping vault: %w", err)
		}
		defer store.Close()
		mapping, err = store.Load(ctx, restoreMappingID)
		if err != nil {
			return fmt.Errorf("loading mapping %s: %w", restoreMappingID, err)
		}
	}

	fmt.Print(mapping.Apply(string(input)))
	return nil
}
