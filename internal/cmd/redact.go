package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-sh/veil/internal/config"
	"github.com/veil-sh/veil/internal/vault"
)

var (
	redactEntities     []string
	redactWords        []string
	redactIgnoreCase   bool
	redactFuzzy        int
	redactMappingOut   string
	redactStoreInVault bool
)

var redactCmd = &cobra.Command{
	Use:   "redact [file]",
	Short: "Redact sensitive spans in a file or stdin",
	Long: `Reads text from the given file (or stdin when the argument is "-" or
omitted), replaces detected sensitive spans with placeholders, and writes the
redacted text to stdout.

The reversible mapping goes to --mapping-out as JSON, or into the encrypted
mapping vault with --store (the mapping ID is logged). Without either, the
mapping JSON is written to stderr.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRedact,
}

func init() {
	redactCmd.Flags().StringSliceVar(&redactEntities, "entities", nil, "entity labels to redact (default: all)")
	redactCmd.Flags().StringSliceVar(&redactWords, "custom-words", nil, "literal words to redact")
	redactCmd.Flags().BoolVar(&redactIgnoreCase, "ignore-case", false, "match custom words case-insensitively")
	redactCmd.Flags().IntVar(&redactFuzzy, "fuzzy", 0, "fuzzy consolidation strength (0 = exact matching)")
	redactCmd.Flags().StringVar(&redactMappingOut, "mapping-out", "", "write the mapping JSON to this file")
	redactCmd.Flags().BoolVar(&redactStoreInVault, "store", false, "persist the mapping in the encrypted vault")
	rootCmd.AddCommand(redactCmd)
}

// readInput reads the positional file argument, treating "-" or a missing
// argument as stdin.
func readInput(args []string) ([]byte, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(args[0])
}

func runRedact(cmd *cobra.Command, args []string) error {
	ctx, span := tracer.Start(cmd.Context(), "redact")
	defer span.End()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	input, err := readInput(args)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	redactor, err := buildRedactor(cfg, redactEntities, redactWords, redactFuzzy, redactIgnoreCase)
	if err != nil {
		return fmt.Errorf("building redactor: %w", err)
	}

	redacted, mapping, err := redactor.Redact(ctx, string(input))
	if err != nil {
		return fmt.Errorf("redacting: %w", err)
	}

	mappingJSON, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding mapping: %w", err)
	}

	switch {
	case redactStoreInVault:
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		cfg.WarnIfDerivedKey()
		store, err := vault.New(cfg.VaultPath(), cfg.VaultKey)
		if err != nil {
			return fmt.Errorf("opening mapping vault: %w", err)
		}
		defer store.Close()
		id, err := store.Save(ctx, "cli", mapping)
		if err != nil {
			return fmt.Errorf("storing mapping: %w", err)
		}
		log.Info().Str("mapping_id", id).Int("entries", len(mapping)).Msg("Mapping stored in vault")
	case redactMappingOut != "":
		if err := os.WriteFile(redactMappingOut, mappingJSON, 0o600); err != nil {
			return fmt.Errorf("writing mapping file: %w", err)
		}
		log.Info().Str("file", redactMappingOut).Int("entries", len(mapping)).Msg("Mapping written")
	default:
		fmt.Fprintln(os.Stderr, string(mappingJSON))
	}

	fmt.Print(redacted)
	return nil
}
