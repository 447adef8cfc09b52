package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"kidshield/internal/config"
	"kidshield/internal/database"
	"kidshield/internal/service"
)

var (
	exportOutput string
	importInput  string
	importClear  bool
	assumeYes    bool
)

var rootCmd = &cobra.Command{
	Use:   "backup",
	Short: "Export and import kidshield data",
	Long: `Export and import every family, child, rule and usage event as one JSON
document. The database is selected with the same DB_TYPE, DATABASE_URL and
DB_PATH variables as the server.

Examples:
  # Export to a timestamped file
  backup export

  # Restore into an empty database
  backup import --input backup_20250101_120000.json

  # Replace all existing data
  backup import --input backup.json --clear`,
	SilenceUsage: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write all data to a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWithService(cmd.Context(), func(ctx context.Context, backupService *service.BackupService, logger zerolog.Logger) error {
			return handleExport(ctx, backupService, logger, exportOutput)
		})
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Restore data from a JSON file in one transaction",
	RunE: func(cmd *cobra.Command, args []string) error {
		if importClear && !assumeYes && !confirm(cmd, "WARNING: This will delete all existing data. Type 'yes' to confirm: ") {
			fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
			return nil
		}
		return runWithService(cmd.Context(), func(ctx context.Context, backupService *service.BackupService, logger zerolog.Logger) error {
			return handleImport(ctx, backupService, logger, importInput, importClear)
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOutput, "output", "", "output file path (default: backup_YYYYMMDD_HHMMSS.json)")

	importCmd.Flags().StringVar(&importInput, "input", "", "input file path")
	importCmd.Flags().BoolVar(&importClear, "clear", false, "delete existing data before import (destructive)")
	importCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "skip the --clear confirmation prompt")
	_ = importCmd.MarkFlagRequired("input")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runWithService opens the configured database, makes sure the schema exists
// and hands a backup service to fn
func runWithService(ctx context.Context, fn func(context.Context, *service.BackupService, zerolog.Logger) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadDatabase()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	cfg.Logging.Format = "console"
	logger := config.NewLogger(cfg.Logging)

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.Bootstrap(ctx, logger); err != nil {
		return fmt.Errorf("failed to bootstrap schema: %w", err)
	}

	return fn(ctx, service.NewBackupService(db, logger), logger)
}

func handleExport(ctx context.Context, backupService *service.BackupService, logger zerolog.Logger, outputPath string) error {
	// Generate default filename if not provided
	if outputPath == "" {
		outputPath = fmt.Sprintf("backup_%s.json", time.Now().Format("20060102_150405"))
	}

	// Ensure directory exists
	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()

	logger.Info().Str("path", outputPath).Msg("Exporting database")
	if _, err := backupService.Export(ctx, file); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if info, err := file.Stat(); err == nil {
		logger.Info().Str("path", outputPath).Int64("bytes", info.Size()).Msg("Export complete")
	}
	return nil
}

func handleImport(ctx context.Context, backupService *service.BackupService, logger zerolog.Logger, inputPath string, clearData bool) error {
	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	logger.Info().Str("path", inputPath).Bool("clear", clearData).Msg("Importing database")
	if err := backupService.Import(ctx, file, clearData); err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	logger.Info().Msg("Import complete")
	return nil
}

func confirm(cmd *cobra.Command, prompt string) bool {
	fmt.Fprint(cmd.OutOrStdout(), prompt)
	answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(answer) == "yes"
}
