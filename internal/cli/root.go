package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/gaitdoc/internal/config"
	"github.com/roach88/gaitdoc/internal/records"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "yaml" | "text"
	ConfigFile string

	v      *viper.Viper
	cfg    *config.Config
	logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the root command for the gaitdoc CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{v: config.New()}

	cmd := &cobra.Command{
		Use:   "gaitdoc",
		Short: "gaitdoc - gait clinic record keeping",
		Long: `Keep patients, examinations, interventions and their attachment files
in a local database, search patients and review each patient's timeline.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Validate format flag
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return opts.load(cmd.ErrOrStderr())
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	pf.StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	pf.StringVar(&opts.ConfigFile, "config", "", "config file (default ./gaitdoc.yaml)")
	pf.String("data-dir", "", "directory holding the database and attachments")
	pf.String("db", "", "database file, relative to the data directory")
	pf.String("attachments", "", "attachment directory, relative to the data directory")
	pf.String("log-level", "", "log level (debug|info|warn|error)")
	_ = opts.v.BindPFlag(config.KeyDataDir, pf.Lookup("data-dir"))
	_ = opts.v.BindPFlag(config.KeyDatabase, pf.Lookup("db"))
	_ = opts.v.BindPFlag(config.KeyAttachments, pf.Lookup("attachments"))
	_ = opts.v.BindPFlag(config.KeyLogLevel, pf.Lookup("log-level"))

	// Add subcommands
	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewPatientCommand(opts))
	cmd.AddCommand(NewExamCommand(opts))
	cmd.AddCommand(NewInterventionCommand(opts))
	cmd.AddCommand(NewAttachCommand(opts))
	cmd.AddCommand(NewTimelineCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewBackupCommand(opts))
	cmd.AddCommand(NewOrphansCommand(opts))

	return cmd
}

// Execute runs the command tree and reports any error in the selected
// format. Returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var reported reportedError
	if errors.As(err, &reported) {
		return GetExitCode(err)
	}

	format, _ := cmd.PersistentFlags().GetString("format")
	if !isValidFormat(format) {
		format = "text"
	}
	f := &OutputFormatter{Format: format, Writer: stdout, ErrWriter: stderr}
	if format == "text" {
		f.Writer = stderr
	}
	_ = f.Fail(err)
	return GetExitCode(err)
}

// load resolves configuration and sets up logging. Verbose forces debug.
func (o *RootOptions) load(stderr io.Writer) error {
	cfg, err := config.Load(o.v, o.ConfigFile)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level, _ := cfg.Level()
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.cfg = cfg
	o.logger = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
	return nil
}

// formatter builds the output formatter for cmd.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// open opens the configured data set, creating its directories on first use.
func (o *RootOptions) open() (*records.Service, error) {
	dbPath := o.cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to create data directory", err)
	}
	svc, err := records.Open(records.Paths{
		Database:    dbPath,
		Attachments: o.cfg.AttachmentsPath(),
	}, o.logger)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	o.logger.Debug("database ready", "db", dbPath, "attachments", o.cfg.AttachmentsPath())
	return svc, nil
}

// withService opens the data set for the duration of fn.
func (o *RootOptions) withService(fn func(svc *records.Service) error) error {
	svc, err := o.open()
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := svc.Close(); closeErr != nil {
			o.logger.Error("error closing database", "error", closeErr)
		}
	}()
	return fn(svc)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
