package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gaitdoc/internal/fixture"
	"github.com/roach88/gaitdoc/internal/records"
)

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	DryRun bool
}

// ImportResult is the structured output of the import command.
type ImportResult struct {
	File     string         `json:"file" yaml:"file"`
	DryRun   bool           `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
	Expected fixture.Counts `json:"expected" yaml:"expected"`
	Written  fixture.Counts `json:"written" yaml:"written"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import <dataset.yaml>",
		Short: "Import patients, events and attachments from a YAML dataset",
		Long: `Import a YAML dataset of patients with their examinations, interventions and
attachment files. The file is checked against the dataset schema before
anything is written. Attachment paths are relative to the dataset file.

Records are written one at a time; the import stops at the first record that
is rejected and reports what was written before it.

Example dataset:
  patients:
    - code: G-001
      first_name: Jane
      last_name: Smith
      birth_date: 2000-06-15
      examinations:
        - date: 2020-06-14
          type: gait analysis
          height_m: 1.62
          weight_kg: 55
          attachments:
            - path: files/walk.mp4`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(opts, args[0], cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "validate the dataset without writing")
	return cmd
}

func runImport(opts *ImportOptions, file string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ds, err := fixture.Load(file)
	if err != nil {
		return err
	}
	result := ImportResult{File: file, DryRun: opts.DryRun, Expected: ds.Counts()}
	out.VerboseLog("Loaded %s: %s", file, result.Expected)

	if opts.DryRun {
		return out.Success(result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Dataset OK: %s\n", result.Expected)
			return err
		})
	}

	return opts.withService(func(svc *records.Service) error {
		written, err := fixture.Import(cmd.Context(), svc, ds)
		result.Written = written
		text := func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Imported %s\n", written)
			return err
		}
		if err != nil {
			return out.Partial(result, err, text)
		}
		return out.Success(result, text)
	})
}
