package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gaitdoc/internal/records"
)

// InitResult is the structured output of the init command.
type InitResult struct {
	Database    string `json:"database" yaml:"database"`
	Attachments string `json:"attachments" yaml:"attachments"`
	Patients    int    `json:"patients" yaml:"patients"`
}

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database and attachment directory",
		Long: `Create the database and attachment directory if they do not exist and bring
the schema up to date. Other commands do this on first use as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withService(func(svc *records.Service) error {
				n, err := svc.CountPatients(cmd.Context())
				if err != nil {
					return err
				}
				result := InitResult{
					Database:    rootOpts.cfg.DatabasePath(),
					Attachments: rootOpts.cfg.AttachmentsPath(),
					Patients:    n,
				}
				return rootOpts.formatter(cmd).Success(result, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Database: %s\nAttachments: %s\nPatients: %d\n", result.Database, result.Attachments, result.Patients)
					return err
				})
			})
		},
	}
}

// BackupOptions holds flags for the backup command.
type BackupOptions struct {
	*RootOptions
	Dir string
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a dated copy of the database and attachments",
		Long: `Write a consistent, dated copy of the database together with a copy of the
attachment directory. A backup taken earlier the same day is replaced.

  <dir>/<db>_backup_YYYYMMDD.db
  <dir>/<db>_backup_YYYYMMDD_attachments/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.Dir
			if dir == "" {
				dir = opts.cfg.BackupPath()
			}
			return opts.withService(func(svc *records.Service) error {
				res, err := svc.Backup(cmd.Context(), dir)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(res, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Database: %s\nAttachments: %s (%d files)\n", res.Database, res.Attachments, res.Files)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.Dir, "dir", "", "backup directory (default from config)")
	return cmd
}

// OrphansOptions holds flags for the orphans command.
type OrphansOptions struct {
	*RootOptions
	Sweep  bool
	Verify bool
}

// OrphansResult is the structured output of the orphans command.
type OrphansResult struct {
	Orphans []string `json:"orphans" yaml:"orphans"`
	Removed bool     `json:"removed" yaml:"removed"`
}

// NewOrphansCommand creates the orphans command.
func NewOrphansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrphansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report attachment files no record refers to",
		Long: `Report files in the attachment directory that no attachment record refers
to, for example after an interrupted write. With --sweep they are deleted.
With --verify every linked file is also checked against the checksum taken
when it was linked.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrphans(opts, cmd)
		},
	}
	cmd.Flags().BoolVar(&opts.Sweep, "sweep", false, "delete orphan files")
	cmd.Flags().BoolVar(&opts.Verify, "verify", false, "verify checksums of linked files")
	return cmd
}

func runOrphans(opts *OrphansOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	return opts.withService(func(svc *records.Service) error {
		var (
			files []string
			err   error
		)
		if opts.Sweep {
			files, err = svc.Sweep(cmd.Context())
		} else {
			files, err = svc.OrphanFiles(cmd.Context())
		}
		if err != nil {
			return err
		}
		if files == nil {
			files = []string{}
		}
		result := OrphansResult{Orphans: files, Removed: opts.Sweep}
		text := func(w io.Writer) error {
			verb := "Orphan"
			if opts.Sweep {
				verb = "Removed"
			}
			for _, f := range files {
				fmt.Fprintf(w, "%s: %s\n", verb, f)
			}
			_, err := fmt.Fprintf(w, "%d orphan file(s)\n", len(files))
			return err
		}

		if opts.Verify {
			out.VerboseLog("Verifying attachment checksums")
			if verr := svc.VerifyAttachments(cmd.Context()); verr != nil {
				return out.Partial(result, verr, text)
			}
		}
		return out.Success(result, text)
	})
}
