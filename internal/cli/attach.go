package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/records"
)

// NewAttachCommand creates the attach command group.
func NewAttachCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Link files to examinations and interventions",
		Long: `Link files such as videos, PDF reports and images to an examination or an
intervention. Files are copied into the attachment directory; the original is
left untouched.`,
	}
	cmd.AddCommand(newAttachLinkCommand(rootOpts))
	cmd.AddCommand(newAttachUnlinkCommand(rootOpts))
	cmd.AddCommand(newAttachListCommand(rootOpts))
	cmd.AddCommand(newAttachOpenCommand(rootOpts))
	return cmd
}

func parseOwner(kindArg, idArg string) (domain.OwnerKind, int64, error) {
	kind, err := domain.ParseOwnerKind(kindArg)
	if err != nil {
		return "", 0, domain.NewInvalidInput(err.Error(), "")
	}
	id, err := parseID(idArg, string(kind))
	if err != nil {
		return "", 0, err
	}
	return kind, id, nil
}

func newAttachLinkCommand(opts *RootOptions) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "link <examination|intervention> <owner-id> <file>",
		Short: "Copy a file into the store and link it",
		Long: `Copy a file into the attachment directory and link it to an examination or
intervention. The description defaults to the file name.

Example:
  gaitdoc attach link exam 3 ./walk.mp4 --description "sagittal view"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				id, err := svc.LinkAttachment(cmd.Context(), kind, ownerID, args[2], description)
				if err != nil {
					return err
				}
				a, err := svc.GetAttachment(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(a, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Linked attachment %d (%s, %d bytes) to %s %d\n",
						a.ID, a.OriginalName, a.Size, a.OwnerKind, a.OwnerID)
					return err
				})
			})
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "description (default: file name)")
	return cmd
}

func newAttachUnlinkCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlink <attachment-id>",
		Short: "Remove an attachment and its stored file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				if err := svc.UnlinkAttachment(cmd.Context(), id); err != nil {
					return err
				}
				return opts.formatter(cmd).Success(map[string]int64{"deleted": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Unlinked attachment %d\n", id)
					return err
				})
			})
		},
	}
}

func newAttachListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <examination|intervention> <owner-id>",
		Short: "List the attachments of an examination or intervention",
		Long: `List the attachments of an examination or intervention. Entries whose
stored file is missing are still listed and the command fails with
CONFLICT_OR_CORRUPTION.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ownerID, err := parseOwner(args[0], args[1])
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				list, err := svc.ListAttachments(cmd.Context(), kind, ownerID)
				text := func(w io.Writer) error { return writeAttachmentTable(w, list) }
				out := opts.formatter(cmd)
				if domain.CodeOf(err) == domain.CodeCorruption {
					return out.Partial(list, err, text)
				}
				if err != nil {
					return err
				}
				return out.Success(list, text)
			})
		},
	}
}

func newAttachOpenCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <attachment-id>",
		Short: "Print the path of an attachment's stored file",
		Long: `Print the absolute path of an attachment's stored file, for handing to a
viewer:

  xdg-open "$(gaitdoc attach open 7)"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "attachment")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				path, err := svc.OpenAttachment(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(map[string]string{"path": path}, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, path)
					return err
				})
			})
		},
	}
}

func writeAttachmentTable(w io.Writer, list []domain.Attachment) error {
	if len(list) == 0 {
		_, err := fmt.Fprintln(w, "No attachments")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tSIZE\tDESCRIPTION")
	for _, a := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\n", a.ID, a.OriginalName, a.ContentType, a.Size, a.Description)
	}
	return tw.Flush()
}
