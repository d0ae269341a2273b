package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/records"
)

var interventionFields = []textField[domain.Intervention]{
	{"type", "intervention type, e.g. \"botulinum toxin\"", func(iv *domain.Intervention) *string { return &iv.Type }},
	{"operator", "operator", func(iv *domain.Intervention) *string { return &iv.Operator }},
	{"notes", "free-text notes", func(iv *domain.Intervention) *string { return &iv.Notes }},
}

// NewInterventionCommand creates the intervention command group.
func NewInterventionCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "intervention",
		Short: "Record, change and remove interventions",
	}
	cmd.AddCommand(newInterventionAddCommand(rootOpts))
	cmd.AddCommand(newInterventionUpdateCommand(rootOpts))
	cmd.AddCommand(newInterventionDeleteCommand(rootOpts))
	return cmd
}

func newInterventionAddCommand(opts *RootOptions) *cobra.Command {
	var input domain.Intervention
	var date string

	cmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Record an intervention for a patient",
		Long: `Record an intervention. The date is required and may not precede the
patient's birth date.

Example:
  gaitdoc intervention add 1 --date 2024-05-02 --type surgery --operator "Dr. Weber"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0], "patient")
			if err != nil {
				return err
			}
			if input.Date, err = parseDateField("date", date); err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				id, err := svc.AddIntervention(cmd.Context(), patientID, input)
				if err != nil {
					return err
				}
				iv, err := svc.GetIntervention(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(iv, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Recorded intervention %d for patient %d on %s\n", iv.ID, iv.PatientID, iv.Date)
					return err
				})
			})
		},
	}
	bindText(cmd.Flags(), &input, interventionFields)
	cmd.Flags().StringVar(&date, "date", "", "intervention date YYYY-MM-DD (required)")
	return cmd
}

func newInterventionUpdateCommand(opts *RootOptions) *cobra.Command {
	var input domain.Intervention
	var date string

	cmd := &cobra.Command{
		Use:   "update <intervention-id>",
		Short: "Change an intervention",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "intervention")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				iv, err := svc.GetIntervention(cmd.Context(), id)
				if err != nil {
					return err
				}
				applyChanged(cmd.Flags(), &iv, &input, interventionFields)
				if cmd.Flags().Changed("date") {
					if iv.Date, err = parseDateField("date", date); err != nil {
						return err
					}
				}
				if err := svc.UpdateIntervention(cmd.Context(), iv); err != nil {
					return err
				}
				return opts.formatter(cmd).Success(iv, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated intervention %d\n", iv.ID)
					return err
				})
			})
		},
	}
	bindText(cmd.Flags(), &input, interventionFields)
	cmd.Flags().StringVar(&date, "date", "", "intervention date YYYY-MM-DD")
	return cmd
}

func newInterventionDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <intervention-id>",
		Short: "Delete an intervention and its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "intervention")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				if err := svc.DeleteIntervention(cmd.Context(), id); err != nil {
					return err
				}
				return opts.formatter(cmd).Success(map[string]int64{"deleted": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted intervention %d\n", id)
					return err
				})
			})
		},
	}
}
