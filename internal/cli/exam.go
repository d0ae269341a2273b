package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/records"
)

var examFields = []textField[domain.Examination]{
	{"type", "examination type, e.g. \"gait analysis\"", func(e *domain.Examination) *string { return &e.Type }},
	{"examiner", "examiner", func(e *domain.Examination) *string { return &e.Examiner }},
	{"assistive-device", "assistive device used", func(e *domain.Examination) *string { return &e.AssistiveDevice }},
	{"notes", "free-text notes", func(e *domain.Examination) *string { return &e.Notes }},
}

// NewExamCommand creates the exam command group.
func NewExamCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exam",
		Aliases: []string{"examination"},
		Short:   "Record, change and remove examinations",
	}
	cmd.AddCommand(newExamAddCommand(rootOpts))
	cmd.AddCommand(newExamUpdateCommand(rootOpts))
	cmd.AddCommand(newExamDeleteCommand(rootOpts))
	return cmd
}

func bindMeasures(fs *pflag.FlagSet) {
	fs.Float64("height", 0, "height in metres (0 clears)")
	fs.Float64("weight", 0, "weight in kilograms (0 clears)")
}

// applyMeasures copies changed height and weight flags into e.
func applyMeasures(fs *pflag.FlagSet, e *domain.Examination) error {
	h, set, err := changedFloat(fs, "height")
	if err != nil {
		return err
	}
	if set {
		e.HeightM = h
	}
	w, set, err := changedFloat(fs, "weight")
	if err != nil {
		return err
	}
	if set {
		e.WeightKg = w
	}
	return nil
}

func newExamAddCommand(opts *RootOptions) *cobra.Command {
	var input domain.Examination
	var date string

	cmd := &cobra.Command{
		Use:   "add <patient-id>",
		Short: "Record an examination for a patient",
		Long: `Record an examination. The date is required and may not precede the
patient's birth date. BMI is derived when both height and weight are given.

Example:
  gaitdoc exam add 1 --date 2024-03-01 --type "gait analysis" --height 1.80 --weight 75`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID(args[0], "patient")
			if err != nil {
				return err
			}
			if input.Date, err = parseDateField("date", date); err != nil {
				return err
			}
			if err := applyMeasures(cmd.Flags(), &input); err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				id, err := svc.AddExamination(cmd.Context(), patientID, input)
				if err != nil {
					return err
				}
				e, err := svc.GetExamination(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(e, func(w io.Writer) error {
					return writeExamSummary(w, "Recorded", e)
				})
			})
		},
	}
	bindText(cmd.Flags(), &input, examFields)
	bindMeasures(cmd.Flags())
	cmd.Flags().StringVar(&date, "date", "", "examination date YYYY-MM-DD (required)")
	return cmd
}

func newExamUpdateCommand(opts *RootOptions) *cobra.Command {
	var input domain.Examination
	var date string

	cmd := &cobra.Command{
		Use:   "update <examination-id>",
		Short: "Change an examination",
		Long: `Change an examination. Only the flags given are changed; BMI is
recomputed from the resulting height and weight.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "examination")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				e, err := svc.GetExamination(cmd.Context(), id)
				if err != nil {
					return err
				}
				applyChanged(cmd.Flags(), &e, &input, examFields)
				if cmd.Flags().Changed("date") {
					if e.Date, err = parseDateField("date", date); err != nil {
						return err
					}
				}
				if err := applyMeasures(cmd.Flags(), &e); err != nil {
					return err
				}
				if err := svc.UpdateExamination(cmd.Context(), e); err != nil {
					return err
				}
				if e, err = svc.GetExamination(cmd.Context(), id); err != nil {
					return err
				}
				return opts.formatter(cmd).Success(e, func(w io.Writer) error {
					return writeExamSummary(w, "Updated", e)
				})
			})
		},
	}
	bindText(cmd.Flags(), &input, examFields)
	bindMeasures(cmd.Flags())
	cmd.Flags().StringVar(&date, "date", "", "examination date YYYY-MM-DD")
	return cmd
}

func newExamDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <examination-id>",
		Short: "Delete an examination and its attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "examination")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				if err := svc.DeleteExamination(cmd.Context(), id); err != nil {
					return err
				}
				return opts.formatter(cmd).Success(map[string]int64{"deleted": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted examination %d\n", id)
					return err
				})
			})
		},
	}
}

func writeExamSummary(w io.Writer, verb string, e domain.Examination) error {
	_, err := fmt.Fprintf(w, "%s examination %d for patient %d on %s", verb, e.ID, e.PatientID, e.Date)
	if err != nil {
		return err
	}
	if e.BMI != nil {
		_, err = fmt.Fprintf(w, " (BMI %.2f)", *e.BMI)
		if err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(w)
	return err
}
