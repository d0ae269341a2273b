package cli

import (
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/query"
	"github.com/roach88/gaitdoc/internal/records"
)

var patientFields = []textField[domain.Patient]{
	{"code", "patient code (unique)", func(p *domain.Patient) *string { return &p.Code }},
	{"first-name", "first name (required)", func(p *domain.Patient) *string { return &p.FirstName }},
	{"last-name", "last name (required)", func(p *domain.Patient) *string { return &p.LastName }},
	{"sex", "sex", func(p *domain.Patient) *string { return &p.Sex }},
	{"diagnosis", "diagnosis", func(p *domain.Patient) *string { return &p.Diagnosis }},
	{"assistive-device", "assistive device", func(p *domain.Patient) *string { return &p.AssistiveDevice }},
	{"address", "street address", func(p *domain.Patient) *string { return &p.Address }},
	{"zip", "zip code", func(p *domain.Patient) *string { return &p.ZipCode }},
	{"city", "city", func(p *domain.Patient) *string { return &p.City }},
	{"country", "country", func(p *domain.Patient) *string { return &p.Country }},
	{"phone", "phone number", func(p *domain.Patient) *string { return &p.Phone }},
	{"mobile", "mobile number", func(p *domain.Patient) *string { return &p.Mobile }},
	{"email", "email address", func(p *domain.Patient) *string { return &p.Email }},
}

// NewPatientCommand creates the patient command group.
func NewPatientCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Create, change, remove and find patients",
	}
	cmd.AddCommand(newPatientAddCommand(rootOpts))
	cmd.AddCommand(newPatientUpdateCommand(rootOpts))
	cmd.AddCommand(newPatientDeleteCommand(rootOpts))
	cmd.AddCommand(newPatientShowCommand(rootOpts))
	cmd.AddCommand(newPatientSearchCommand(rootOpts))
	return cmd
}

func newPatientAddCommand(opts *RootOptions) *cobra.Command {
	var input domain.Patient
	var birth string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a patient",
		Long: `Add a patient. First name, last name and birth date are required.

Example:
  gaitdoc patient add --first-name Jane --last-name Smith --birth-date 2000-06-15 --diagnosis "Cerebral palsy"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bd, err := parseDateField("birth_date", birth)
			if err != nil {
				return err
			}
			input.BirthDate = bd

			return opts.withService(func(svc *records.Service) error {
				id, err := svc.CreatePatient(cmd.Context(), input)
				if err != nil {
					return err
				}
				p, err := svc.GetPatient(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(p, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Created patient %d: %s\n", p.ID, p.FullName())
					return err
				})
			})
		},
	}
	bindText(cmd.Flags(), &input, patientFields)
	cmd.Flags().StringVar(&birth, "birth-date", "", "birth date YYYY-MM-DD (required)")
	return cmd
}

func newPatientUpdateCommand(opts *RootOptions) *cobra.Command {
	var input domain.Patient
	var birth string

	cmd := &cobra.Command{
		Use:   "update <patient-id>",
		Short: "Change a patient's demographics",
		Long: `Change a patient's demographics. Only the flags given are changed.

Existing examinations and interventions are not re-checked against a changed
birth date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "patient")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				p, err := svc.GetPatient(cmd.Context(), id)
				if err != nil {
					return err
				}
				applyChanged(cmd.Flags(), &p, &input, patientFields)
				if cmd.Flags().Changed("birth-date") {
					if p.BirthDate, err = parseDateField("birth_date", birth); err != nil {
						return err
					}
				}
				if err := svc.UpdatePatient(cmd.Context(), id, p); err != nil {
					return err
				}
				p, err = svc.GetPatient(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(p, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Updated patient %d: %s\n", p.ID, p.FullName())
					return err
				})
			})
		},
	}
	bindText(cmd.Flags(), &input, patientFields)
	cmd.Flags().StringVar(&birth, "birth-date", "", "birth date YYYY-MM-DD")
	return cmd
}

func newPatientDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <patient-id>",
		Short: "Delete a patient with all examinations, interventions and attachments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "patient")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				if err := svc.DeletePatient(cmd.Context(), id); err != nil {
					return err
				}
				return opts.formatter(cmd).Success(map[string]int64{"deleted": id}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "Deleted patient %d\n", id)
					return err
				})
			})
		},
	}
}

func newPatientShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <patient-id>",
		Short: "Show a patient's demographics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "patient")
			if err != nil {
				return err
			}
			return opts.withService(func(svc *records.Service) error {
				p, err := svc.GetPatient(cmd.Context(), id)
				if err != nil {
					return err
				}
				return opts.formatter(cmd).Success(p, func(w io.Writer) error {
					return writePatient(w, p)
				})
			})
		},
	}
}

func newPatientSearchCommand(opts *RootOptions) *cobra.Command {
	var field, from, to string

	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search patients",
		Long: `Search patients by last name, diagnosis, patient id or zip code.

Text fields match case-insensitively anywhere in the value. The patient_id
field matches the numeric id or the patient code exactly. Without text every
patient matches. Results are sorted by last name.

Examples:
  gaitdoc patient search sm
  gaitdoc patient search --field diagnosis palsy --born-from 1990-01-01
  gaitdoc patient search --field patient_id G-001`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := query.ParseField(field)
			if err != nil {
				return err
			}
			c := query.Criteria{Field: f}
			if len(args) == 1 {
				c.Text = args[0]
			}
			if from != "" {
				d, err := parseDateField("born_from", from)
				if err != nil {
					return err
				}
				c.BirthFrom = &d
			}
			if to != "" {
				d, err := parseDateField("born_to", to)
				if err != nil {
					return err
				}
				c.BirthTo = &d
			}

			return opts.withService(func(svc *records.Service) error {
				out := opts.formatter(cmd)
				if out.structured() {
					patients, err := query.Collect(svc.SearchPatients(cmd.Context(), c))
					if err != nil {
						return err
					}
					return out.Success(patients, nil)
				}
				return writePatientTable(cmd.OutOrStdout(), svc.SearchPatients(cmd.Context(), c))
			})
		},
	}
	cmd.Flags().StringVar(&field, "field", string(query.FieldLastName), "field to match ("+query.FieldNames()+")")
	cmd.Flags().StringVar(&from, "born-from", "", "earliest birth date YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&to, "born-to", "", "latest birth date YYYY-MM-DD (inclusive)")
	return cmd
}

// writePatientTable streams search results as an aligned table.
func writePatientTable(w io.Writer, seq iter.Seq2[domain.Patient, error]) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCODE\tNAME\tBORN\tDIAGNOSIS\tZIP")
	n := 0
	for p, err := range seq {
		if err != nil {
			return err
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Code, p.FullName(), p.BirthDate, p.Diagnosis, p.ZipCode)
		n++
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d patient(s)\n", n)
	return err
}

func writePatient(w io.Writer, p domain.Patient) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", fmt.Sprint(p.ID)},
		{"Code", p.Code},
		{"Name", p.FullName()},
		{"Born", p.BirthDate.String()},
		{"Sex", p.Sex},
		{"Diagnosis", p.Diagnosis},
		{"Assistive device", p.AssistiveDevice},
		{"Address", p.Address},
		{"Zip", p.ZipCode},
		{"City", p.City},
		{"Country", p.Country},
		{"Phone", p.Phone},
		{"Mobile", p.Mobile},
		{"Email", p.Email},
	}
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1])
	}
	return tw.Flush()
}
