package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/records"
)

// TimelineResult is the structured output of the timeline command.
type TimelineResult struct {
	Patient domain.Patient         `json:"patient" yaml:"patient"`
	Events  []domain.TimelineEvent `json:"events" yaml:"events"`
}

// NewTimelineCommand creates the timeline command.
func NewTimelineCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "timeline <patient-id>",
		Short: "Show a patient's examinations and interventions in date order",
		Long: `Show a patient's examinations and interventions in ascending date order with
the patient's age in whole years at each event. On the same date
examinations come before interventions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "patient")
			if err != nil {
				return err
			}
			return rootOpts.withService(func(svc *records.Service) error {
				p, err := svc.GetPatient(cmd.Context(), id)
				if err != nil {
					return err
				}
				events, err := svc.GetTimeline(cmd.Context(), id)
				if err != nil {
					return err
				}
				result := TimelineResult{Patient: p, Events: events}
				return rootOpts.formatter(cmd).Success(result, func(w io.Writer) error {
					return writeTimeline(w, result)
				})
			})
		},
	}
}

func writeTimeline(w io.Writer, r TimelineResult) error {
	fmt.Fprintf(w, "%s (born %s)\n", r.Patient.FullName(), r.Patient.BirthDate)
	if len(r.Events) == 0 {
		_, err := fmt.Fprintln(w, "No events")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAGE\tKIND\tID\tTYPE\tBY\tNOTES")
	for _, ev := range r.Events {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\t%s\t%s\n",
			ev.Date, ev.AgeYears, ev.Kind, ev.RecordID, ev.Type, ev.Person, ev.NotesPreview)
	}
	return tw.Flush()
}
