package query

import (
	"cmp"
	"slices"

	"github.com/roach88/gaitdoc/internal/domain"
)

// BuildTimeline merges a patient's examinations and interventions into one
// ascending sequence. Ties on date put examinations first, then order by
// record id. The inputs are not modified.
func BuildTimeline(p domain.Patient, exams []domain.Examination, interventions []domain.Intervention) []domain.TimelineEvent {
	events := make([]domain.TimelineEvent, 0, len(exams)+len(interventions))

	for i := range exams {
		e := exams[i]
		events = append(events, domain.TimelineEvent{
			Date:         e.Date,
			AgeYears:     domain.AgeAt(p.BirthDate, e.Date),
			Kind:         domain.EventExamination,
			RecordID:     e.ID,
			Type:         e.Type,
			Person:       e.Examiner,
			NotesPreview: domain.NotesPreview(e.Notes),
			Examination:  &e,
		})
	}
	for i := range interventions {
		iv := interventions[i]
		events = append(events, domain.TimelineEvent{
			Date:         iv.Date,
			AgeYears:     domain.AgeAt(p.BirthDate, iv.Date),
			Kind:         domain.EventIntervention,
			RecordID:     iv.ID,
			Type:         iv.Type,
			Person:       iv.Operator,
			NotesPreview: domain.NotesPreview(iv.Notes),
			Intervention: &iv,
		})
	}

	slices.SortStableFunc(events, func(a, b domain.TimelineEvent) int {
		return cmp.Or(
			a.Date.Compare(b.Date),
			cmp.Compare(a.Kind.Rank(), b.Kind.Rank()),
			cmp.Compare(a.RecordID, b.RecordID),
		)
	})
	return events
}
