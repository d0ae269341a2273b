package fixture

import (
	"context"
	"fmt"

	"github.com/roach88/gaitdoc/internal/domain"
)

// Writer is the subset of the access facade an import needs.
type Writer interface {
	CreatePatient(ctx context.Context, p domain.Patient) (int64, error)
	AddExamination(ctx context.Context, patientID int64, e domain.Examination) (int64, error)
	AddIntervention(ctx context.Context, patientID int64, iv domain.Intervention) (int64, error)
	LinkAttachment(ctx context.Context, kind domain.OwnerKind, ownerID int64, sourcePath, description string) (int64, error)
}

// Import writes every record of ds through w, in file order. Each record is
// its own transaction; on the first failure the import stops and returns
// what was written so far together with the error.
func Import(ctx context.Context, w Writer, ds *Dataset) (Counts, error) {
	var done Counts
	for i, entry := range ds.Patients {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		p := entry.Patient
		p.ID = 0
		pid, err := w.CreatePatient(ctx, p)
		if err != nil {
			return done, fmt.Errorf("patients[%d]: %w", i, err)
		}
		done.Patients++

		for j, e := range entry.Examinations {
			eid, err := w.AddExamination(ctx, pid, e.Examination)
			if err != nil {
				return done, fmt.Errorf("patients[%d].examinations[%d]: %w", i, j, err)
			}
			done.Examinations++
			n, err := linkAll(ctx, w, ds, domain.OwnerExamination, eid, e.Attachments)
			done.Attachments += n
			if err != nil {
				return done, fmt.Errorf("patients[%d].examinations[%d].%w", i, j, err)
			}
		}

		for j, iv := range entry.Interventions {
			iid, err := w.AddIntervention(ctx, pid, iv.Intervention)
			if err != nil {
				return done, fmt.Errorf("patients[%d].interventions[%d]: %w", i, j, err)
			}
			done.Interventions++
			n, err := linkAll(ctx, w, ds, domain.OwnerIntervention, iid, iv.Attachments)
			done.Attachments += n
			if err != nil {
				return done, fmt.Errorf("patients[%d].interventions[%d].%w", i, j, err)
			}
		}
	}
	return done, nil
}

func linkAll(ctx context.Context, w Writer, ds *Dataset, kind domain.OwnerKind, ownerID int64, entries []AttachmentEntry) (int, error) {
	for k, a := range entries {
		if _, err := w.LinkAttachment(ctx, kind, ownerID, ds.resolve(a.Path), a.Description); err != nil {
			return k, fmt.Errorf("attachments[%d]: %w", k, err)
		}
	}
	return len(entries), nil
}
