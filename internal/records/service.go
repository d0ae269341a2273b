package records

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/gaitdoc/internal/attach"
	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/query"
	"github.com/roach88/gaitdoc/internal/store"
)

// Paths locates the two halves of a data set. Copying both while the
// service is idle is a complete backup.
type Paths struct {
	Database    string
	Attachments string
}

// Service is the access facade.
type Service struct {
	store  *store.Store
	engine *query.Engine
	logger *slog.Logger
}

// Open opens the database and attachment directory at paths and wires the
// facade over them. The caller must Close the service.
func Open(paths Paths, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := attach.New(paths.Attachments, attach.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open attachments: %w", err)
	}
	s, err := store.Open(paths.Database, files, store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open records: %w", err)
	}
	return New(s, logger), nil
}

// New wraps an open store.
func New(s *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  s,
		engine: query.New(s, query.WithLogger(logger)),
		logger: logger,
	}
}

// Close releases the database.
func (s *Service) Close() error {
	return s.store.Close()
}

// Store exposes the underlying record store.
func (s *Service) Store() *store.Store {
	return s.store
}

// logResult records a mutation outcome. Validation and not-found failures
// are user errors and logged at debug level.
func (s *Service) logResult(op string, err error, attrs ...any) {
	if err == nil {
		s.logger.Info(op, attrs...)
		return
	}
	attrs = append(attrs, "error", err)
	switch domain.CodeOf(err) {
	case domain.CodeValidation, domain.CodeNotFound, domain.CodeInvalidInput:
		s.logger.Debug(op+" rejected", attrs...)
	default:
		s.logger.Error(op+" failed", attrs...)
	}
}

// Patients

// CreatePatient validates and stores a new patient, returning its id.
func (s *Service) CreatePatient(ctx context.Context, p domain.Patient) (int64, error) {
	id, err := s.store.CreatePatient(ctx, p)
	s.logResult("patient created", err, "patient_id", id)
	return id, err
}

// UpdatePatient replaces the demographics of patient id.
func (s *Service) UpdatePatient(ctx context.Context, id int64, p domain.Patient) error {
	err := s.store.UpdatePatient(ctx, id, p)
	s.logResult("patient updated", err, "patient_id", id)
	return err
}

// DeletePatient removes the patient with every examination, intervention
// and attachment below it, including attachment files.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	err := s.store.DeletePatient(ctx, id)
	s.logResult("patient deleted", err, "patient_id", id)
	return err
}

// CountPatients returns the number of stored patients.
func (s *Service) CountPatients(ctx context.Context) (int, error) {
	return s.store.CountPatients(ctx)
}

// GetPatient returns the patient with the given id.
func (s *Service) GetPatient(ctx context.Context, id int64) (domain.Patient, error) {
	return s.store.GetPatient(ctx, id)
}

// Examinations

// AddExamination records an examination for a patient, returning its id.
func (s *Service) AddExamination(ctx context.Context, patientID int64, e domain.Examination) (int64, error) {
	id, err := s.store.AddExamination(ctx, patientID, e)
	s.logResult("examination added", err, "patient_id", patientID, "examination_id", id)
	return id, err
}

// UpdateExamination replaces examination e.ID, recomputing BMI.
func (s *Service) UpdateExamination(ctx context.Context, e domain.Examination) error {
	err := s.store.UpdateExamination(ctx, e)
	s.logResult("examination updated", err, "examination_id", e.ID)
	return err
}

// DeleteExamination removes the examination and its attachments.
func (s *Service) DeleteExamination(ctx context.Context, id int64) error {
	err := s.store.DeleteExamination(ctx, id)
	s.logResult("examination deleted", err, "examination_id", id)
	return err
}

// GetExamination returns the examination with the given id.
func (s *Service) GetExamination(ctx context.Context, id int64) (domain.Examination, error) {
	return s.store.GetExamination(ctx, id)
}

// ListExaminations returns the patient's examinations by date.
func (s *Service) ListExaminations(ctx context.Context, patientID int64) ([]domain.Examination, error) {
	return s.store.ListExaminations(ctx, patientID)
}

// Interventions

// AddIntervention records an intervention for a patient, returning its id.
func (s *Service) AddIntervention(ctx context.Context, patientID int64, iv domain.Intervention) (int64, error) {
	id, err := s.store.AddIntervention(ctx, patientID, iv)
	s.logResult("intervention added", err, "patient_id", patientID, "intervention_id", id)
	return id, err
}

// UpdateIntervention replaces intervention iv.ID.
func (s *Service) UpdateIntervention(ctx context.Context, iv domain.Intervention) error {
	err := s.store.UpdateIntervention(ctx, iv)
	s.logResult("intervention updated", err, "intervention_id", iv.ID)
	return err
}

// DeleteIntervention removes the intervention and its attachments.
func (s *Service) DeleteIntervention(ctx context.Context, id int64) error {
	err := s.store.DeleteIntervention(ctx, id)
	s.logResult("intervention deleted", err, "intervention_id", id)
	return err
}

// GetIntervention returns the intervention with the given id.
func (s *Service) GetIntervention(ctx context.Context, id int64) (domain.Intervention, error) {
	return s.store.GetIntervention(ctx, id)
}

// ListInterventions returns the patient's interventions by date.
func (s *Service) ListInterventions(ctx context.Context, patientID int64) ([]domain.Intervention, error) {
	return s.store.ListInterventions(ctx, patientID)
}

// Attachments

// LinkAttachment copies the file at sourcePath into the attachment store
// under the given examination or intervention.
func (s *Service) LinkAttachment(ctx context.Context, kind domain.OwnerKind, ownerID int64, sourcePath, description string) (int64, error) {
	id, err := s.store.LinkAttachment(ctx, kind, ownerID, sourcePath, description)
	s.logResult("attachment linked", err, "owner", kind, "owner_id", ownerID, "attachment_id", id, "source", sourcePath)
	return id, err
}

// UnlinkAttachment removes the attachment row, then its file.
func (s *Service) UnlinkAttachment(ctx context.Context, id int64) error {
	err := s.store.UnlinkAttachment(ctx, id)
	s.logResult("attachment unlinked", err, "attachment_id", id)
	return err
}

// GetAttachment returns the attachment even when its file is missing; the
// error is then CONFLICT_OR_CORRUPTION.
func (s *Service) GetAttachment(ctx context.Context, id int64) (domain.Attachment, error) {
	a, err := s.store.GetAttachment(ctx, id)
	s.warnCorruption(err)
	return a, err
}

// ListAttachments returns every attachment of the owner. Missing files are
// reported in the error without dropping their entries.
func (s *Service) ListAttachments(ctx context.Context, kind domain.OwnerKind, ownerID int64) ([]domain.Attachment, error) {
	list, err := s.store.ListAttachments(ctx, kind, ownerID)
	s.warnCorruption(err)
	return list, err
}

// OpenAttachment returns the absolute path of the attachment's file for the
// host's default viewer.
func (s *Service) OpenAttachment(ctx context.Context, id int64) (string, error) {
	p, err := s.store.OpenAttachment(ctx, id)
	s.warnCorruption(err)
	return p, err
}

func (s *Service) warnCorruption(err error) {
	if domain.CodeOf(err) == domain.CodeCorruption {
		s.logger.Warn("attachment file missing", "error", err)
	}
}

// Queries

// SearchPatients returns a lazy, restartable sequence of matching patients.
func (s *Service) SearchPatients(ctx context.Context, c query.Criteria) iter.Seq2[domain.Patient, error] {
	return s.engine.SearchPatients(ctx, c)
}

// GetTimeline returns the patient's events ordered by date with the age at
// each event.
func (s *Service) GetTimeline(ctx context.Context, patientID int64) ([]domain.TimelineEvent, error) {
	return s.engine.GetTimeline(ctx, patientID)
}

// Maintenance

// Backup writes a dated snapshot of the database and attachments to dir.
func (s *Service) Backup(ctx context.Context, dir string) (store.BackupResult, error) {
	res, err := s.store.Backup(ctx, dir)
	s.logResult("backup", err, "dir", dir)
	return res, err
}

// OrphanFiles lists attachment files without a row.
func (s *Service) OrphanFiles(ctx context.Context) ([]string, error) {
	return s.store.OrphanFiles(ctx)
}

// Sweep deletes orphan attachment files.
func (s *Service) Sweep(ctx context.Context) ([]string, error) {
	removed, err := s.store.Sweep(ctx)
	s.logResult("orphan files swept", err, "removed", len(removed))
	return removed, err
}

// VerifyAttachments checks every attachment file against its checksum.
func (s *Service) VerifyAttachments(ctx context.Context) error {
	return s.store.VerifyAttachments(ctx)
}
