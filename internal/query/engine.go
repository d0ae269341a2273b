package query

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"log/slog"

	"github.com/roach88/gaitdoc/internal/domain"
	"github.com/roach88/gaitdoc/internal/store"
)

// Source is the read surface of the record store the engine needs.
// *store.Store implements it.
type Source interface {
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PatientHistory(ctx context.Context, patientID int64) (domain.Patient, []domain.Examination, []domain.Intervention, error)
}

// Engine executes searches and builds timelines.
type Engine struct {
	src    Source
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for compiled-query diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an engine reading from src.
func New(src Source, opts ...Option) *Engine {
	e := &Engine{src: src, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SearchPatients returns a lazy sequence of patients matching c.
//
// Rows are read from the database while the caller ranges over the
// sequence; breaking out of the loop closes them. Every range re-executes
// the query, so the sequence can be consumed more than once. An error ends
// the sequence after being yielded with a zero Patient.
func (e *Engine) SearchPatients(ctx context.Context, c Criteria) iter.Seq2[domain.Patient, error] {
	return func(yield func(domain.Patient, error) bool) {
		query, params, err := Compile(c)
		if err != nil {
			yield(domain.Patient{}, err)
			return
		}
		e.logger.Debug("search patients", "field", c.Field, "sql", query)

		rows, err := e.src.Query(ctx, query, params...)
		if err != nil {
			yield(domain.Patient{}, fmt.Errorf("search patients: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			p, err := store.ScanPatient(rows)
			if err != nil {
				yield(domain.Patient{}, err)
				return
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(domain.Patient{}, fmt.Errorf("search patients: %w", err))
		}
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq iter.Seq2[T, error]) ([]T, error) {
	out := []T{}
	for v, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// GetTimeline returns the patient's examinations and interventions as one
// age-annotated, date-ordered sequence. Fails with NOT_FOUND if the patient
// does not exist.
func (e *Engine) GetTimeline(ctx context.Context, patientID int64) ([]domain.TimelineEvent, error) {
	p, exams, interventions, err := e.src.PatientHistory(ctx, patientID)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(p, exams, interventions), nil
}
