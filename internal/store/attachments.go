package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/roach88/gaitdoc/internal/domain"
)

// ownerColumn maps an owner kind to its attachments foreign key column and
// parent table.
func ownerColumn(kind domain.OwnerKind) (column, table string, err error) {
	switch kind {
	case domain.OwnerExamination:
		return "examination_id", "examinations", nil
	case domain.OwnerIntervention:
		return "intervention_id", "interventions", nil
	}
	return "", "", domain.NewInvalidInput(fmt.Sprintf("unknown owner kind %q", kind), "")
}

func ownerExists(ctx context.Context, q querier, kind domain.OwnerKind, ownerID int64) error {
	_, table, err := ownerColumn(kind)
	if err != nil {
		return err
	}
	var one int
	err = q.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ?`, ownerID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewNotFound(string(kind), ownerID)
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", kind, err)
	}
	return nil
}

// LinkAttachment copies sourcePath into the attachment store and records it
// under the owner. An empty description defaults to the original file name.
//
// The copy happens before the row is inserted. If the copy fails no row is
// written; if the insert fails the copy is removed again.
func (s *Store) LinkAttachment(ctx context.Context, kind domain.OwnerKind, ownerID int64, sourcePath, description string) (int64, error) {
	column, _, err := ownerColumn(kind)
	if err != nil {
		return 0, err
	}
	if err := ownerExists(ctx, s.db, kind, ownerID); err != nil {
		return 0, err
	}

	ref, err := s.files.Put(ctx, sourcePath, kind, ownerID)
	if err != nil {
		return 0, err
	}

	original := filepath.Base(sourcePath)
	if description = domain.CleanText(description); description == "" {
		description = original
	}

	var id int64
	err = s.withTx(ctx, "link attachment", func(tx *sql.Tx) error {
		// The owner may have been deleted while the file was copied.
		if err := ownerExists(ctx, tx, kind, ownerID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO attachments
			(`+column+`, original_name, stored_name, content_type, size, sha256, description, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			ownerID, original, ref.Name, ref.ContentType, ref.Size, ref.SHA256, description,
			s.now().UTC().Format(time.RFC3339Nano),
		)
		if err != nil {
			return fmt.Errorf("link attachment: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("link attachment: last insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		s.removeFiles("link attachment rollback", []string{ref.Name})
		return 0, err
	}
	return id, nil
}

// UnlinkAttachment deletes the attachment row, then its file.
//
// The row is gone once the transaction commits. If the file cannot be
// removed afterwards an IO_FAILURE is returned and the file is left as an
// orphan for Sweep.
func (s *Store) UnlinkAttachment(ctx context.Context, id int64) error {
	var name string
	err := s.withTx(ctx, "unlink attachment", func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT stored_name FROM attachments WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.NewNotFound("attachment", id)
		}
		if err != nil {
			return fmt.Errorf("unlink attachment: %w", err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM attachments WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("unlink attachment: %w", err)
		}
		return requireAffected(result, "attachment", id)
	})
	if err != nil {
		return err
	}

	if err := s.files.Delete(name); err != nil {
		return fmt.Errorf("unlink attachment %d: %w", id, err)
	}
	return nil
}

// GetAttachment retrieves an attachment and certifies its file exists.
// A missing file yields the attachment together with a
// CONFLICT_OR_CORRUPTION error; the row is never removed automatically.
func (s *Store) GetAttachment(ctx context.Context, id int64) (domain.Attachment, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Attachment{}, domain.NewNotFound("attachment", id)
	}
	if err != nil {
		return domain.Attachment{}, fmt.Errorf("get attachment: %w", err)
	}
	return a, s.checkPresent(a)
}

// ListAttachments returns every attachment of the owner ordered by id.
// Fails with NOT_FOUND if the owner does not exist.
//
// The full list is always returned. If any file is missing the error joins
// one CONFLICT_OR_CORRUPTION error per affected attachment.
func (s *Store) ListAttachments(ctx context.Context, kind domain.OwnerKind, ownerID int64) ([]domain.Attachment, error) {
	column, _, err := ownerColumn(kind)
	if err != nil {
		return nil, err
	}
	if err := ownerExists(ctx, s.db, kind, ownerID); err != nil {
		return nil, err
	}

	attachments, err := s.queryAttachments(ctx,
		`SELECT `+attachmentColumns+` FROM attachments WHERE `+column+` = ? ORDER BY id ASC`, ownerID)
	if err != nil {
		return nil, err
	}
	return attachments, s.checkAllPresent(attachments)
}

// AllAttachments returns every attachment row ordered by id.
func (s *Store) AllAttachments(ctx context.Context) ([]domain.Attachment, error) {
	return s.queryAttachments(ctx, `SELECT `+attachmentColumns+` FROM attachments ORDER BY id ASC`)
}

// OpenAttachment resolves the absolute path of an attachment's file for
// delegation to the host's default viewer. The file content is not read.
func (s *Store) OpenAttachment(ctx context.Context, id int64) (string, error) {
	a, err := s.GetAttachment(ctx, id)
	if err != nil {
		return "", err
	}
	return s.files.Path(a.StoredName)
}

// VerifyAttachments recomputes the checksum of every attachment file.
// Returns one joined CONFLICT_OR_CORRUPTION error per missing or altered file.
func (s *Store) VerifyAttachments(ctx context.Context) error {
	attachments, err := s.AllAttachments(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, a := range attachments {
		if err := ctx.Err(); err != nil {
			return err
		}
		ok, err := s.files.Verify(a.StoredName, a.SHA256)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			errs = append(errs, s.corruption(a, "attachment file is missing"))
		case err != nil:
			return err
		case !ok:
			errs = append(errs, s.corruption(a, "attachment file does not match its checksum"))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) queryAttachments(ctx context.Context, query string, args ...any) ([]domain.Attachment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	attachments := []domain.Attachment{}
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attachments: %w", err)
	}
	return attachments, nil
}

func (s *Store) checkPresent(a domain.Attachment) error {
	ok, err := s.files.Exists(a.StoredName)
	if err != nil {
		return err
	}
	if !ok {
		return s.corruption(a, "attachment file is missing")
	}
	return nil
}

func (s *Store) checkAllPresent(attachments []domain.Attachment) error {
	var errs []error
	for _, a := range attachments {
		if err := s.checkPresent(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Store) corruption(a domain.Attachment, message string) error {
	p, err := s.files.Path(a.StoredName)
	if err != nil {
		p = a.StoredName
	}
	return domain.NewCorruption(a.ID, p, message)
}
