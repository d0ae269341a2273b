package domain

import (
	"fmt"
	"time"
)

// Patient holds identity and demographics. ID is assigned by the store and
// never changes.
type Patient struct {
	ID              int64  `json:"id" yaml:"id,omitempty"`
	Code            string `json:"code,omitempty" yaml:"code,omitempty"`
	FirstName       string `json:"first_name" yaml:"first_name"`
	LastName        string `json:"last_name" yaml:"last_name"`
	BirthDate       Date   `json:"birth_date" yaml:"birth_date"`
	Sex             string `json:"sex,omitempty" yaml:"sex,omitempty"`
	Diagnosis       string `json:"diagnosis,omitempty" yaml:"diagnosis,omitempty"`
	AssistiveDevice string `json:"assistive_device,omitempty" yaml:"assistive_device,omitempty"`
	Address         string `json:"address,omitempty" yaml:"address,omitempty"`
	ZipCode         string `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	City            string `json:"city,omitempty" yaml:"city,omitempty"`
	Country         string `json:"country,omitempty" yaml:"country,omitempty"`
	Phone           string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Mobile          string `json:"mobile,omitempty" yaml:"mobile,omitempty"`
	Email           string `json:"email,omitempty" yaml:"email,omitempty"`
}

// FullName returns "Last, First".
func (p Patient) FullName() string {
	if p.FirstName == "" {
		return p.LastName
	}
	return p.LastName + ", " + p.FirstName
}

// Examination is a dated measurement visit owned by one patient.
// BMI is derived from HeightM and WeightKg and never set by callers.
type Examination struct {
	ID              int64    `json:"id" yaml:"id,omitempty"`
	PatientID       int64    `json:"patient_id" yaml:"patient_id,omitempty"`
	Type            string   `json:"type,omitempty" yaml:"type,omitempty"`
	Date            Date     `json:"date" yaml:"date"`
	HeightM         *float64 `json:"height_m,omitempty" yaml:"height_m,omitempty"`
	WeightKg        *float64 `json:"weight_kg,omitempty" yaml:"weight_kg,omitempty"`
	BMI             *float64 `json:"bmi,omitempty" yaml:"-"`
	AssistiveDevice string   `json:"assistive_device,omitempty" yaml:"assistive_device,omitempty"`
	Examiner        string   `json:"examiner,omitempty" yaml:"examiner,omitempty"`
	Notes           string   `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// Intervention is a dated treatment owned by one patient.
type Intervention struct {
	ID        int64  `json:"id" yaml:"id,omitempty"`
	PatientID int64  `json:"patient_id" yaml:"patient_id,omitempty"`
	Type      string `json:"type,omitempty" yaml:"type,omitempty"`
	Date      Date   `json:"date" yaml:"date"`
	Operator  string `json:"operator,omitempty" yaml:"operator,omitempty"`
	Notes     string `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// OwnerKind discriminates which event owns an attachment.
type OwnerKind string

const (
	OwnerExamination  OwnerKind = "examination"
	OwnerIntervention OwnerKind = "intervention"
)

// ParseOwnerKind accepts "examination"/"exam" and "intervention".
func ParseOwnerKind(s string) (OwnerKind, error) {
	switch s {
	case "examination", "exam":
		return OwnerExamination, nil
	case "intervention":
		return OwnerIntervention, nil
	}
	return "", fmt.Errorf("unknown owner kind %q", s)
}

// Valid reports whether k is one of the two owner kinds.
func (k OwnerKind) Valid() bool {
	return k == OwnerExamination || k == OwnerIntervention
}

// Attachment references a file held by the attachment store. StoredName is
// relative to the attachment root.
type Attachment struct {
	ID           int64     `json:"id"`
	OwnerKind    OwnerKind `json:"owner_kind"`
	OwnerID      int64     `json:"owner_id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	ContentType  string    `json:"content_type"`
	Size         int64     `json:"size"`
	SHA256       string    `json:"sha256"`
	Description  string    `json:"description,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventKind tags a timeline entry.
type EventKind string

const (
	EventExamination  EventKind = "examination"
	EventIntervention EventKind = "intervention"
)

// Rank orders kinds on equal dates: examinations first.
func (k EventKind) Rank() int {
	if k == EventExamination {
		return 0
	}
	return 1
}

// TimelineEvent is a derived, never-persisted view of one examination or
// intervention. Exactly one of Examination and Intervention is set, matching
// Kind.
type TimelineEvent struct {
	Date         Date          `json:"date"`
	AgeYears     int           `json:"age_years"`
	Kind         EventKind     `json:"kind"`
	RecordID     int64         `json:"record_id"`
	Type         string        `json:"type,omitempty"`
	Person       string        `json:"person,omitempty"`
	NotesPreview string        `json:"notes_preview,omitempty"`
	Examination  *Examination  `json:"examination,omitempty"`
	Intervention *Intervention `json:"intervention,omitempty"`
}
