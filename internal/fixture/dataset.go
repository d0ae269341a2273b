package fixture

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/gaitdoc/internal/domain"
)

// Dataset is a parsed, schema-checked import file.
type Dataset struct {
	Patients []PatientEntry `yaml:"patients"`

	// BaseDir resolves relative attachment paths.
	BaseDir string `yaml:"-"`
}

// PatientEntry is one patient with its events.
type PatientEntry struct {
	domain.Patient `yaml:",inline"`
	Examinations   []ExaminationEntry  `yaml:"examinations,omitempty"`
	Interventions  []InterventionEntry `yaml:"interventions,omitempty"`
}

// ExaminationEntry is one examination with its attachment files.
type ExaminationEntry struct {
	domain.Examination `yaml:",inline"`
	Attachments        []AttachmentEntry `yaml:"attachments,omitempty"`
}

// InterventionEntry is one intervention with its attachment files.
type InterventionEntry struct {
	domain.Intervention `yaml:",inline"`
	Attachments         []AttachmentEntry `yaml:"attachments,omitempty"`
}

// AttachmentEntry names a file to link.
type AttachmentEntry struct {
	Path        string `yaml:"path"`
	Description string `yaml:"description,omitempty"`
}

// Load reads and parses the dataset at path.
func Load(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.NewIOFailure("read dataset", path, err)
	}
	ds, err := Parse(data)
	if err != nil {
		return nil, err
	}
	ds.BaseDir = filepath.Dir(path)
	return ds, nil
}

// Parse decodes and validates a YAML dataset. Relative attachment paths are
// left unresolved; set BaseDir before importing.
func Parse(data []byte) (*Dataset, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewValidationError("dataset", []domain.FieldError{{Field: "yaml", Message: err.Error()}})
	}
	if doc == nil {
		doc = map[string]any{}
	}
	if err := validate(doc); err != nil {
		return nil, err
	}

	var ds Dataset
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&ds); err != nil && !errors.Is(err, io.EOF) {
		return nil, domain.NewValidationError("dataset", []domain.FieldError{{Field: "yaml", Message: err.Error()}})
	}
	if ds.Patients == nil {
		ds.Patients = []PatientEntry{}
	}
	return &ds, nil
}

// resolve returns p joined to the dataset's base directory unless absolute.
func (ds *Dataset) resolve(p string) string {
	if filepath.IsAbs(p) || ds.BaseDir == "" {
		return p
	}
	return filepath.Join(ds.BaseDir, p)
}

// Counts tallies what a dataset contains or what an import wrote.
type Counts struct {
	Patients      int `json:"patients" yaml:"patients"`
	Examinations  int `json:"examinations" yaml:"examinations"`
	Interventions int `json:"interventions" yaml:"interventions"`
	Attachments   int `json:"attachments" yaml:"attachments"`
}

// String renders the counts for text output.
func (c Counts) String() string {
	return fmt.Sprintf("%d patients, %d examinations, %d interventions, %d attachments",
		c.Patients, c.Examinations, c.Interventions, c.Attachments)
}

// Counts returns the number of records the dataset describes.
func (ds *Dataset) Counts() Counts {
	var c Counts
	for _, p := range ds.Patients {
		c.Patients++
		c.Examinations += len(p.Examinations)
		c.Interventions += len(p.Interventions)
		for _, e := range p.Examinations {
			c.Attachments += len(e.Attachments)
		}
		for _, iv := range p.Interventions {
			c.Attachments += len(iv.Attachments)
		}
	}
	return c
}
