package domain

import (
	"math"
	"strings"
	"unicode/utf8"
)

// ComputeBMI returns weight / height² rounded to two decimals, or nil unless
// both inputs are present, finite and positive.
func ComputeBMI(heightM, weightKg *float64) *float64 {
	if heightM == nil || weightKg == nil || !positiveFinite(*heightM) || !positiveFinite(*weightKg) {
		return nil
	}
	bmi := math.Round(*weightKg/(*heightM**heightM)*100) / 100
	if math.IsInf(bmi, 0) || math.IsNaN(bmi) {
		return nil
	}
	return &bmi
}

// positiveFinite rejects NaN and ±Inf along with values <= 0. NaN would be
// stored as NULL by SQLite and slip past the CHECK constraints.
func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}

// WithBMI returns e with BMI recomputed from its current inputs.
func (e Examination) WithBMI() Examination {
	e.BMI = ComputeBMI(e.HeightM, e.WeightKg)
	return e
}

const previewLimit = 50

// NotesPreview returns the first line of notes cut to 50 runes, with "..."
// appended when anything was cut.
func NotesPreview(notes string) string {
	first, _, multiline := strings.Cut(notes, "\n")
	first = strings.TrimRight(first, "\r")
	if utf8.RuneCountInString(first) <= previewLimit {
		if multiline {
			return first + "..."
		}
		return first
	}
	runes := []rune(first)
	return string(runes[:previewLimit]) + "..."
}
