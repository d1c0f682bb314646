package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/mhan0505/student-management-system/internal/student"
)

// DefaultReferenceDate anchors age computation when none is configured.
var DefaultReferenceDate = time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)

// Treatment selects what the pipeline does with detected outliers.
type Treatment string

const (
	TreatNone   Treatment = "none"
	TreatCap    Treatment = "cap"
	TreatRemove Treatment = "remove"
)

// ParseTreatment accepts none, cap or remove (case-insensitive). Empty means none.
func ParseTreatment(s string) (Treatment, error) {
	switch t := Treatment(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return TreatNone, nil
	case TreatNone, TreatCap, TreatRemove:
		return t, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnknownTreatment)
}

// Options controls one pipeline run.
type Options struct {
	// ReferenceDate is the "today" used for ages.
	ReferenceDate time.Time
	// Multiplier scales the IQR fences.
	Multiplier float64
	// TopK rows kept per group.
	TopK int
	// GroupColumn drives both the summary and the top-K ranking.
	GroupColumn    string
	ImputeRules    []ImputeRule
	ZScoreColumns  []string
	OutlierColumns []string
	SummaryColumns []string
	Ranking        []OrderKey
	Treatment      Treatment
}

// DefaultOptions returns the conventional configuration.
func DefaultOptions() Options {
	return Options{
		ReferenceDate:  DefaultReferenceDate,
		Multiplier:     DefaultMultiplier,
		TopK:           3,
		GroupColumn:    student.ColMajor,
		ImputeRules:    DefaultImputeRules(),
		ZScoreColumns:  DefaultZScoreColumns(),
		OutlierColumns: []string{student.ColBMI, student.ColGPA},
		SummaryColumns: DefaultSummaryColumns(),
		Ranking:        DefaultRanking(),
		Treatment:      TreatNone,
	}
}

// Validate rejects option values no stage could accept.
func (o Options) Validate() error {
	if !(o.Multiplier > 0) {
		return fmt.Errorf("multiplier %v: %w", o.Multiplier, ErrInvalidMultiplier)
	}
	if o.TopK < 1 {
		return fmt.Errorf("top-k %d: %w", o.TopK, ErrInvalidK)
	}
	if _, err := ParseTreatment(string(o.Treatment)); err != nil {
		return err
	}
	return nil
}

// withDefaults fills zero-valued fields from DefaultOptions.
func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.ReferenceDate.IsZero() {
		o.ReferenceDate = def.ReferenceDate
	}
	if o.Multiplier == 0 {
		o.Multiplier = def.Multiplier
	}
	if o.TopK == 0 {
		o.TopK = def.TopK
	}
	if o.GroupColumn == "" {
		o.GroupColumn = def.GroupColumn
	}
	if len(o.ImputeRules) == 0 {
		o.ImputeRules = def.ImputeRules
	}
	if len(o.ZScoreColumns) == 0 {
		o.ZScoreColumns = def.ZScoreColumns
	}
	if len(o.OutlierColumns) == 0 {
		o.OutlierColumns = def.OutlierColumns
	}
	if len(o.SummaryColumns) == 0 {
		o.SummaryColumns = def.SummaryColumns
	}
	if len(o.Ranking) == 0 {
		o.Ranking = def.Ranking
	}
	if o.Treatment == "" {
		o.Treatment = TreatNone
	}
	return o
}
