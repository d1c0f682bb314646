package analysis

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mhan0505/student-management-system/internal/dataset"
)

// TreatmentLog records what a treatment did to one column.
type TreatmentLog struct {
	Column    string    `json:"column"`
	Treatment Treatment `json:"treatment"`
	Bounds    Bounds    `json:"bounds"`
	Capped    int       `json:"capped,omitempty"`
	Removed   int       `json:"removed,omitempty"`
}

// Result is the read-only outcome of one pipeline run.
type Result struct {
	RunID      uuid.UUID        `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	Options    Options          `json:"-"`
	InputRows  int              `json:"input_rows"`
	Imputation ImputationReport `json:"imputation"`
	// Enriched holds the imputed, derived and normalised dataset after any
	// outlier treatment.
	Enriched   *dataset.Dataset `json:"enriched"`
	Outliers   []OutlierSet     `json:"outliers"`
	Treatments []TreatmentLog   `json:"treatments,omitempty"`
	Summary    Summary          `json:"summary"`
	TopK       *dataset.Dataset `json:"top_k"`
}

// OutliersFor returns the detection result for col.
func (r *Result) OutliersFor(col string) (OutlierSet, bool) {
	for _, s := range r.Outliers {
		if s.Bounds.Column == col {
			return s, true
		}
	}
	return OutlierSet{}, false
}

// Pipeline runs impute, derive, normalise, detect, treat, summarise and rank
// in that order. It holds no per-run state, so one Pipeline may serve
// independent runs concurrently.
type Pipeline struct {
	opts Options
	log  *zap.SugaredLogger
}

// NewPipeline validates opts and returns a ready pipeline. A nil logger
// disables logging.
func NewPipeline(opts Options, log *zap.SugaredLogger) (*Pipeline, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts.Treatment, _ = ParseTreatment(string(opts.Treatment))
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Pipeline{opts: opts, log: log}, nil
}

// Options returns the effective options.
func (p *Pipeline) Options() Options { return p.opts }

// Run executes every stage on a private copy of raw.
func (p *Pipeline) Run(raw *dataset.Dataset) (*Result, error) {
	res := &Result{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
		Options:   p.opts,
		InputRows: raw.Len(),
	}
	log := p.log.With("run_id", res.RunID.String())
	log.Infow("pipeline started", "rows", raw.Len(), "columns", len(raw.Columns()))

	d, imp, err := ImputeMissing(raw, p.opts.ImputeRules...)
	if err != nil {
		return nil, fmt.Errorf("impute: %w", err)
	}
	res.Imputation = imp
	for _, c := range imp {
		log.Debugw("imputed", "column", c.Column, "group_by", c.GroupBy, "missing", c.Missing, "filled", c.Filled)
	}

	if d, err = AddBMI(d); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	if d, err = AddAge(d, p.opts.ReferenceDate); err != nil {
		return nil, fmt.Errorf("derive: %w", err)
	}
	if d, err = AddZScores(d, p.opts.ZScoreColumns...); err != nil {
		return nil, fmt.Errorf("normalise: %w", err)
	}

	for _, col := range p.opts.OutlierColumns {
		set, err := DetectOutliers(d, col, p.opts.Multiplier)
		if err != nil {
			return nil, fmt.Errorf("detect: %w", err)
		}
		res.Outliers = append(res.Outliers, set)
		log.Infow("outliers detected", "column", col, "count", set.Count(),
			"lower", set.Bounds.Lower, "upper", set.Bounds.Upper)
	}

	if p.opts.Treatment != TreatNone {
		for _, col := range p.opts.OutlierColumns {
			entry := TreatmentLog{Column: col, Treatment: p.opts.Treatment}
			switch p.opts.Treatment {
			case TreatCap:
				cr, err := CapOutliers(d, col, p.opts.Multiplier)
				if err != nil {
					return nil, fmt.Errorf("cap: %w", err)
				}
				d = cr.Dataset
				entry.Bounds = cr.Bounds
				entry.Capped = cr.Below + cr.Above
				log.Infow("outliers capped", "column", col, "below", cr.Below, "above", cr.Above)
			case TreatRemove:
				rr, err := RemoveOutliers(d, col, p.opts.Multiplier)
				if err != nil {
					return nil, fmt.Errorf("remove: %w", err)
				}
				d = rr.Dataset
				entry.Bounds = rr.Bounds
				entry.Removed = rr.Removed
				log.Infow("outliers removed", "column", col, "removed", rr.Removed, "remaining", d.Len())
			}
			res.Treatments = append(res.Treatments, entry)
		}
	}
	res.Enriched = d

	if res.Summary, err = SummaryByGroup(d, p.opts.GroupColumn, p.opts.SummaryColumns...); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	if res.TopK, err = TopKPerGroup(d, p.opts.TopK, p.opts.GroupColumn, p.opts.Ranking...); err != nil {
		return nil, fmt.Errorf("top-k: %w", err)
	}
	log.Infow("pipeline finished", "rows", d.Len(), "groups", len(res.Summary.Rows),
		"elapsed", time.Since(res.StartedAt))
	return res, nil
}
