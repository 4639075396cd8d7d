package significance

import (
	"fmt"

	"allday/domain/core"
	"allday/domain/stats"
	"allday/internal"
)

// BaseAlpha is the family-wise error rate before correction
const BaseAlpha = 0.05

// Family sizes used by the materialized comparison sets
const (
	DriverFamilySize    = 1000 // play types x positions x metrics x date ranges, approximately
	ChallengeFamilySize = 8
)

// Family is a set of comparisons sharing one Bonferroni-corrected threshold
type Family struct {
	Name string
	Size int
}

// NewFamily validates the family size
func NewFamily(name string, size int) (Family, error) {
	if size <= 0 {
		return Family{}, fmt.Errorf("%w: %s has size %d", core.ErrInvalidFamily, name, size)
	}
	return Family{Name: name, Size: size}, nil
}

// CorrectedAlpha is BaseAlpha divided by the family size
func (f Family) CorrectedAlpha() float64 {
	return BaseAlpha / float64(f.Size)
}

// Judge stamps a result with the corrected threshold, the direction of A
// relative to B under metric, and whether it cleared the threshold
func (f Family) Judge(r stats.TestResult, metric stats.ComparisonMetric) stats.TestResult {
	r.Alpha = f.CorrectedAlpha()
	r.Metric = metric
	a, b := r.Stats()
	r.Direction = stats.DirectionOf(a, b)
	r.Significant = r.Comparable() && r.PValue.Float() < r.Alpha
	return r
}

// Engine runs comparisons for one family
type Engine struct {
	family Family
	metric stats.ComparisonMetric
	logger *internal.Logger
}

// NewEngine creates an engine. An empty metric compares means.
func NewEngine(family Family, metric stats.ComparisonMetric, logger *internal.Logger) (*Engine, error) {
	if family.Size <= 0 {
		return nil, fmt.Errorf("%w: %s has size %d", core.ErrInvalidFamily, family.Name, family.Size)
	}
	if metric == "" {
		metric = stats.CompareMean
	}
	return &Engine{family: family, metric: metric, logger: logger.WithComponent("significance")}, nil
}

// Family returns the engine's family
func (e *Engine) Family() Family { return e.family }

// Compare tests a against b, paired on item id or Welch, and judges the
// result against the family's corrected alpha
func (e *Engine) Compare(a, b Sample, paired bool) (stats.TestResult, error) {
	var (
		r   stats.TestResult
		err error
	)
	if paired {
		r, err = Paired(a, b)
		if err != nil {
			return stats.TestResult{}, err
		}
	} else {
		r = Welch(a, b)
	}
	r = e.family.Judge(r, e.metric)
	if !r.Comparable() {
		e.logger.Debug("%s: no comparison possible (n=%d vs n=%d)", e.family.Name, r.NA, r.NB)
	}
	return r, nil
}
