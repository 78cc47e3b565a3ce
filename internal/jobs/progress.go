package jobs

import (
	"context"
	"math"
)

// Step weights of a federation run. They add up to 100.
const (
	weightAck       = 0
	weightRetrieve  = 10
	weightDelete    = 10
	weightCreate    = 10
	weightMapping   = 10
	weightProcess   = 30
	weightInsert    = 25
	weightFinalize  = 5
	weightTotal     = weightAck + weightRetrieve + weightDelete + weightCreate + weightMapping + weightProcess + weightInsert + weightFinalize
	progressCeiling = 100
)

type progressReporter func(ctx context.Context, progress int, info string) error

// progressTracker accumulates step weights and reports a monotonic, clamped
// percentage.
type progressTracker struct {
	completed float64
	reported  int
	report    progressReporter
}

func newProgressTracker(report progressReporter) *progressTracker {
	return &progressTracker{report: report}
}

// advance adds weight and reports the new percentage.
func (p *progressTracker) advance(ctx context.Context, weight float64, info string) error {
	p.completed += weight
	return p.reportAt(ctx, p.completed, info)
}

func (p *progressTracker) reportAt(ctx context.Context, completed float64, info string) error {
	progress := int(math.Round(completed * progressCeiling / weightTotal))
	if progress > progressCeiling {
		progress = progressCeiling
	}
	if progress < p.reported {
		progress = p.reported
	}
	p.reported = progress
	if p.report == nil {
		return nil
	}
	return p.report(ctx, progress, info)
}
