package pipeline

import (
	"context"
	"errors"

	"github.com/nguyentantai21042004/audio-reader/internal/models"
	"golang.org/x/sync/errgroup"
)

// UnitReport lists the stages of one slot that failed during ProcessAll.
type UnitReport struct {
	Slot     string   `json:"slot"`
	Failures []string `json:"failures,omitempty"`

	errs []error
}

// OK reports whether every stage of the unit succeeded
func (u UnitReport) OK() bool { return len(u.errs) == 0 }

// Err joins the unit's failures
func (u UnitReport) Err() error { return errors.Join(u.errs...) }

func (u *UnitReport) fail(err error) {
	u.errs = append(u.errs, err)
	u.Failures = append(u.Failures, err.Error())
}

// Report is the outcome of ProcessAll.
type Report struct {
	Units     []UnitReport `json:"units"`
	Aggregate string       `json:"aggregate_error,omitempty"`

	aggregateErr error
}

// AggregateErr is the failure of the final aggregation, if any
func (r Report) AggregateErr() error { return r.aggregateErr }

// Failed reports whether any unit or the aggregation failed
func (r Report) Failed() bool {
	if r.aggregateErr != nil {
		return true
	}
	for _, u := range r.Units {
		if !u.OK() {
			return true
		}
	}
	return false
}

// ProcessAll runs every bound slot through its whole chain, slots in parallel
// up to MaxConcurrent, then the aggregate stage. Cached stages are not repeated.
// A failing unit never stops its siblings; ProcessAll itself only fails when
// the session is closed.
func (s *Session) ProcessAll(ctx context.Context) (Report, error) {
	snap, err := s.Snapshot()
	if err != nil {
		return Report{}, err
	}

	var bound []models.Slot
	for _, slot := range models.AllSlots {
		if snap.Slot(slot).Asset != nil {
			bound = append(bound, slot)
		}
	}
	if len(bound) == 0 {
		return Report{}, &StageError{Key: "process", Err: ErrNoAsset}
	}

	units := make([]UnitReport, len(bound))
	g, gctx := errgroup.WithContext(ctx)
	if s.opts.MaxConcurrent > 0 {
		g.SetLimit(s.opts.MaxConcurrent)
	}
	for i, slot := range bound {
		g.Go(func() error {
			units[i] = s.processSlot(gctx, slot)
			return nil
		})
	}
	g.Wait()

	report := Report{Units: units}
	if _, err := s.AggregateDescription(ctx); err != nil {
		report.aggregateErr = err
		report.Aggregate = err.Error()
	}

	if errors.Is(report.aggregateErr, ErrSessionClosed) {
		return report, ErrSessionClosed
	}
	return report, nil
}

func (s *Session) processSlot(ctx context.Context, slot models.Slot) UnitReport {
	unit := UnitReport{Slot: slot.Name()}

	if _, err := s.Convert(ctx, slot); err != nil {
		unit.fail(err)
		return unit
	}

	// Step 1: plain is the input of every derivation; the other views are exports
	views := []models.View{models.ViewPlain}
	if !slot.IsClip() {
		views = models.AllViews
	}
	plainOK := true
	for _, view := range views {
		if _, err := s.Transcribe(ctx, slot, view); err != nil {
			unit.fail(err)
			if view == models.ViewPlain {
				plainOK = false
				break
			}
		}
	}
	if !plainOK {
		return unit
	}

	// Step 2: derivations
	if slot.IsClip() {
		if _, err := s.DescribeClip(ctx, slot); err != nil {
			unit.fail(err)
		}
		return unit
	}
	if _, err := s.Summarize(ctx); err != nil {
		unit.fail(err)
	}
	if _, err := s.ExtractTopics(ctx); err != nil {
		unit.fail(err)
	}
	return unit
}
