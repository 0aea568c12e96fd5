// inference/orchestrator.go
package inference

import (
	"context"
	"log/slog"
	"time"

	"github.com/quantfx/advisor/market"
)

// Orchestrator drives one inference pass end to end: admission, lock,
// data resolution, engine invocation with fallback, classification and
// persistence. At most one pass runs at a time; concurrent triggers are
// rejected with ErrLockBusy rather than queued.
type Orchestrator struct {
	locker   *Locker
	resolver *Resolver
	locator  Locator
	fallback Fallback
	store    *Store
	log      *slog.Logger

	now func() time.Time
}

// NewOrchestrator wires the pass pipeline. The locker's TTL should cover
// the locator's engine timeout plus a grace margin.
func NewOrchestrator(locker *Locker, resolver *Resolver, locator Locator, store *Store, log *slog.Logger) *Orchestrator {
	return &Orchestrator{
		locker:   locker,
		resolver: resolver,
		locator:  locator,
		store:    store,
		log:      log,
		now:      time.Now,
	}
}

// Run executes one orchestration pass. Exactly one of (result, error) is
// non-nil, with one deliberate exception: a *PersistenceError carries the
// computed result so the caller can still notify the user even though
// durable storage failed. Engine failures never surface here; they route
// to the fallback analyzer.
func (o *Orchestrator) Run(ctx context.Context, mode Mode, trigger Trigger) (*Result, error) {
	req := NewRequest(mode, trigger)
	log := o.log.With("request_id", req.ID, "mode", mode, "trigger", trigger)

	// Admission gate: a first-run account or disabled real mode is
	// rejected before the lock is ever taken.
	if err := o.resolver.Available(ctx, mode); err != nil {
		log.Info("pass rejected before lock", "error", err)
		return nil, err
	}

	lease, err := o.locker.TryAcquire(req.ID)
	if err != nil {
		log.Info("pass rejected, lock busy", "holder", o.locker.Holder())
		return nil, err
	}
	// Released on every exit path; a hung pass is additionally covered by
	// lease expiry.
	defer o.locker.Release(lease)
	log.Debug("lock acquired", "expires_at", lease.ExpiresAt)

	snap, err := o.resolver.Resolve(ctx, mode)
	if err != nil {
		log.Warn("data resolution failed", "error", err)
		return nil, err
	}
	log.Debug("data resolved", "transactions", len(snap.Transactions), "pairs", len(snap.Rates))

	raw, origin, transcript := o.analyze(ctx, log, snap)

	res := Classify(raw, req, origin, o.now())
	log.Info("pass classified",
		"generated_by", res.GeneratedBy,
		"confidence", res.Confidence,
		"direction", res.Recommendation.Direction,
		"pair", res.Recommendation.Pair)

	location, err := o.store.Persist(res, transcript)
	if err != nil {
		log.Error("result persistence failed", "error", err)
		return nil, err
	}
	log.Info("pass persisted", "location", location)

	return res, nil
}

// analyze runs the engine when it is present and healthy, otherwise the
// fallback. The fallback cannot fail, so analyze always yields output.
func (o *Orchestrator) analyze(ctx context.Context, log *slog.Logger, snap *market.Snapshot) (*RawOutput, Origin, string) {
	engine, err := o.locator.Locate()
	if err == nil {
		var res *EngineResult
		res, err = engine.Invoke(ctx, snap)
		if err == nil {
			log.Info("engine analysis succeeded")
			return &res.Output, ByEngine, res.Transcript
		}
	}

	if IsEngineFailure(err) {
		log.Warn("engine unavailable, running fallback analysis", "error", err)
	} else {
		log.Error("engine produced unusable output, running fallback analysis", "error", err)
	}
	out := o.fallback.Analyze(snap)
	return out, ByFallback, out.Narrative
}

// Busy reports whether a pass currently holds the execution lock.
func (o *Orchestrator) Busy() bool {
	return o.locker.Holder() != ""
}
