package consult

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/casainvest/renoplan/internal/domain"
	"github.com/casainvest/renoplan/internal/domain/blueprint"
	domconsult "github.com/casainvest/renoplan/internal/domain/consult"
	"github.com/casainvest/renoplan/internal/domain/geo"
	"github.com/casainvest/renoplan/internal/domain/location"
	"github.com/casainvest/renoplan/internal/metrics"
)

// Dispatch policy defaults.
const (
	DefaultMaxConcurrent  = 4
	DefaultLaunchInterval = time.Second
	DefaultEngineTimeout  = 60 * time.Second
)

// Policy bounds the dispatch fan-out of a single consultation run.
type Policy struct {
	MaxConcurrent  int           // parallel engine calls
	LaunchInterval time.Duration // pause between goroutine launches, 0 disables pacing
	EngineTimeout  time.Duration // per-candidate engine deadline
	GeoStrict      bool          // fail the request when the geo listing fails
}

func (p Policy) withDefaults() Policy {
	if p.MaxConcurrent <= 0 {
		p.MaxConcurrent = DefaultMaxConcurrent
	}
	if p.EngineTimeout <= 0 {
		p.EngineTimeout = DefaultEngineTimeout
	}
	return p
}

// Report is the outcome of one consultation run.
type Report struct {
	RunID      string
	Blueprints []blueprint.Blueprint
	Selected   int // candidates after selection
	Failed     int // dispatches that produced a synthesized error plan
}

// Service orchestrates a consultation run: select candidate locations,
// dispatch one engine analysis per candidate, rank the resulting blueprints.
type Service struct {
	catalog CatalogReader
	engine  Engine
	policy  Policy
	logger  *zap.Logger
}

// New creates a consultation service.
func New(catalog CatalogReader, engine Engine, policy Policy, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{catalog: catalog, engine: engine, policy: policy.withDefaults(), logger: logger}
}

// Consult runs one consultation. Per-candidate engine failures never fail the
// run: the failed slot carries a synthesized error plan instead. The call
// returns only after every dispatched analysis has finished.
func (s *Service) Consult(ctx context.Context, req domconsult.Requirement) (Report, error) {
	runID := uuid.NewString()
	log := s.logger.With(zap.String("run_id", runID))
	start := time.Now()

	candidates, err := s.selectCandidates(ctx, req, log)
	if err != nil {
		metrics.ConsultRunsTotal.WithLabelValues("error").Inc()
		return Report{}, err
	}
	metrics.ConsultCandidates.WithLabelValues("selected").Observe(float64(len(candidates)))

	blueprints, failed := s.dispatch(ctx, req.Brief(), candidates, log)
	metrics.ConsultCandidates.WithLabelValues("dispatched").Observe(float64(len(blueprints)))

	rankBlueprints(blueprints)

	duration := time.Since(start)
	metrics.ConsultRunsTotal.WithLabelValues("ok").Inc()
	metrics.ConsultRunDuration.Observe(duration.Seconds())
	log.Info("consultation complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("failed", failed),
		zap.Duration("duration", duration),
	)

	return Report{
		RunID:      runID,
		Blueprints: blueprints,
		Selected:   len(candidates),
		Failed:     failed,
	}, nil
}

// selectCandidates picks the locations to analyze. A plain request takes the
// whole active catalog; an anchored request takes only coordinate-bearing
// entries within the radius, hydrated to their full payloads.
func (s *Service) selectCandidates(
	ctx context.Context, req domconsult.Requirement, log *zap.Logger,
) ([]location.Location, error) {
	anchor, ok := req.Anchor()
	if !ok {
		locs, err := s.catalog.ListActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list active: %w", domain.ErrCatalogUnavailable, err)
		}
		return locs, nil
	}

	listed, err := s.catalog.ListActiveWithCoordinates(ctx)
	if err != nil {
		if s.policy.GeoStrict {
			return nil, fmt.Errorf("%w: list with coordinates: %w", domain.ErrCatalogUnavailable, err)
		}
		// Geo selection fails open: a broken coordinate listing yields an
		// empty candidate set, not a failed request.
		log.Error("geo listing failed, selecting no candidates", zap.Error(err))
		metrics.ConsultFailuresTotal.WithLabelValues("geo_listing").Inc()
		return nil, nil
	}

	var selected []location.Location
	for i := range listed {
		coord, hasCoord := listed[i].Coordinate()
		if !hasCoord {
			continue
		}
		if !geo.WithinRadiusKm(anchor.Center, anchor.RadiusKm, coord) {
			continue
		}

		full, err := s.catalog.GetByName(ctx, listed[i].Name())
		if err != nil {
			if errors.Is(err, domain.ErrLocationNotFound) {
				log.Warn("candidate vanished between listing and fetch",
					zap.String("location", listed[i].Name()))
				metrics.ConsultFailuresTotal.WithLabelValues("hydrate_miss").Inc()
				continue
			}
			return nil, fmt.Errorf("%w: get %q: %w", domain.ErrCatalogUnavailable, listed[i].Name(), err)
		}
		selected = append(selected, full)
	}
	return selected, nil
}

// dispatch fans out one engine call per candidate. Launches are paced by
// LaunchInterval and bounded by MaxConcurrent; each goroutine writes only its
// own slot of the results slice. Returns after every launched call finishes.
func (s *Service) dispatch(
	ctx context.Context, brief string, candidates []location.Location, log *zap.Logger,
) ([]blueprint.Blueprint, int) {
	results := make([]blueprint.Blueprint, len(candidates))
	if len(candidates) == 0 {
		return results, 0
	}

	var (
		wg     sync.WaitGroup
		failed atomic.Int64
		sem    = make(chan struct{}, s.policy.MaxConcurrent)
	)

	launch := func(i int, cand location.Location) {
		defer wg.Done()
		defer func() { <-sem }()

		callCtx := ctx
		if s.policy.EngineTimeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, s.policy.EngineTimeout)
			defer cancel()
		}

		bp, err := s.engine.Analyze(callCtx, brief, cand)
		if err != nil {
			log.Warn("analysis failed, substituting error plan",
				zap.String("location", cand.Name()),
				zap.Error(err),
			)
			metrics.ConsultFailuresTotal.WithLabelValues("engine").Inc()
			failed.Add(1)
			bp = blueprint.NewFailure(cand.Name(), err.Error())
		}
		results[i] = bp
	}

	launched := 0
dispatch:
	for i := range candidates {
		if i > 0 && s.policy.LaunchInterval > 0 {
			select {
			case <-ctx.Done():
				break dispatch
			case <-time.After(s.policy.LaunchInterval):
			}
		}
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go launch(i, candidates[i])
		launched = i + 1
	}
	wg.Wait()

	// Slots never launched (cancelled mid-loop) still get a well-formed plan.
	for i := launched; i < len(candidates); i++ {
		failed.Add(1)
		results[i] = blueprint.NewFailure(candidates[i].Name(), ctx.Err().Error())
	}

	return results, int(failed.Load())
}
