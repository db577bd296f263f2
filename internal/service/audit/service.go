package audit

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/madisoncarter1234/fleetv3/internal/domain/errors"
	"github.com/madisoncarter1234/fleetv3/internal/domain/fleet"
	"github.com/madisoncarter1234/fleetv3/internal/domain/values"
	"github.com/madisoncarter1234/fleetv3/internal/domain/violation"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/config"
	"github.com/madisoncarter1234/fleetv3/internal/infrastructure/telemetry"
	"github.com/madisoncarter1234/fleetv3/internal/metrics"
	"github.com/madisoncarter1234/fleetv3/internal/service/baseline"
	"github.com/madisoncarter1234/fleetv3/internal/service/consolidation"
	"github.com/madisoncarter1234/fleetv3/internal/service/detection"
	"github.com/madisoncarter1234/fleetv3/internal/service/financial"
)

// Service runs one audit: baseline build, parallel analyzer fan-out,
// consolidation, financial aggregation, deterministic ordering. It holds
// no state across runs beyond configuration and the vehicle catalog.
type Service struct {
	cfg     *config.Config
	catalog *fleet.ProfileCatalog
	logger  *slog.Logger
	tracer  *telemetry.Tracer
	metrics *metrics.Registry

	baselines    *baseline.Builder
	consolidator *consolidation.Consolidator
	calculator   *financial.Calculator
}

// NewService wires the engine from validated configuration. Configuration
// problems are the only fatal-at-start failure.
func NewService(cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	catalog, err := cfg.Catalog()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	registry, err := metrics.NewRegistry("fleetaudit")
	if err != nil {
		return nil, err
	}

	return &Service{
		cfg:          cfg,
		catalog:      catalog,
		logger:       logger,
		tracer:       telemetry.NewTracer("fleetaudit"),
		metrics:      registry,
		baselines:    baseline.NewBuilder(cfg.Engine.Pattern.MinSamples, logger),
		consolidator: consolidation.NewConsolidator(cfg.Engine.Consolidation, logger),
		calculator:   financial.NewCalculator(cfg.Engine.Financial),
	}, nil
}

type task struct {
	analyzer detection.Analyzer
	input    detection.VehicleInput
}

type taskResult struct {
	candidates []*violation.Violation
	err        error
}

// Run executes one audit over the request batch. A run either completes
// over the whole input or fails; nothing is retried internally.
func (s *Service) Run(ctx context.Context, req AuditRequest) (*Report, error) {
	start := time.Now()
	batch := req.Batch.Sorted()
	vehicles := batch.VehicleIDs()

	ctx, span := s.tracer.StartRun(ctx, len(vehicles), len(batch.Fuel), len(batch.GPS), len(batch.Jobs))
	defer span.End()

	window := req.Window
	if window.IsZero() {
		window = batch.AuditWindow()
	}

	var warnings []string
	aligned := batch.SourcesAligned()
	if !aligned {
		warnings = append(warnings,
			"fuel, GPS, and job date ranges do not overlap; cross-source checks suppressed")
		s.logger.Warn("record streams temporally misaligned, suppressing cross-source analysis")
	}

	baselines := s.baselines.BuildTable(batch)
	tasks := s.buildTasks(batch, vehicles, baselines, aligned)

	candidates, err := s.fanOut(ctx, tasks)
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, err
	}

	if len(req.Advisory) > 0 {
		advisory := detection.IntakeAdvisory(req.Advisory, s.logger)
		s.metrics.RecordCandidates(ctx, detection.AnalyzerAdvisory, len(advisory))
		candidates = append(candidates, advisory...)
	}

	_, cSpan := s.tracer.StartStage(ctx, "consolidation", len(candidates))
	incidents := s.consolidator.Consolidate(candidates)
	cSpan.End()

	_, fSpan := s.tracer.StartStage(ctx, "financial", len(incidents))
	impact, err := s.calculator.Assess(incidents, window)
	fSpan.End()
	if err != nil {
		telemetry.WithSpanError(span, err)
		return nil, errors.Wrap(err, "assessing financial impact")
	}

	violation.Sort(incidents)

	for _, v := range incidents {
		s.metrics.RecordIncident(ctx, v.EstimatedLoss.ToFloat64())
	}
	s.metrics.RecordRun(ctx, time.Since(start), len(batch.Fuel), len(batch.GPS), len(batch.Jobs))

	report := &Report{
		GeneratedAt: time.Now().UTC(),
		Window:      window,
		Violations:  incidents,
		Summary:     s.summarize(batch, incidents, impact, warnings, window),
	}
	s.logger.Info("audit run complete",
		"vehicles", len(vehicles),
		"candidates", len(candidates),
		"violations", len(incidents),
		"estimated_loss", report.Summary.TotalEstimatedLoss.String(),
		"elapsed", time.Since(start))
	return report, nil
}

// buildTasks produces one work unit per (vehicle, analyzer) pair over
// read-only snapshots.
func (s *Service) buildTasks(batch fleet.Batch, vehicles []string, baselines map[string]*baseline.Baseline, aligned bool) []task {
	e := s.cfg.Engine
	analyzers := []detection.Analyzer{
		detection.NewVolumeAnalyzer(e.Volume, e.ReferenceFuelPrice, s.logger),
		detection.NewPatternAnalyzer(e.Pattern, s.logger),
		detection.NewPriceAnalyzer(e.Price, s.logger),
		detection.NewMPGAnalyzer(e.MPG, e.ReferenceFuelPrice, s.logger),
		detection.NewTemporalAnalyzer(e.BusinessHours, e.Temporal, e.ReferenceFuelPrice, s.logger),
	}
	if aligned {
		analyzers = append(analyzers, detection.NewCrossSourceAnalyzer(e.CrossSource, s.logger))
	}

	var tasks []task
	for _, vehicleID := range vehicles {
		input := detection.VehicleInput{
			VehicleID: vehicleID,
			Profile:   s.catalog.Resolve(vehicleID),
			Baseline:  baselines[vehicleID],
			Fuel:      batch.FuelForVehicle(vehicleID),
			GPS:       batch.GPSForVehicle(vehicleID),
			Jobs:      jobsForVehicle(batch, vehicleID),
			FleetFuel: batch.Fuel,
		}
		for _, a := range analyzers {
			tasks = append(tasks, task{analyzer: a, input: input})
		}
	}
	return tasks
}

// fanOut runs the tasks on a bounded worker pool and collects candidates
// in task order, so scheduling never changes the output. The wait is the
// synchronization barrier before consolidation.
func (s *Service) fanOut(ctx context.Context, tasks []task) ([]*violation.Violation, error) {
	workers := s.cfg.Engine.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(tasks) && len(tasks) > 0 {
		workers = len(tasks)
	}

	results := make([]taskResult, len(tasks))
	indices := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				t := tasks[i]
				_, span := s.tracer.StartAnalyzer(ctx, t.analyzer.Name(), t.input.VehicleID)
				vs, err := t.analyzer.Analyze(ctx, t.input)
				telemetry.WithSpanError(span, err)
				span.End()
				results[i] = taskResult{candidates: vs, err: err}
			}
		}()
	}
	for i := range tasks {
		indices <- i
	}
	close(indices)
	wg.Wait()

	var candidates []*violation.Violation
	for i, r := range results {
		t := tasks[i]
		if r.err != nil {
			// Missing signals and thin baselines are expected skips, not
			// run failures.
			switch {
			case errors.IsType(r.err, errors.ErrorTypeMissingSignal):
				s.metrics.RecordSkip(ctx, t.analyzer.Name(), "missing_signal")
				s.logger.Debug("analyzer skipped", "analyzer", t.analyzer.Name(), "vehicle_id", t.input.VehicleID, "reason", r.err)
				continue
			case errors.IsType(r.err, errors.ErrorTypeInsufficient):
				s.metrics.RecordSkip(ctx, t.analyzer.Name(), "insufficient_baseline")
				s.logger.Debug("analyzer skipped", "analyzer", t.analyzer.Name(), "vehicle_id", t.input.VehicleID, "reason", r.err)
				continue
			default:
				return nil, errors.Wrap(r.err, "running "+t.analyzer.Name())
			}
		}
		s.metrics.RecordCandidates(ctx, t.analyzer.Name(), len(r.candidates))
		candidates = append(candidates, r.candidates...)
	}
	return candidates, nil
}

func (s *Service) summarize(batch fleet.Batch, incidents []*violation.Violation, impact *financial.Impact, warnings []string, window values.TimeWindow) Summary {
	byType := make(map[string]int)
	for _, v := range incidents {
		byType[string(v.Type)]++
	}

	return Summary{
		TotalViolations:        len(incidents),
		ViolationsByType:       byType,
		TotalEstimatedLoss:     impact.TotalLoss,
		ConfidenceWeightedLoss: impact.ConfidenceWeightedLoss,
		WeeklyProjection:       impact.WeeklyProjection,
		MonthlyProjection:      impact.MonthlyProjection,
		AnnualProjection:       impact.AnnualProjection,
		HighRiskVehicles:       impact.HighRiskVehicles,
		PerVehicle:             impact.PerVehicle,
		Warnings:               warnings,
		Insights:               buildInsights(batch, window),
		Dropped:                batch.Dropped,
	}
}

func buildInsights(batch fleet.Batch, window values.TimeWindow) FleetInsights {
	gallons := 0.0
	spend := values.ZeroUSD()
	locations := make(map[string]bool)
	for _, t := range batch.Fuel {
		gallons += t.GallonsOrZero()
		if sum, err := spend.Add(values.MustNewMoneyFromFloat(t.AmountOrZero(), "USD")); err == nil {
			spend = sum
		}
		if t.Location != "" {
			locations[t.Location] = true
		}
	}
	return FleetInsights{
		Vehicles:          len(batch.VehicleIDs()),
		FuelPurchases:     len(batch.Fuel),
		TotalGallons:      gallons,
		TotalSpend:        spend.RoundToNearestCent(),
		DistinctLocations: len(locations),
		DateRange:         window,
	}
}

// jobsForVehicle scopes jobs to a vehicle: direct assignment, or, for jobs
// without one, a driver who fueled this vehicle in the batch.
func jobsForVehicle(batch fleet.Batch, vehicleID string) []fleet.JobRecord {
	drivers := make(map[string]bool)
	for _, t := range batch.Fuel {
		if t.VehicleID == vehicleID && t.DriverName != "" {
			drivers[t.DriverName] = true
		}
	}
	var out []fleet.JobRecord
	for _, j := range batch.Jobs {
		if j.VehicleID == vehicleID || (j.VehicleID == "" && drivers[j.DriverName]) {
			out = append(out, j)
		}
	}
	return out
}
