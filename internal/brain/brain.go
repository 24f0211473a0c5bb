package brain

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/analyzer"
	"github.com/osint-brain/backend/internal/correlation"
	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/internal/metrics"
	"github.com/osint-brain/backend/internal/orchestrator"
	"github.com/osint-brain/backend/internal/report"
	"github.com/osint-brain/backend/pkg/logger"
	"github.com/osint-brain/backend/pkg/utils"
)

// ReportCache is the optional cache in front of the pipeline. A nil cache
// disables caching entirely.
type ReportCache interface {
	GetReport(ctx context.Context, queryHash string) (*investigation.Report, bool, error)
	SetReport(ctx context.Context, queryHash string, r *investigation.Report, ttl time.Duration) error
}

// Brain coordinates one investigation end to end: analyze the query into a
// plan, fan the plan out to the evidence modules, correlate the collected
// signals, and compile the report. Each call owns its working set; no state
// leaks between investigations.
type Brain struct {
	analyzer     *analyzer.Analyzer
	orchestrator *orchestrator.Orchestrator
	engine       *correlation.Engine
	cache        ReportCache
	cacheTTL     time.Duration
	log          *zap.Logger
}

func New(a *analyzer.Analyzer, o *orchestrator.Orchestrator, e *correlation.Engine) *Brain {
	return &Brain{
		analyzer:     a,
		orchestrator: o,
		engine:       e,
		log:          logger.Named("brain"),
	}
}

// WithCache enables report caching with the given TTL.
func (b *Brain) WithCache(cache ReportCache, ttl time.Duration) *Brain {
	b.cache = cache
	b.cacheTTL = ttl
	return b
}

// Investigate runs the full pipeline for one query. A report is always
// produced once a valid plan exists, even if every module fails; only an
// unintelligible query errors out.
func (b *Brain) Investigate(ctx context.Context, query string) (*investigation.Report, error) {
	start := time.Now()
	queryHash := utils.HashString(query)

	if b.cache != nil {
		cached, hit, err := b.cache.GetReport(ctx, queryHash)
		if err != nil {
			b.log.Warn("Report cache lookup failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("report").Inc()
			return cached, nil
		}
		metrics.CacheMisses.WithLabelValues("report").Inc()
	}

	plan, err := b.analyzer.Analyze(query)
	if err != nil {
		metrics.InvestigationsTotal.WithLabelValues("malformed").Inc()
		return nil, err
	}

	b.log.Info("Investigation planned",
		zap.String("query_hash", queryHash),
		zap.String("intent", string(plan.Intent)),
		zap.Int("targets", len(plan.Targets)),
		zap.Float64("plan_confidence", plan.Confidence),
	)

	signals, failures := b.orchestrator.Run(ctx, plan)
	metrics.SignalsCollected.Observe(float64(len(signals)))

	correlations := b.engine.Correlate(signals)

	rep, err := report.Compile(plan, correlations, failures)
	if err != nil {
		metrics.InvestigationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	rep.LatencyMS = int(time.Since(start).Milliseconds())

	metrics.InvestigationsTotal.WithLabelValues("ok").Inc()
	metrics.InvestigationDuration.WithLabelValues(string(plan.Intent)).Observe(time.Since(start).Seconds())

	b.log.Info("Investigation completed",
		zap.String("report_id", rep.ID),
		zap.Int("signals", len(signals)),
		zap.Int("correlations", len(correlations)),
		zap.Int("module_failures", len(failures)),
		zap.Int("latency_ms", rep.LatencyMS),
	)

	if b.cache != nil {
		if err := b.cache.SetReport(ctx, queryHash, rep, b.cacheTTL); err != nil {
			b.log.Warn("Report cache write failed", zap.Error(err))
		}
	}

	return rep, nil
}
