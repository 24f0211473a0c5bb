package correlation

import (
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/internal/metrics"
	"github.com/osint-brain/backend/pkg/logger"
)

// Config is scoring policy, not law: weights must sum to 1.0, thresholds and
// the evidence saturation point are tunable per deployment.
type Config struct {
	LexicalWeight       float64
	TemporalWeight      float64
	CorroborationWeight float64
	LinkThreshold       float64
	DistinctThreshold   float64
	EvidenceSaturation  int
}

func DefaultConfig() Config {
	return Config{
		LexicalWeight:       0.4,
		TemporalWeight:      0.3,
		CorroborationWeight: 0.3,
		LinkThreshold:       0.75,
		DistinctThreshold:   0.25,
		EvidenceSaturation:  3,
	}
}

// Engine cross-compares behavioral fingerprints and scores how likely two
// platform identities are to belong to the same real-world entity. It is
// deterministic over the signal set: input order never affects output.
type Engine struct {
	cfg Config
	log *zap.Logger
}

func NewEngine(cfg Config) *Engine {
	if cfg.LexicalWeight+cfg.TemporalWeight+cfg.CorroborationWeight == 0 {
		cfg = DefaultConfig()
	}
	if cfg.EvidenceSaturation <= 0 {
		cfg.EvidenceSaturation = 3
	}
	return &Engine{cfg: cfg, log: logger.Named("correlation")}
}

// Correlate builds fingerprints and scores every cross-platform pair.
// Same-platform pairs are never compared: two signal groups on one platform
// for one target are trivially the same identity. An empty signal list yields
// an empty result list.
func (e *Engine) Correlate(signals []investigation.Signal) []investigation.CorrelationResult {
	results := []investigation.CorrelationResult{}
	if len(signals) == 0 {
		return results
	}

	fps, keys := BuildFingerprints(signals)

	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			a, b := fps[keys[i]], fps[keys[j]]
			if a.Identity.Platform == b.Identity.Platform {
				continue
			}
			results = append(results, e.compare(a, b))
		}
	}

	e.log.Debug("Correlation completed",
		zap.Int("fingerprints", len(keys)),
		zap.Int("results", len(results)),
	)

	return results
}

func (e *Engine) compare(a, b *Fingerprint) investigation.CorrelationResult {
	type channel struct {
		weight  float64
		score   float64
		hasData bool
	}

	channels := []channel{
		{e.cfg.LexicalWeight, lexicalSimilarity(a, b), len(a.StyleVector) > 0 && len(b.StyleVector) > 0},
		{e.cfg.TemporalWeight, temporalSimilarity(a, b), hasTemporalData(a, b)},
		// Absence of a cross-reference is itself an observation: the modules
		// ran and reported none. The channel always has data.
		{e.cfg.CorroborationWeight, corroboration(a, b), true},
	}

	// A channel with no data contributes nothing and its weight is
	// redistributed proportionally among the channels that do have data.
	var available float64
	for _, ch := range channels {
		if ch.hasData {
			available += ch.weight
		}
	}

	var raw float64
	if available > 0 {
		for _, ch := range channels {
			if ch.hasData {
				raw += (ch.weight / available) * ch.score
			}
		}
	}

	evidence := mergeEvidence(a, b)

	// Diminishing returns: one independent observation alone caps confidence
	// at a third of its raw score. Independence is counted per
	// (module, platform) source, so ten rows from one probe do not inflate
	// the scale the way corroboration from a second source does.
	scale := float64(evidenceUnits(evidence)) / float64(e.cfg.EvidenceSaturation)
	if scale > 1 {
		scale = 1
	}

	confidence := clamp01(raw * scale)
	metrics.CorrelationConfidence.Observe(confidence)

	return investigation.CorrelationResult{
		IdentityA:  a.Identity,
		IdentityB:  b.Identity,
		Confidence: confidence,
		Evidence:   evidence,
		Decision:   e.decide(confidence),
	}
}

// decide applies the fixed thresholds. Exact boundary values round toward
// inconclusive, the more conservative outcome.
func (e *Engine) decide(confidence float64) investigation.Decision {
	switch {
	case confidence > e.cfg.LinkThreshold:
		return investigation.DecisionLinked
	case confidence < e.cfg.DistinctThreshold:
		return investigation.DecisionDistinct
	default:
		return investigation.DecisionInconclusive
	}
}

// lexicalSimilarity is Jaccard overlap of style tokens, promoted to 1.0 when
// one normalized display name contains the other outright.
func lexicalSimilarity(a, b *Fingerprint) float64 {
	nameA := squash(a.displayName)
	nameB := squash(b.displayName)
	if len(nameA) >= 3 && len(nameB) >= 3 {
		if strings.Contains(nameA, nameB) || strings.Contains(nameB, nameA) {
			return 1.0
		}
	}

	if len(a.styleSet) == 0 || len(b.styleSet) == 0 {
		return 0
	}

	var intersection int
	for tok := range a.styleSet {
		if _, ok := b.styleSet[tok]; ok {
			intersection++
		}
	}
	union := len(a.styleSet) + len(b.styleSet) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// hasTemporalData counts only behavioral observations: a cross_reference must
// never switch the temporal channel on, or corroborating evidence could lower
// the pair's confidence.
func hasTemporalData(a, b *Fingerprint) bool {
	if len(a.ActiveHours) > 0 && len(b.ActiveHours) > 0 {
		return true
	}
	return a.behavioralObvs >= 2 && b.behavioralObvs >= 2
}

// temporalSimilarity prefers explicit activity windows and falls back to the
// observation-hour histograms when both sides carry enough behavioral signals.
func temporalSimilarity(a, b *Fingerprint) float64 {
	if len(a.ActiveHours) > 0 && len(b.ActiveHours) > 0 {
		return hourOverlap(a.activeSet, b.activeSet)
	}
	if a.behavioralObvs >= 2 && b.behavioralObvs >= 2 {
		return cosine(a.TemporalVector, b.TemporalVector)
	}
	return 0
}

func hourOverlap(a, b map[int]struct{}) float64 {
	var intersection int
	for h := range a {
		if _, ok := b[h]; ok {
			intersection++
		}
	}
	smaller := len(a)
	if len(b) < smaller {
		smaller = len(b)
	}
	if smaller == 0 {
		return 0
	}
	return float64(intersection) / float64(smaller)
}

func corroboration(a, b *Fingerprint) float64 {
	if a.references(b.Identity) || b.references(a.Identity) {
		return 1.0
	}
	return 0
}

// evidenceUnits counts the distinct (module, platform) sources behind the
// evidence list.
func evidenceUnits(evidence []investigation.Signal) int {
	units := map[string]struct{}{}
	for _, sig := range evidence {
		units[sig.ModuleID+"|"+sig.Platform] = struct{}{}
	}
	return len(units)
}

// mergeEvidence returns the contributing signals of both fingerprints in
// canonical order.
func mergeEvidence(a, b *Fingerprint) []investigation.Signal {
	evidence := make([]investigation.Signal, 0, len(a.Signals)+len(b.Signals))
	evidence = append(evidence, a.Signals...)
	evidence = append(evidence, b.Signals...)
	sortSignals(evidence)
	return evidence
}

func cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func squash(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return -1
	}, s)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
