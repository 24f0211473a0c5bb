package correlation

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osint-brain/backend/internal/investigation"
)

var john = investigation.Target{Value: "john_doe", Kind: investigation.KindUsername}

// crossPlatformSignals is the Scenario-C shape: one identity on two platforms
// with matching display names and identical activity windows, no explicit
// cross-reference.
func crossPlatformSignals() []investigation.Signal {
	return []investigation.Signal{
		sig("userprobe", "github", investigation.AttrDisplayName, "John Doe", john),
		sig("userprobe", "github", investigation.AttrActivityWindow, "08:00-16:00", john),
		sig("userprobe", "twitter", investigation.AttrDisplayName, "John Doe", john),
		sig("userprobe", "twitter", investigation.AttrActivityWindow, "08:00-16:00", john),
	}
}

func TestCorrelateEmptyInput(t *testing.T) {
	e := NewEngine(DefaultConfig())

	results := e.Correlate(nil)
	require.NotNil(t, results)
	require.Empty(t, results)
}

func TestCorrelateIsDeterministicUnderShuffle(t *testing.T) {
	e := NewEngine(DefaultConfig())

	signals := crossPlatformSignals()
	signals = append(signals,
		sig("xref", "github", investigation.AttrCrossReference, "twitter:john_doe", john),
		sig("emailprobe", "forum", investigation.AttrDisplayName, "jdoe", john),
	)

	baseline := e.Correlate(signals)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]investigation.Signal, len(signals))
		copy(shuffled, signals)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		require.Equal(t, baseline, e.Correlate(shuffled))
	}
}

func TestCorrelateTwoSourcesInconclusive(t *testing.T) {
	e := NewEngine(DefaultConfig())

	results := e.Correlate(crossPlatformSignals())
	require.Len(t, results, 1)

	// lexical 1.0 and temporal 1.0 weigh 0.7 together; corroboration found
	// nothing. Two independent sources scale by 2/3.
	require.InDelta(t, 0.4667, results[0].Confidence, 0.01)
	require.Equal(t, investigation.DecisionInconclusive, results[0].Decision)
}

func TestCorrelateCrossReferenceLinks(t *testing.T) {
	e := NewEngine(DefaultConfig())

	signals := append(crossPlatformSignals(),
		sig("xref", "github", investigation.AttrCrossReference, "twitter:john_doe", john),
	)

	results := e.Correlate(signals)
	require.Len(t, results, 1)
	require.InDelta(t, 1.0, results[0].Confidence, 0.001)
	require.Equal(t, investigation.DecisionLinked, results[0].Decision)
}

func TestCorrelateExtraCrossReferenceNeverLowersConfidence(t *testing.T) {
	e := NewEngine(DefaultConfig())

	base := []investigation.Signal{
		sig("userprobe", "github", investigation.AttrDisplayName, "John Doe", john),
		sig("userprobe", "twitter", investigation.AttrDisplayName, "John Doe", john),
		sig("xref", "github", investigation.AttrCrossReference, "twitter:john_doe", john),
	}

	baseline := e.Correlate(base)
	require.Len(t, baseline, 1)
	require.Equal(t, investigation.DecisionLinked, baseline[0].Decision)

	// A reverse cross-reference observed at an unrelated hour is pure
	// corroboration; it must not activate the temporal channel and drag the
	// score down.
	second := sig("xref2", "twitter", investigation.AttrCrossReference, "github:john_doe", john)
	second.ObservedAt = fpBase.Add(15 * time.Hour)

	corroborated := e.Correlate(append(base, second))
	require.Len(t, corroborated, 1)
	require.GreaterOrEqual(t, corroborated[0].Confidence, baseline[0].Confidence)
	require.Equal(t, investigation.DecisionLinked, corroborated[0].Decision)
}

func TestCorrelateMonotonicConfidence(t *testing.T) {
	e := NewEngine(DefaultConfig())

	without := e.Correlate(crossPlatformSignals())
	with := e.Correlate(append(crossPlatformSignals(),
		sig("xref", "github", investigation.AttrCrossReference, "twitter:john_doe", john),
	))

	require.GreaterOrEqual(t, with[0].Confidence, without[0].Confidence)
}

func TestCorrelateSingleSourcePerSideNeverLinks(t *testing.T) {
	e := NewEngine(DefaultConfig())

	// Perfect sub-scores on every channel, but all evidence flows from one
	// module per platform: the evidence scale caps confidence below linked.
	signals := append(crossPlatformSignals(),
		sig("userprobe", "github", investigation.AttrCrossReference, "twitter:john_doe", john),
	)

	results := e.Correlate(signals)
	require.Len(t, results, 1)
	require.InDelta(t, 2.0/3.0, results[0].Confidence, 0.001)
	require.NotEqual(t, investigation.DecisionLinked, results[0].Decision)
}

func TestCorrelateThresholdBoundaryIsInconclusive(t *testing.T) {
	// Exactly representable weights keep the arithmetic exact: perfect
	// sub-scores over two sources land confidence precisely on 2/3.
	cfg := DefaultConfig()
	cfg.LexicalWeight = 0.5
	cfg.TemporalWeight = 0.25
	cfg.CorroborationWeight = 0.25
	cfg.LinkThreshold = 2.0 / 3.0

	e := NewEngine(cfg)

	signals := append(crossPlatformSignals(),
		sig("userprobe", "github", investigation.AttrCrossReference, "twitter:john_doe", john),
	)

	results := e.Correlate(signals)
	require.Equal(t, cfg.LinkThreshold, results[0].Confidence)
	require.Equal(t, investigation.DecisionInconclusive, results[0].Decision)
}

func TestCorrelateMissingTemporalRedistributesWeight(t *testing.T) {
	e := NewEngine(DefaultConfig())

	signals := []investigation.Signal{
		sig("userprobe", "github", investigation.AttrDisplayName, "John Doe", john),
		sig("userprobe", "twitter", investigation.AttrDisplayName, "John Doe", john),
	}

	results := e.Correlate(signals)
	require.Len(t, results, 1)

	// Temporal has no data, so its 0.3 is split across lexical (0.4) and
	// corroboration (0.3): raw = (0.4/0.7)*1.0, scaled by 2/3.
	require.InDelta(t, (0.4/0.7)*(2.0/3.0), results[0].Confidence, 0.001)
}

func TestCorrelateUnrelatedIdentitiesDistinct(t *testing.T) {
	e := NewEngine(DefaultConfig())

	alice := investigation.Target{Value: "alice", Kind: investigation.KindUsername}

	signals := []investigation.Signal{
		sig("userprobe", "github", investigation.AttrDisplayName, "John Doe", john),
		sig("userprobe", "twitter", investigation.AttrDisplayName, "Completely Different", alice),
	}

	results := e.Correlate(signals)
	require.Len(t, results, 1)
	require.Equal(t, investigation.DecisionDistinct, results[0].Decision)
	require.Zero(t, results[0].Confidence)
}

func TestCorrelateSkipsSamePlatformPairs(t *testing.T) {
	e := NewEngine(DefaultConfig())

	alice := investigation.Target{Value: "alice", Kind: investigation.KindUsername}

	signals := []investigation.Signal{
		sig("userprobe", "github", investigation.AttrDisplayName, "John Doe", john),
		sig("userprobe", "github", investigation.AttrDisplayName, "Alice", alice),
	}

	require.Empty(t, e.Correlate(signals))
}

func TestCorrelateEvidenceReferencesCollectedSignals(t *testing.T) {
	e := NewEngine(DefaultConfig())

	signals := crossPlatformSignals()
	results := e.Correlate(signals)
	require.Len(t, results, 1)
	require.Len(t, results[0].Evidence, len(signals))

	for _, ev := range results[0].Evidence {
		require.Contains(t, signals, ev)
	}
}
