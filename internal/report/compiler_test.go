package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/osint-brain/backend/internal/investigation"
)

func testPlan() *investigation.Plan {
	return &investigation.Plan{
		Targets: []investigation.Target{
			{Value: "john_doe", Kind: investigation.KindUsername},
		},
		Intent:             investigation.IntentUsername,
		RecommendedModules: []investigation.Capability{investigation.CapUsername},
		Confidence:         0.2,
	}
}

func TestCompileNilPlan(t *testing.T) {
	_, err := Compile(nil, nil, nil)
	require.ErrorIs(t, err, investigation.ErrMalformedReport)
}

func TestCompileAssemblesReport(t *testing.T) {
	plan := testPlan()
	failures := []investigation.ModuleFailure{{ModuleID: "bravo", Reason: "permanent module error: down"}}

	rep, err := Compile(plan, nil, failures)
	require.NoError(t, err)

	require.NotEmpty(t, rep.ID)
	require.Same(t, plan, rep.Plan)
	require.NotNil(t, rep.Correlations)
	require.Empty(t, rep.Correlations)
	require.Equal(t, failures, rep.ModuleFailures)
	require.WithinDuration(t, time.Now().UTC(), rep.GeneratedAt, time.Minute)
}

func TestDocumentIsPlainStructure(t *testing.T) {
	rep, err := Compile(testPlan(), []investigation.CorrelationResult{
		{
			IdentityA: investigation.PlatformIdentity{
				Target:   investigation.Target{Value: "john_doe", Kind: investigation.KindUsername},
				Platform: "github",
			},
			IdentityB: investigation.PlatformIdentity{
				Target:   investigation.Target{Value: "john_doe", Kind: investigation.KindUsername},
				Platform: "twitter",
			},
			Confidence: 0.47,
			Evidence:   []investigation.Signal{},
			Decision:   investigation.DecisionInconclusive,
		},
	}, nil)
	require.NoError(t, err)

	doc, err := Document(rep)
	require.NoError(t, err)

	require.Contains(t, doc, "plan")
	require.Contains(t, doc, "correlations")
	require.Contains(t, doc, "module_failures")
	require.Contains(t, doc, "generated_at")

	correlations, ok := doc["correlations"].([]interface{})
	require.True(t, ok)
	require.Len(t, correlations, 1)

	first, ok := correlations[0].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "inconclusive", first["decision"])
	require.InDelta(t, 0.47, first["confidence"].(float64), 0.001)
}
