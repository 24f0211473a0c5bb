package analyzer

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/osint-brain/backend/internal/investigation"
)

func TestAnalyzeDomainQuery(t *testing.T) {
	a := New()

	plan, err := a.Analyze("investigate email patterns for example.com")
	require.NoError(t, err)

	require.Len(t, plan.Targets, 1)
	require.Equal(t, investigation.Target{Value: "example.com", Kind: investigation.KindDomain}, plan.Targets[0])
	require.Equal(t, investigation.IntentEmail, plan.Intent)
	require.InDelta(t, 0.2, plan.Confidence, 0.001)
}

func TestAnalyzeUsernameQuery(t *testing.T) {
	a := New()

	plan, err := a.Analyze("investigate username john_doe across social platforms")
	require.NoError(t, err)

	require.Len(t, plan.Targets, 1)
	require.Equal(t, investigation.Target{Value: "john_doe", Kind: investigation.KindUsername}, plan.Targets[0])
	require.Equal(t, investigation.IntentUsername, plan.Intent)
	require.Equal(t, []investigation.Capability{investigation.CapUsername}, plan.RecommendedModules)
}

func TestAnalyzeEmptyQuery(t *testing.T) {
	a := New()

	_, err := a.Analyze("")
	require.ErrorIs(t, err, investigation.ErrMalformedQuery)
}

func TestAnalyzeStopWordsOnly(t *testing.T) {
	a := New()

	_, err := a.Analyze("investigate find the accounts")
	require.ErrorIs(t, err, investigation.ErrMalformedQuery)
}

func TestAnalyzeEmailClaimsItsSpan(t *testing.T) {
	a := New()

	plan, err := a.Analyze("investigate alice@example.com")
	require.NoError(t, err)

	// The domain class must not re-extract example.com out of the email.
	require.Len(t, plan.Targets, 1)
	require.Equal(t, investigation.KindEmail, plan.Targets[0].Kind)
	require.Equal(t, "alice@example.com", plan.Targets[0].Value)
	require.Equal(t, investigation.IntentEmail, plan.Intent)
}

func TestAnalyzeQuotedUsername(t *testing.T) {
	a := New()

	plan, err := a.Analyze(`find the user "neo42" on social platforms`)
	require.NoError(t, err)

	require.Len(t, plan.Targets, 1)
	require.Equal(t, investigation.Target{Value: "neo42", Kind: investigation.KindUsername}, plan.Targets[0])
}

func TestAnalyzePhone(t *testing.T) {
	a := New()

	plan, err := a.Analyze("investigate +1 (555) 123-4567")
	require.NoError(t, err)

	require.Len(t, plan.Targets, 1)
	require.Equal(t, investigation.KindPhone, plan.Targets[0].Kind)
	require.Equal(t, "+15551234567", plan.Targets[0].Value)
	require.Equal(t, investigation.IntentComprehensive, plan.Intent)
}

func TestAnalyzeHeterogeneousTargets(t *testing.T) {
	a := New()

	plan, err := a.Analyze("correlate john_doe and alice@example.com")
	require.NoError(t, err)

	require.Len(t, plan.Targets, 2)
	require.Equal(t, investigation.IntentComprehensive, plan.Intent)
	require.ElementsMatch(t, []investigation.Capability{
		investigation.CapDomain,
		investigation.CapEmail,
		investigation.CapPhone,
		investigation.CapUsername,
	}, plan.RecommendedModules)
}

func TestAnalyzeDomainIntentKeyword(t *testing.T) {
	a := New()

	plan, err := a.Analyze("whois lookup for example.com")
	require.NoError(t, err)

	require.Equal(t, investigation.IntentDomain, plan.Intent)
}

func TestAnalyzeDeduplicatesTargets(t *testing.T) {
	a := New()

	plan, err := a.Analyze("compare alice@example.com with alice@example.com")
	require.NoError(t, err)

	require.Len(t, plan.Targets, 1)
}

func TestAnalyzeEmailRecommendsUsernameModules(t *testing.T) {
	a := New()

	plan, err := a.Analyze("investigate alice@example.com")
	require.NoError(t, err)

	require.Contains(t, plan.RecommendedModules, investigation.CapEmail)
	require.Contains(t, plan.RecommendedModules, investigation.CapUsername)
}

func TestAnalyzeIsPure(t *testing.T) {
	a := New()

	first, err := a.Analyze("investigate username john_doe across social platforms")
	require.NoError(t, err)
	second, err := a.Analyze("investigate username john_doe across social platforms")
	require.NoError(t, err)

	require.Equal(t, first, second)
}
