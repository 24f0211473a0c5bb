package report

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/osint-brain/backend/internal/investigation"
)

// Compile assembles the terminal investigation report. Pure assembly: no new
// computation happens here. It fails only when the plan precondition is
// violated, which is a programming error upstream, not a runtime condition.
func Compile(plan *investigation.Plan, correlations []investigation.CorrelationResult, failures []investigation.ModuleFailure) (*investigation.Report, error) {
	if plan == nil {
		return nil, investigation.ErrMalformedReport
	}

	if correlations == nil {
		correlations = []investigation.CorrelationResult{}
	}
	if failures == nil {
		failures = []investigation.ModuleFailure{}
	}

	return &investigation.Report{
		ID:             uuid.New().String(),
		Plan:           plan,
		Correlations:   correlations,
		ModuleFailures: failures,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// Document renders a report as nested maps and lists of primitives, suitable
// for logging or transport without exposing any opaque types.
func Document(r *investigation.Report) (map[string]interface{}, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to rebuild report document: %w", err)
	}
	return doc, nil
}
