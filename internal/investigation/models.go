package investigation

import "time"

type TargetKind string

const (
	KindUsername TargetKind = "username"
	KindEmail    TargetKind = "email"
	KindDomain   TargetKind = "domain"
	KindPhone    TargetKind = "phone"
	KindUnknown  TargetKind = "unknown"
)

// Target is a typed identifier under investigation. Immutable once created.
type Target struct {
	Value string     `json:"value"`
	Kind  TargetKind `json:"kind"`
}

func (t Target) Key() string {
	return string(t.Kind) + ":" + t.Value
}

type Intent string

const (
	IntentUsername      Intent = "username_investigation"
	IntentEmail         Intent = "email_investigation"
	IntentDomain        Intent = "domain_investigation"
	IntentComprehensive Intent = "comprehensive"
)

type Capability string

const (
	CapUsername Capability = "username"
	CapEmail    Capability = "email"
	CapDomain   Capability = "domain"
	CapPhone    Capability = "phone"
)

// CapabilityFor maps a target kind to the module capability that can probe it.
func CapabilityFor(kind TargetKind) (Capability, bool) {
	switch kind {
	case KindUsername:
		return CapUsername, true
	case KindEmail:
		return CapEmail, true
	case KindDomain:
		return CapDomain, true
	case KindPhone:
		return CapPhone, true
	default:
		return "", false
	}
}

// Plan is created once per query and never mutated; re-planning builds a new one.
type Plan struct {
	Targets            []Target     `json:"targets"`
	Intent             Intent       `json:"intent"`
	RecommendedModules []Capability `json:"recommended_modules"`
	Confidence         float64      `json:"confidence"`
}

// Signal is one atomic piece of evidence emitted by exactly one module invocation.
type Signal struct {
	ModuleID         string    `json:"module_id"`
	Target           Target    `json:"target"`
	Platform         string    `json:"platform"`
	Attribute        string    `json:"attribute"`
	Value            string    `json:"value"`
	ObservedAt       time.Time `json:"observed_at"`
	SourceConfidence float64   `json:"source_confidence"`
}

// Attributes with meaning to the correlation engine. Anything else flows into
// the fingerprint attribute map untouched.
const (
	AttrDisplayName    = "display_name"
	AttrBio            = "bio"
	AttrActivityWindow = "activity_window"
	AttrCrossReference = "cross_reference"
)

// PlatformIdentity names one candidate identity: a target as seen on one platform.
type PlatformIdentity struct {
	Target   Target `json:"target"`
	Platform string `json:"platform"`
}

func (p PlatformIdentity) Key() string {
	return p.Platform + "|" + p.Target.Key()
}

// Ref is the "platform:value" form used by cross_reference signal values.
func (p PlatformIdentity) Ref() string {
	return p.Platform + ":" + p.Target.Value
}

type Decision string

const (
	DecisionLinked       Decision = "linked"
	DecisionInconclusive Decision = "inconclusive"
	DecisionDistinct     Decision = "distinct"
)

// CorrelationResult is a confidence-scored claim that two platform identities
// belong to the same real-world entity. Immutable for a given signal snapshot.
type CorrelationResult struct {
	IdentityA  PlatformIdentity `json:"identity_a"`
	IdentityB  PlatformIdentity `json:"identity_b"`
	Confidence float64          `json:"confidence"`
	Evidence   []Signal         `json:"evidence"`
	Decision   Decision         `json:"decision"`
}

type ModuleFailure struct {
	ModuleID string `json:"module_id"`
	Reason   string `json:"reason"`
}

// Report is the terminal output of one investigation. Never mutated; a new
// investigation produces a new report.
type Report struct {
	ID             string              `json:"id"`
	Plan           *Plan               `json:"plan"`
	Correlations   []CorrelationResult `json:"correlations"`
	ModuleFailures []ModuleFailure     `json:"module_failures"`
	GeneratedAt    time.Time           `json:"generated_at"`
	LatencyMS      int                 `json:"latency_ms"`
}
