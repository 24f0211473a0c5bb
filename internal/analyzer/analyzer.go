package analyzer

import (
	"regexp"
	"strings"

	"github.com/jdkato/prose/v2"
	"go.uber.org/zap"

	"github.com/osint-brain/backend/internal/investigation"
	"github.com/osint-brain/backend/pkg/logger"
)

// Pattern classes checked in priority order. Earlier classes claim their
// spans; later classes skip anything overlapping a claimed span.
var (
	emailPattern  = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
	domainPattern = regexp.MustCompile(`(?i)\b[a-z0-9][a-z0-9-]{0,62}(?:\.[a-z0-9][a-z0-9-]{0,62})+\b`)
	phonePattern  = regexp.MustCompile(`\+?[0-9][0-9 ().-]{6,}[0-9]`)
	quotedPattern = regexp.MustCompile(`["']([A-Za-z0-9_.-]{2,64})["']`)

	usernameShape = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]{2,63}$`)
	hasLetter     = regexp.MustCompile(`[A-Za-z]`)
)

// stopWords are command verbs and investigation vocabulary that must never be
// mistaken for a bare-token target.
var stopWords = map[string]struct{}{
	"investigate": {}, "analyze": {}, "analyse": {}, "find": {}, "for": {},
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "on": {},
	"in": {}, "to": {}, "about": {}, "with": {}, "all": {}, "any": {},
	"who": {}, "what": {}, "where": {}, "is": {}, "are": {}, "this": {},
	"check": {}, "search": {}, "lookup": {}, "trace": {}, "correlate": {},
	"compare": {}, "link": {}, "identify": {}, "email": {}, "emails": {},
	"username": {}, "usernames": {}, "user": {}, "users": {}, "domain": {},
	"domains": {}, "phone": {}, "phones": {}, "number": {}, "numbers": {},
	"account": {}, "accounts": {}, "profile": {}, "profiles": {},
	"identity": {}, "identities": {}, "pattern": {}, "patterns": {},
	"platform": {}, "platforms": {}, "social": {}, "media": {},
	"across": {}, "between": {}, "related": {}, "linked": {}, "owner": {},
	"owns": {}, "address": {}, "addresses": {}, "site": {}, "sites": {},
	"online": {}, "presence": {}, "activity": {}, "whois": {}, "dns": {},
	"infrastructure": {},
}

// domainIntentWords flip a lone domain target from an email investigation to
// a domain investigation.
var domainIntentWords = []string{"whois", "dns", "infrastructure", "registrar", "hosting"}

const patternClasses = 5 // email, domain, phone, quoted username, bare token

type span struct{ start, end int }

func (s span) overlaps(o span) bool {
	return s.start < o.end && o.start < s.end
}

type Analyzer struct {
	log *zap.Logger
}

func New() *Analyzer {
	return &Analyzer{log: logger.Named("analyzer")}
}

// Analyze parses a free-text investigation request into a plan. It is a pure
// function over the input text and the fixed pattern table, and fails only
// when no targets can be extracted.
func (a *Analyzer) Analyze(text string) (*investigation.Plan, error) {
	var (
		targets []investigation.Target
		claimed []span
		seen    = map[string]struct{}{}
		classes = map[investigation.TargetKind]struct{}{}
	)

	claim := func(value string, kind investigation.TargetKind, s span) {
		claimed = append(claimed, s)
		t := investigation.Target{Value: value, Kind: kind}
		if _, dup := seen[t.Key()]; dup {
			return
		}
		seen[t.Key()] = struct{}{}
		targets = append(targets, t)
		classes[kind] = struct{}{}
	}

	unclaimed := func(s span) bool {
		for _, c := range claimed {
			if s.overlaps(c) {
				return false
			}
		}
		return true
	}

	for _, m := range emailPattern.FindAllStringIndex(text, -1) {
		claim(strings.ToLower(text[m[0]:m[1]]), investigation.KindEmail, span{m[0], m[1]})
	}

	for _, m := range domainPattern.FindAllStringIndex(text, -1) {
		s := span{m[0], m[1]}
		if unclaimed(s) && isDomainLike(text[m[0]:m[1]]) {
			claim(strings.ToLower(text[m[0]:m[1]]), investigation.KindDomain, s)
		}
	}

	for _, m := range phonePattern.FindAllStringIndex(text, -1) {
		s := span{m[0], m[1]}
		if unclaimed(s) && digitCount(text[m[0]:m[1]]) >= 7 {
			claim(normalizePhone(text[m[0]:m[1]]), investigation.KindPhone, s)
		}
	}

	for _, m := range quotedPattern.FindAllStringSubmatchIndex(text, -1) {
		s := span{m[0], m[1]}
		if unclaimed(s) {
			claim(text[m[2]:m[3]], investigation.KindUsername, s)
		}
	}

	bareTargets := a.extractBareTokens(text, &claimed, unclaimed)
	for _, t := range bareTargets {
		if _, dup := seen[t.Key()]; dup {
			continue
		}
		seen[t.Key()] = struct{}{}
		targets = append(targets, t)
		classes["bare"] = struct{}{}
	}

	if len(targets) == 0 {
		return nil, investigation.ErrMalformedQuery
	}

	intent := classifyIntent(text, targets)

	plan := &investigation.Plan{
		Targets:            targets,
		Intent:             intent,
		RecommendedModules: recommendModules(intent, targets),
		Confidence:         clamp01(float64(len(classes)) / float64(patternClasses)),
	}

	a.log.Debug("Query analyzed",
		zap.Int("targets", len(plan.Targets)),
		zap.String("intent", string(plan.Intent)),
		zap.Float64("confidence", plan.Confidence),
	)

	return plan, nil
}

// extractBareTokens tokenizes the remaining free text and keeps
// username-shaped tokens that survive stop-word filtering.
func (a *Analyzer) extractBareTokens(text string, claimed *[]span, unclaimed func(span) bool) []investigation.Target {
	var out []investigation.Target

	cursor := 0
	for _, tok := range tokenize(text) {
		idx := strings.Index(text[cursor:], tok)
		if idx < 0 {
			continue
		}
		s := span{cursor + idx, cursor + idx + len(tok)}
		cursor = s.end

		if !unclaimed(s) {
			continue
		}
		if _, stop := stopWords[strings.ToLower(tok)]; stop {
			continue
		}
		if !usernameShape.MatchString(tok) || !hasLetter.MatchString(tok) {
			continue
		}

		*claimed = append(*claimed, s)
		out = append(out, investigation.Target{Value: tok, Kind: investigation.KindUsername})
	}

	return out
}

func tokenize(text string) []string {
	doc, err := prose.NewDocument(text,
		prose.WithSegmentation(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return strings.Fields(text)
	}

	tokens := make([]string, 0, len(doc.Tokens()))
	for _, tok := range doc.Tokens() {
		tokens = append(tokens, tok.Text)
	}
	return tokens
}

// classifyIntent is a fixed priority table over the extracted target kinds.
func classifyIntent(text string, targets []investigation.Target) investigation.Intent {
	kinds := map[investigation.TargetKind]int{}
	for _, t := range targets {
		kinds[t.Kind]++
	}

	if len(kinds) > 1 {
		return investigation.IntentComprehensive
	}

	lower := strings.ToLower(text)
	if kinds[investigation.KindDomain] > 0 {
		for _, w := range domainIntentWords {
			if strings.Contains(lower, w) {
				return investigation.IntentDomain
			}
		}
		return investigation.IntentEmail
	}
	if kinds[investigation.KindEmail] > 0 {
		return investigation.IntentEmail
	}
	if kinds[investigation.KindUsername] > 0 {
		return investigation.IntentUsername
	}
	return investigation.IntentComprehensive
}

func recommendModules(intent investigation.Intent, targets []investigation.Target) []investigation.Capability {
	if intent == investigation.IntentComprehensive {
		return []investigation.Capability{
			investigation.CapDomain,
			investigation.CapEmail,
			investigation.CapPhone,
			investigation.CapUsername,
		}
	}

	seen := map[investigation.Capability]struct{}{}
	var caps []investigation.Capability
	for _, t := range targets {
		c, ok := investigation.CapabilityFor(t.Kind)
		if !ok {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		caps = append(caps, c)
	}

	// Email investigations probe username sources too: mailbox local parts
	// frequently reappear as handles.
	if intent == investigation.IntentEmail {
		if _, dup := seen[investigation.CapUsername]; !dup {
			caps = append(caps, investigation.CapUsername)
		}
	}

	return caps
}

func isDomainLike(s string) bool {
	parts := strings.Split(s, ".")
	tld := parts[len(parts)-1]
	if digitCount(tld) > 0 {
		return false
	}
	return len(tld) >= 2
}

func digitCount(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

func normalizePhone(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '+' {
			b.WriteRune(r)
		}
	}
	return b.String()
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
