package correlation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/osint-brain/backend/internal/investigation"
)

// Fingerprint is the per-(target, platform) aggregate the engine compares.
// It is a pure function of its signal subset: rebuilding it from the same
// signals always yields an equal value, and no hidden state survives a run.
type Fingerprint struct {
	Identity investigation.PlatformIdentity

	// StyleVector holds the normalized writing-style tokens drawn from
	// display names and bios, sorted.
	StyleVector []string

	// TemporalVector is a normalized 24-bin histogram of observation hours,
	// used when no explicit activity windows were reported.
	TemporalVector []float64

	// ActiveHours is the union of hours covered by activity_window signals.
	ActiveHours []int

	AttributeMap map[string]string
	SignalCount  int

	// Signals in canonical order; CorrelationResult evidence is drawn from here.
	Signals []investigation.Signal

	crossRefs      []string
	styleSet       map[string]struct{}
	activeSet      map[int]struct{}
	displayName    string
	behavioralObvs int
}

// BuildFingerprints groups signals by (target, platform). Groups with zero
// signals cannot exist by construction. The returned keys are sorted so every
// caller iterates fingerprints in the same order.
func BuildFingerprints(signals []investigation.Signal) (map[string]*Fingerprint, []string) {
	sorted := make([]investigation.Signal, len(signals))
	copy(sorted, signals)
	sortSignals(sorted)

	fps := make(map[string]*Fingerprint)
	for _, sig := range sorted {
		identity := investigation.PlatformIdentity{Target: sig.Target, Platform: sig.Platform}
		key := identity.Key()

		fp, ok := fps[key]
		if !ok {
			fp = &Fingerprint{
				Identity:     identity,
				AttributeMap: make(map[string]string),
				styleSet:     make(map[string]struct{}),
				activeSet:    make(map[int]struct{}),
			}
			fps[key] = fp
		}
		fp.absorb(sig)
	}

	keys := make([]string, 0, len(fps))
	for key, fp := range fps {
		fp.finalize()
		keys = append(keys, key)
	}
	sort.Strings(keys)

	return fps, keys
}

func (fp *Fingerprint) absorb(sig investigation.Signal) {
	fp.Signals = append(fp.Signals, sig)
	fp.SignalCount++
	// Signals arrive in canonical order, so the last writer per attribute is
	// deterministic.
	fp.AttributeMap[sig.Attribute] = sig.Value

	switch sig.Attribute {
	case investigation.AttrDisplayName:
		fp.displayName = sig.Value
		for _, tok := range styleTokens(sig.Value) {
			fp.styleSet[tok] = struct{}{}
		}
	case investigation.AttrBio:
		for _, tok := range styleTokens(sig.Value) {
			fp.styleSet[tok] = struct{}{}
		}
	case investigation.AttrActivityWindow:
		for _, h := range parseWindow(sig.Value) {
			fp.activeSet[h] = struct{}{}
		}
	case investigation.AttrCrossReference:
		fp.crossRefs = append(fp.crossRefs, normalize(sig.Value))
	}
}

func (fp *Fingerprint) finalize() {
	fp.StyleVector = make([]string, 0, len(fp.styleSet))
	for tok := range fp.styleSet {
		fp.StyleVector = append(fp.StyleVector, tok)
	}
	sort.Strings(fp.StyleVector)

	fp.ActiveHours = make([]int, 0, len(fp.activeSet))
	for h := range fp.activeSet {
		fp.ActiveHours = append(fp.ActiveHours, h)
	}
	sort.Ints(fp.ActiveHours)

	// Cross-references corroborate identity; they say nothing about when the
	// identity is active, so they never feed the temporal channel.
	hist := make([]float64, 24)
	for _, sig := range fp.Signals {
		if sig.Attribute == investigation.AttrCrossReference {
			continue
		}
		fp.behavioralObvs++
		hist[sig.ObservedAt.UTC().Hour()]++
	}
	var total float64
	for _, v := range hist {
		total += v
	}
	if total > 0 {
		for i := range hist {
			hist[i] /= total
		}
	}
	fp.TemporalVector = hist
}

// references reports whether this fingerprint carries an explicit
// cross-reference signal naming the other identity.
func (fp *Fingerprint) references(other investigation.PlatformIdentity) bool {
	ref := normalize(other.Ref())
	value := normalize(other.Target.Value)
	for _, cr := range fp.crossRefs {
		if cr == ref || cr == value {
			return true
		}
		if len(value) >= 3 && strings.Contains(cr, value) {
			return true
		}
	}
	return false
}

func sortSignals(signals []investigation.Signal) {
	sort.Slice(signals, func(i, j int) bool {
		a, b := signals[i], signals[j]
		if a.Target.Key() != b.Target.Key() {
			return a.Target.Key() < b.Target.Key()
		}
		if a.Platform != b.Platform {
			return a.Platform < b.Platform
		}
		if a.ModuleID != b.ModuleID {
			return a.ModuleID < b.ModuleID
		}
		if a.Attribute != b.Attribute {
			return a.Attribute < b.Attribute
		}
		if a.Value != b.Value {
			return a.Value < b.Value
		}
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.Before(b.ObservedAt)
		}
		return a.SourceConfidence < b.SourceConfidence
	})
}

func styleTokens(value string) []string {
	fields := strings.FieldsFunc(strings.ToLower(value), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) >= 2 {
			out = append(out, f)
		}
	}
	return out
}

// parseWindow expands "HH:MM-HH:MM" into the hours it covers. Windows that
// wrap past midnight are supported.
func parseWindow(value string) []int {
	parts := strings.SplitN(value, "-", 2)
	if len(parts) != 2 {
		return nil
	}
	start, ok1 := parseHour(parts[0])
	end, ok2 := parseHour(parts[1])
	if !ok1 || !ok2 {
		return nil
	}

	var hours []int
	h := start
	for {
		hours = append(hours, h)
		if h == end {
			break
		}
		h = (h + 1) % 24
	}
	return hours
}

func parseHour(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	return h, true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
