// internal/models/explanation.go
package models

// Explanation is an immutable set of positive reasons, machine-readable
// codes and trade-offs. Every method returns a new value.
type Explanation struct {
	reasons   []string
	codes     []string
	tradeOffs []string
}

// Because returns an explanation with one reason and its code.
func Because(reason, code string) Explanation {
	return Explanation{reasons: []string{reason}, codes: []string{code}}
}

// TradeOff returns an explanation with a single negative justification.
func TradeOff(text string) Explanation {
	return Explanation{tradeOffs: []string{text}}
}

// NewExplanation copies the given slices.
func NewExplanation(reasons, codes, tradeOffs []string) Explanation {
	return Explanation{}.Merge(Explanation{reasons: reasons, codes: codes, tradeOffs: tradeOffs})
}

// Merge returns the ordered, deduplicated union of e and others.
func (e Explanation) Merge(others ...Explanation) Explanation {
	all := append([]Explanation{e}, others...)
	var out Explanation
	for _, x := range all {
		out.reasons = appendUnique(out.reasons, x.reasons)
		out.codes = appendUnique(out.codes, x.codes)
		out.tradeOffs = appendUnique(out.tradeOffs, x.tradeOffs)
	}
	return out
}

func (e Explanation) Reasons() []string   { return copyOrEmpty(e.reasons) }
func (e Explanation) Codes() []string     { return copyOrEmpty(e.codes) }
func (e Explanation) TradeOffs() []string { return copyOrEmpty(e.tradeOffs) }

func (e Explanation) IsEmpty() bool {
	return len(e.reasons) == 0 && len(e.codes) == 0 && len(e.tradeOffs) == 0
}

func appendUnique(dst, src []string) []string {
	for _, s := range src {
		if s == "" || contains(dst, s) {
			continue
		}
		dst = append(dst, s)
	}
	return dst
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func copyOrEmpty(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
