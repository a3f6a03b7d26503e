package domain

import "strings"

// MaterialKey identifies a material for cross-document comparison.
// Two lines refer to the same material iff their keys are equal.
type MaterialKey struct {
	Name string
	Spec string
}

// punctuation stripped during normalisation. Covers both ASCII and the
// full-width forms common in OCR output of Chinese documents.
const materialPunct = "-_/\\.,;:()[]{}·，。；：（）【】「」"

// NormaliseMaterial builds the comparison key for a material line.
// Normalisation is case-fold, trim, and collapse of whitespace and
// punctuation. Matching is exact after normalisation; there is no fuzzy
// matching, trading recall for deterministic, testable behaviour.
func NormaliseMaterial(name, spec string) MaterialKey {
	return MaterialKey{
		Name: normaliseToken(name),
		Spec: normaliseToken(spec),
	}
}

func normaliseToken(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　':
			continue
		case strings.ContainsRune(materialPunct, r):
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Display renders the key for human-readable findings.
func (k MaterialKey) Display() string {
	if k.Spec == "" {
		return k.Name
	}
	return k.Name + " (" + k.Spec + ")"
}
