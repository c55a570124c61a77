// Package scope scores selector patterns against syntax scope strings.
//
// A scope string is a space-separated list of dotted tokens describing the
// syntactic context of a position, primary token first:
//
//	source.go meta.function.go string.quoted.double.go
//
// A selector is one or more dotted patterns joined by "|". An alternative
// matches a token when its components are a component-wise prefix of the
// token's components, so "source.go" matches "source.go" and
// "source.go.mod" but not "source.gomod".
package scope

import (
	"strings"
	"unicode"
)

// ComponentWeight is the multiplier applied to the number of matched
// components. It must exceed any realistic token count so that matching
// more components always outranks matching an earlier token.
const ComponentWeight = 1024

// Score returns the specificity of selector against scope.
// Zero means the selector does not match and the candidate is ineligible.
func Score(scope, selector string) int {
	tokens := strings.Fields(scope)
	if len(tokens) == 0 {
		return 0
	}

	best := 0
	for _, alt := range strings.Split(selector, "|") {
		if s := scoreAlternative(tokens, strings.TrimSpace(alt)); s > best {
			best = s
		}
	}
	return best
}

// scoreAlternative scores a single "|"-free alternative.
func scoreAlternative(tokens []string, alt string) int {
	if alt == "" || strings.ContainsAny(alt, " \t\n") {
		return 0
	}

	parts := strings.Split(alt, ".")
	for _, p := range parts {
		if p == "" {
			return 0
		}
	}

	// Earlier tokens score higher, so the first match is the best one.
	for pos, token := range tokens {
		if hasComponentPrefix(token, parts) {
			return len(parts)*ComponentWeight + positionBonus(len(tokens)-pos)
		}
	}
	return 0
}

// positionBonus keeps the position term strictly below ComponentWeight.
func positionBonus(n int) int {
	if n >= ComponentWeight {
		return ComponentWeight - 1
	}
	return n
}

// hasComponentPrefix reports whether parts is a component-wise prefix of token.
func hasComponentPrefix(token string, parts []string) bool {
	components := strings.Split(token, ".")
	if len(parts) > len(components) {
		return false
	}
	for i, p := range parts {
		if components[i] != p {
			return false
		}
	}
	return true
}

// Primary returns the first token of scope, or "" for an empty scope.
func Primary(scope string) string {
	scope = strings.TrimSpace(scope)
	if i := strings.IndexFunc(scope, unicode.IsSpace); i >= 0 {
		return scope[:i]
	}
	return scope
}

// IsComposite reports whether scope carries more than a primary token.
// Composite scopes come from sub-selections and are never cached.
func IsComposite(scope string) bool {
	return strings.IndexFunc(scope, unicode.IsSpace) >= 0
}

// Best returns the index and score of the candidate selector with the
// strictly greatest score against scope, or -1 when none scores above zero.
// Ties resolve to the lowest index.
func Best(scope string, selectors []string) (int, int) {
	idx, best := -1, 0
	for i, sel := range selectors {
		if s := Score(scope, sel); s > best {
			idx, best = i, s
		}
	}
	return idx, best
}
