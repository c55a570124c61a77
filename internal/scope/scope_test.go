package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		scope    string
		selector string
		match    bool
	}{
		{"exact primary", "source.go", "source.go", true},
		{"prefix of primary", "source.go meta.function", "source", true},
		{"primary with subtokens", "source.go meta.function", "source.go", true},
		{"different language", "source.js", "source.go", false},
		{"partial component", "source.gomod", "source.go", false},
		{"longer selector than token", "source.go", "source.go.mod", false},
		{"later token", "text.html source.js.embedded", "source.js", true},
		{"alternation second", "source.ts", "source.js | source.ts", true},
		{"alternation none", "source.rust", "source.js|source.ts", false},
		{"empty selector", "source.go", "", false},
		{"empty scope", "", "source.go", false},
		{"blank alternative", "source.go", "|", false},
		{"empty component", "source.go", "source..go", false},
		{"whitespace inside alternative", "source.go meta.function", "source.go meta", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.scope, tt.selector)
			if tt.match {
				assert.Greater(t, got, 0, "Score(%q, %q)", tt.scope, tt.selector)
			} else {
				assert.Equal(t, 0, got, "Score(%q, %q)", tt.scope, tt.selector)
			}
		})
	}
}

func TestScore_MoreComponentsWin(t *testing.T) {
	s := "source.python.django meta.function"

	p1 := Score(s, "source")
	p2 := Score(s, "source.python")
	p3 := Score(s, "source.python.django")

	assert.Greater(t, p2, p1)
	assert.Greater(t, p3, p2)
}

func TestScore_EarlierTokenWins(t *testing.T) {
	s := "source.js meta.embedded source.css"

	assert.Greater(t, Score(s, "source.js"), Score(s, "source.css"))
}

func TestScore_ComponentsDominatePosition(t *testing.T) {
	// A two-component match on the last token must still beat a
	// one-component match on the primary token.
	s := "text.html a b c d e f g source.css"

	assert.Greater(t, Score(s, "source.css"), Score(s, "text"))
}

func TestScore_AlternationTakesMaximum(t *testing.T) {
	s := "source.go"

	assert.Equal(t, Score(s, "source.go"), Score(s, "source|source.go"))
	assert.Equal(t, Score(s, "source.go"), Score(s, "source.go|source"))
}

func TestBest(t *testing.T) {
	selectors := []string{"source.protobuf", "source.go", "source"}

	idx, score := Best("source.go meta.function", selectors)
	assert.Equal(t, 1, idx)
	assert.Greater(t, score, 0)

	idx, score = Best("text.plain", selectors)
	assert.Equal(t, -1, idx)
	assert.Equal(t, 0, score)
}

func TestBest_TieGoesToFirst(t *testing.T) {
	idx, _ := Best("source.go", []string{"source.js", "source.go", "source.go"})
	assert.Equal(t, 1, idx)
}

func TestPrimary(t *testing.T) {
	assert.Equal(t, "source.go", Primary("source.go meta.function"))
	assert.Equal(t, "source.go", Primary("source.go"))
	assert.Equal(t, "", Primary(""))
	assert.Equal(t, "source.go", Primary("  source.go  "))
	assert.Equal(t, "source.go", Primary("source.go\nmeta.function"))
}

func TestIsComposite(t *testing.T) {
	assert.False(t, IsComposite("source.go"))
	assert.True(t, IsComposite("source.go meta.function"))
	assert.True(t, IsComposite("source.go\tmeta.function"))
	assert.True(t, IsComposite("source.go\nmeta.function"))
}
