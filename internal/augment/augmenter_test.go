package augment

import (
	"testing"

	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAugmenter(cfg Config) *Augmenter {
	return New(cfg, nil, nil)
}

func TestKeywords_Ranking(t *testing.T) {
	a := newAugmenter(DefaultConfig())
	text := "Fatigue fatigue fatigue inspection of the wing. The wing panel panel. AMC1 reference."
	assert.Equal(t, []string{"fatigue", "wing", "inspection", "panel", "AMC1", "reference"}, a.Keywords(text))

	a = newAugmenter(Config{MaxKeywords: 3})
	assert.Equal(t, []string{"fatigue", "wing", "inspection"}, a.Keywords(text))
}

func TestKeywords_Filters(t *testing.T) {
	a := newAugmenter(DefaultConfig())
	got := a.Keywords("ab 2024 1.5 (a) und les the über 25.571 panel")
	assert.Equal(t, []string{"25.571", "über", "panel"}, got)

	assert.Nil(t, a.Keywords(""))
	assert.Nil(t, newAugmenter(Config{}).Keywords("fatigue"))
}

func TestKeyPhrases(t *testing.T) {
	a := newAugmenter(DefaultConfig())
	text := "The structure shall be inspected. It is blue. Wir müssen prüfen. The crew must act. Operators are required to report."
	assert.Equal(t, []string{
		"The structure shall be inspected.",
		"Wir müssen prüfen.",
		"The crew must act.",
	}, a.KeyPhrases(text))

	assert.Empty(t, a.KeyPhrases("A shallow pool. Nothing mandatory here."))
	assert.Equal(t, []string{"Le pilote doit vérifier."}, a.KeyPhrases("Le pilote doit vérifier. Le pilote doit vérifier."))
}

func TestReferences(t *testing.T) {
	a := newAugmenter(DefaultConfig())
	tests := []struct {
		name string
		text string
		own  string
		want []string
	}{
		{"own header is not a reference", "[CS 25.571] Evaluation text... (a) sub-point.", "CS 25.571", nil},
		{"explicit see", "[CS 25.571] Evaluation text, see CS 25.573. (a) sub-point.", "CS 25.571", []string{"CS 25.573"}},
		{"bare code qualified by own family", "Refer to 25.573 for details.", "AMC1 25.571", []string{"CS 25.573"}},
		{"bare code without qualifying family", "Refer to 25.573 for details.", "CS-E 510", nil},
		{"internal paragraph", "as required by paragraph (a)(1) and sub-paragraph (B)", "CS 25.571", []string{"CS 25.571(a)(1)", "CS 25.571(b)"}},
		{"duplicates collapse", "CS 25.603 and CS 25.603 again, also AMC 25.603.", "", []string{"CS 25.603", "AMC 25.603"}},
		{"generic line-start mention", "CS 25.571 applies here.", "", []string{"CS 25.571"}},
		{"contained headers skipped", "[CS 25.571] A.\n\n[CS 25.573] B.", "CS 25.571", nil},
		{"cap in reading order", "CS 25.7, CS 25.1, CS 25.2, CS 25.3, CS 25.4, CS 25.5, CS 25.6", "", []string{"CS 25.7", "CS 25.1", "CS 25.2", "CS 25.3", "CS 25.4"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.References(tt.text, tt.own)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, len(got), MaxReferences)
			assert.NotContains(t, got, tt.own)
		})
	}
}

func TestAugment_UsesUniqueContent(t *testing.T) {
	a := newAugmenter(DefaultConfig())
	overlap := "see CS 25.999 overlap text. "
	in := &models.Chunk{
		ID:            "c1",
		Text:          overlap + "Real content shall apply to the fuselage.",
		OverlapLength: len(overlap),
		SectionID:     "CS 25.571",
	}
	out := a.Augment(in)

	require.NotSame(t, in, out)
	assert.Empty(t, out.ReferencesTo)
	assert.Equal(t, []string{"Real content shall apply to the fuselage."}, out.KeyPhrases)
	assert.Contains(t, out.Keywords, "fuselage")
	assert.NotContains(t, out.Keywords, "overlap")
	assert.Nil(t, in.Keywords, "input untouched")
	assert.Equal(t, in.Text, out.Text)
}
