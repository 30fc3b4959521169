package segment

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rejoin(units []models.DocumentUnit) string {
	var b strings.Builder
	for _, u := range units {
		b.WriteString(u.Lead)
		b.WriteString(u.Text)
	}
	return b.String()
}

func TestParseSections_BracketedHeaders(t *testing.T) {
	text := "[CS 25.571] Evaluation text... (a) sub-point. [CS 25.573] Related text."
	res := ParseSections(text, "cs25.txt", refcode.DefaultSet())

	require.False(t, res.Fallback)
	require.Len(t, res.Units, 2)
	assert.Equal(t, "CS 25.571", res.Units[0].SectionID)
	assert.Equal(t, "[CS 25.571] Evaluation text... (a) sub-point.", res.Units[0].Text)
	assert.Equal(t, "CS 25.573", res.Units[1].SectionID)
	assert.Equal(t, "[CS 25.573] Related text.", res.Units[1].Text)
	assert.Equal(t, " ", res.Units[1].Lead)
	assert.Empty(t, res.Units[0].SectionTitle)
	assert.Equal(t, text, rejoin(res.Units))
	for i, u := range res.Units {
		assert.Equal(t, i, u.Ordinal)
		assert.Equal(t, models.DocumentRegulatory, u.Strategy)
		assert.Equal(t, "cs25.txt", u.SourceLocator)
	}
}

func TestParseSections_PreambleAndTitles(t *testing.T) {
	text := "Foreword text.\n\nCS 25.571 Damage tolerance\n(a) General text here.\n\nCS 25.573 Other\nBody refers to CS 25.571 again."
	res := ParseSections(text, "doc", refcode.DefaultSet())

	require.Len(t, res.Units, 3)
	assert.Empty(t, res.Units[0].SectionID)
	assert.Equal(t, "Foreword text.", res.Units[0].Text)
	assert.Equal(t, "", res.Units[0].Lead)

	assert.Equal(t, "CS 25.571", res.Units[1].SectionID)
	assert.Equal(t, "Damage tolerance", res.Units[1].SectionTitle)
	assert.Equal(t, "\n\n", res.Units[1].Lead)

	assert.Equal(t, "CS 25.573", res.Units[2].SectionID)
	assert.Equal(t, "Other", res.Units[2].SectionTitle)
	assert.Contains(t, res.Units[2].Text, "refers to CS 25.571 again")
	assert.Equal(t, text, rejoin(res.Units))
}

func TestParseSections_NoHeaderFallsBack(t *testing.T) {
	res := ParseSections("Plain prose mentioning CS 25.571 in passing.", "doc", refcode.DefaultSet())
	assert.True(t, res.Fallback)
	require.Len(t, res.Units, 1)
	assert.Empty(t, res.Units[0].SectionID)
	require.NotEmpty(t, res.Warnings)
	assert.Equal(t, InputMalformed, res.Warnings[0].Kind)
}

func TestParseSections_AmbiguousHeader(t *testing.T) {
	set, err := refcode.NewSet([]string{refcode.FamilyStandard}, []string{`\bCS 25\b`})
	require.NoError(t, err)

	res := ParseSections("CS 25.571 Title\nBody.", "doc", set)
	require.Len(t, res.Units, 1)
	assert.Equal(t, "CS 25.571", res.Units[0].SectionID)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, PatternAmbiguous, res.Warnings[0].Kind)
}

func TestSplitStructural_HeadersListsSentences(t *testing.T) {
	text := "INTRODUCTION\nThis is the first paragraph. It has two sentences.\n\n" +
		"- item one\n- item two\n- item three\n\nClosing paragraph here."
	units := SplitStructural(text, "doc.txt", Limits{Target: 50, Max: 200})

	require.Len(t, units, 4)
	assert.Equal(t, "INTRODUCTION\nThis is the first paragraph.", units[0].Text)
	assert.Equal(t, "It has two sentences.", units[1].Text)
	assert.Equal(t, " ", units[1].Lead)
	assert.Equal(t, "- item one\n- item two\n- item three", units[2].Text)
	assert.Equal(t, "\n\n", units[2].Lead)
	assert.Equal(t, "Closing paragraph here.", units[3].Text)
	for i, u := range units {
		assert.Equal(t, i, u.Ordinal)
		assert.Empty(t, u.SectionID)
		assert.Equal(t, "doc.txt", u.SourceLocator)
		assert.Equal(t, models.DocumentGeneric, u.Strategy)
		assert.False(t, u.HardCut)
	}
	assert.Equal(t, text, rejoin(units))
}

func TestSplitStructural_PacksParagraphs(t *testing.T) {
	text := "First short paragraph.\n\nSecond short one.\n\nThird."
	units := SplitStructural(text, "doc", Limits{Target: 1000, Max: 2000})
	require.Len(t, units, 1)
	assert.Equal(t, text, units[0].Text)
}

func TestSplitStructural_ListStaysWholeUpToMax(t *testing.T) {
	text := "- " + strings.Repeat("a", 40) + "\n- " + strings.Repeat("b", 40)
	units := SplitStructural(text, "doc", Limits{Target: 50, Max: 200})
	require.Len(t, units, 1)
	assert.Equal(t, text, units[0].Text)
}

func TestSplitStructural_OversizedListSplitsBetweenItems(t *testing.T) {
	var items []string
	for i := 0; i < 5; i++ {
		items = append(items, "- "+strings.Repeat(string(rune('a'+i)), 28))
	}
	text := strings.Join(items, "\n")
	units := SplitStructural(text, "doc", Limits{Target: 70, Max: 100})

	require.Len(t, units, 3)
	for _, u := range units {
		assert.True(t, strings.HasPrefix(u.Text, "- "), u.Text)
		assert.LessOrEqual(t, len(u.Text), 100)
		assert.False(t, u.HardCut)
	}
	assert.Equal(t, text, rejoin(units))
}

func TestSplitStructural_HardCutIsRuneSafe(t *testing.T) {
	text := strings.Repeat("ü", 30)
	units := SplitStructural(text, "doc", Limits{Target: 25, Max: 100})

	require.Len(t, units, 3)
	assert.True(t, units[0].HardCut)
	assert.True(t, units[1].HardCut)
	assert.False(t, units[2].HardCut)
	for _, u := range units {
		assert.True(t, utf8.ValidString(u.Text))
		assert.LessOrEqual(t, len(u.Text), 25)
	}
	assert.Equal(t, text, rejoin(units))
}

func TestSplitStructural_Empty(t *testing.T) {
	assert.Empty(t, SplitStructural("", "doc", Limits{Target: 100, Max: 200}))
	assert.Empty(t, SplitStructural("\n\n  \n", "doc", Limits{Target: 100, Max: 200}))
}

func TestSegment_Dispatch(t *testing.T) {
	opts := Options{Families: refcode.DefaultSet(), BaseChunkSize: 1500, MaxChunkSize: 2400}

	reg := Segment(models.DocumentInput{
		Text:          "[CS 25.571] Body one.\n\n[CS 25.573] Body two.",
		DocumentType:  models.DocumentRegulatory,
		SourceLocator: "a",
	}, opts)
	assert.Equal(t, models.DocumentRegulatory, reg.Strategy)
	assert.Len(t, reg.Units, 2)
	assert.Empty(t, reg.Warnings)

	fallback := Segment(models.DocumentInput{
		Text:          "No headers in here at all.",
		DocumentType:  models.DocumentRegulatory,
		SourceLocator: "b",
	}, opts)
	assert.Equal(t, models.DocumentGeneric, fallback.Strategy)
	require.Len(t, fallback.Units, 1)
	assert.Equal(t, models.DocumentGeneric, fallback.Units[0].Strategy)
	require.NotEmpty(t, fallback.Warnings)
	assert.Equal(t, InputMalformed, fallback.Warnings[0].Kind)

	generic := Segment(models.DocumentInput{
		Text:          "[CS 25.571] is just text here.",
		DocumentType:  models.DocumentGeneric,
		SourceLocator: "c",
	}, opts)
	assert.Equal(t, models.DocumentGeneric, generic.Strategy)
	require.Len(t, generic.Units, 1)
	assert.Empty(t, generic.Units[0].SectionID)
}

func sub(marker, word string) string {
	return "(" + marker + ") " + strings.Repeat(word+" ", 7)
}

func TestResize_RegulatorySplitsAtMarkerOnlyAboveMax(t *testing.T) {
	text := strings.TrimSpace("[CS 25.571] Intro. " + sub("a", "aaaa") + sub("b", "bbbb") + sub("c", "cccc"))
	u := models.DocumentUnit{Text: text, SectionID: "CS 25.571", SectionTitle: "T", Strategy: models.DocumentRegulatory, Lead: "\n\n"}

	assert.Len(t, Resize(u, 80, Limits{Target: 80, Max: 200}), 1, "under max stays whole")

	pieces := Resize(u, 80, Limits{Target: 80, Max: 100})
	require.Len(t, pieces, 2)
	assert.True(t, strings.HasSuffix(pieces[0].Text, "aaaa"))
	assert.True(t, strings.HasPrefix(pieces[1].Text, "(b)"))
	assert.Equal(t, "\n\n", pieces[0].Lead)
	assert.Equal(t, " ", pieces[1].Lead)
	for _, p := range pieces {
		assert.Equal(t, "CS 25.571", p.SectionID)
		assert.Equal(t, "T", p.SectionTitle)
		assert.LessOrEqual(t, len(p.Text), 80)
	}
	assert.Equal(t, text, pieces[0].Text+pieces[1].Lead+pieces[1].Text)
}

func TestResize_GenericSplitsAboveTarget(t *testing.T) {
	para := strings.Repeat("word ", 9) + "end."
	text := para + "\n\n" + para + "\n\n" + para
	u := models.DocumentUnit{Text: text, Strategy: models.DocumentGeneric}

	assert.Len(t, Resize(u, 1000, Limits{Target: 1000, Max: 2000}), 1)

	pieces := Resize(u, 60, Limits{Target: 60, Max: 2000})
	require.Len(t, pieces, 3)
	for i, p := range pieces {
		assert.Equal(t, para, p.Text)
		if i > 0 {
			assert.Equal(t, "\n\n", p.Lead)
		}
	}
}
