package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/hyperjump/bunkatsu/internal/density"
	"github.com/hyperjump/bunkatsu/internal/fileid"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reg(section string, size int, lead string) models.DocumentUnit {
	return models.DocumentUnit{
		Text:          strings.Repeat("x", size),
		SectionID:     section,
		SourceLocator: "doc",
		Strategy:      models.DocumentRegulatory,
		Lead:          lead,
	}
}

// prose builds a deterministic generic document of plain sentences.
func prose(paragraphs int) string {
	words := []string{"river", "walk", "morning", "garden", "window", "quiet", "table", "letter"}
	var paras []string
	for p := 0; p < paragraphs; p++ {
		var sentences []string
		for s := 0; s < 3+p%6; s++ {
			var ws []string
			for w := 0; w < 6+(p+s)%9; w++ {
				ws = append(ws, words[(p+s+w)%len(words)])
			}
			sentences = append(sentences, "The "+strings.Join(ws, " ")+".")
		}
		paras = append(paras, strings.Join(sentences, " "))
	}
	return strings.Join(paras, "\n\n")
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{MinChunkSize: 0, MaxChunkSize: 100, BaseChunkSize: 50},
		{MinChunkSize: 200, MaxChunkSize: 100, BaseChunkSize: 150},
		{MinChunkSize: 100, MaxChunkSize: 200, BaseChunkSize: 300},
		{MinChunkSize: 100, MaxChunkSize: 200, BaseChunkSize: 150, Overlap: -1},
		{MinChunkSize: 100, MaxChunkSize: 200, BaseChunkSize: 150, MergeThreshold: 201},
	}
	for i, c := range bad {
		assert.Error(t, c.Validate(), "case %d", i)
	}
	assert.Equal(t, 300, DefaultConfig().Threshold())
	assert.Equal(t, 250, Config{MinChunkSize: 250, MergeThreshold: 100}.Threshold())
}

func TestAssemble_SizesOrdinalsAndIDs(t *testing.T) {
	cfg := DefaultConfig()
	units := segment.SplitStructural(prose(60), "file:/docs/prose.txt", segment.Limits{Target: cfg.BaseChunkSize, Max: cfg.MaxChunkSize})
	require.NotEmpty(t, units)

	chunks := NewAssembler(cfg, nil).Assemble(units, cfg.Overlap)
	require.Greater(t, len(chunks), 3)
	for i, c := range chunks {
		assert.Equal(t, i, c.Ordinal)
		assert.Equal(t, fileid.ChunkID("file:/docs/prose.txt", i), c.ID)
		assert.Equal(t, "file:/docs/prose.txt", c.SourceLocator)
		assert.Empty(t, c.SectionID)
		assert.False(t, c.HardCut)
		assert.LessOrEqual(t, c.ContentLength(), cfg.MaxChunkSize)
		if i < len(chunks)-1 {
			assert.GreaterOrEqual(t, c.ContentLength(), cfg.MinChunkSize)
		}
		assert.NotEmpty(t, c.DensityType)
	}
}

func TestAssemble_Idempotent(t *testing.T) {
	cfg := DefaultConfig()
	units := segment.SplitStructural(prose(25), "doc", segment.Limits{Target: cfg.BaseChunkSize, Max: cfg.MaxChunkSize})
	a := NewAssembler(cfg, nil)
	assert.Equal(t, a.Assemble(units, cfg.Overlap), a.Assemble(units, cfg.Overlap))
}

func TestAssemble_SmallSectionMergesForward(t *testing.T) {
	units := []models.DocumentUnit{
		reg("CS 25.571", 250, ""),
		reg("CS 25.571", 400, "\n\n"),
	}
	chunks := NewAssembler(DefaultConfig(), nil).Assemble(units, 0)
	require.Len(t, chunks, 1)
	assert.Equal(t, 652, chunks[0].ContentLength())
	assert.Equal(t, "CS 25.571", chunks[0].SectionID)
}

func TestAssemble_CrossSectionMergeKeepsEarliestSection(t *testing.T) {
	cases := []struct {
		name  string
		units []models.DocumentUnit
		want  string
	}{
		{"preamble takes following section", []models.DocumentUnit{reg("", 100, ""), reg("CS 25.571", 400, "\n\n")}, "CS 25.571"},
		{"earlier section wins", []models.DocumentUnit{reg("CS 25.571", 100, ""), reg("CS 25.573", 400, "\n\n")}, "CS 25.571"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			chunks := NewAssembler(DefaultConfig(), nil).Assemble(tc.units, 0)
			require.Len(t, chunks, 1)
			assert.Equal(t, tc.want, chunks[0].SectionID)
		})
	}
}

func TestAssemble_MergeFallbacks(t *testing.T) {
	a := NewAssembler(DefaultConfig(), nil)

	t.Run("unmergeable piece is flagged", func(t *testing.T) {
		chunks := a.Assemble([]models.DocumentUnit{reg("A", 100, ""), reg("B", 2350, "\n\n")}, 0)
		require.Len(t, chunks, 2)
		assert.True(t, chunks[0].HardCut)
		assert.False(t, chunks[1].HardCut)
	})

	t.Run("blocked forward merges backward", func(t *testing.T) {
		chunks := a.Assemble([]models.DocumentUnit{reg("A", 1000, ""), reg("A", 100, "\n\n"), reg("B", 2350, "\n\n")}, 0)
		require.Len(t, chunks, 2)
		assert.Equal(t, 1102, chunks[0].ContentLength())
		assert.Equal(t, "B", chunks[1].SectionID)
	})

	t.Run("short tail joins same section", func(t *testing.T) {
		chunks := a.Assemble([]models.DocumentUnit{reg("A", 1000, ""), reg("A", 100, "\n\n")}, 0)
		require.Len(t, chunks, 1)
	})

	t.Run("short tail of another section stays", func(t *testing.T) {
		chunks := a.Assemble([]models.DocumentUnit{reg("A", 1000, ""), reg("B", 100, "\n\n")}, 0)
		require.Len(t, chunks, 2)
		assert.Equal(t, "B", chunks[1].SectionID)
		assert.False(t, chunks[1].HardCut)
	})
}

func TestAssemble_ShortGenericParagraphMergesForward(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseChunkSize = 1000
	short := "A short note about the next part of this text."
	short += strings.Repeat(".", 50-len(short))
	require.Len(t, short, 50)

	classifier := density.NewClassifier(nil, nil, density.DefaultWeights())
	got := classifier.Classify(short)
	assert.Equal(t, models.DensitySparse, got.Category)
	assert.Equal(t, 2000, got.TargetChunkSize)

	units := []models.DocumentUnit{
		{Text: short, SourceLocator: "doc", Strategy: models.DocumentGeneric},
		{Text: prose(3), SourceLocator: "doc", Strategy: models.DocumentGeneric, Lead: "\n\n"},
	}
	chunks := NewAssembler(cfg, classifier).Assemble(units, 0)
	require.Len(t, chunks, 1)
	assert.True(t, strings.HasPrefix(chunks[0].Text, short+"\n\n"))
}

func TestAssemble_Overlap(t *testing.T) {
	cfg := DefaultConfig()
	units := segment.SplitStructural(prose(30), "doc", segment.Limits{Target: cfg.BaseChunkSize, Max: cfg.MaxChunkSize})
	a := NewAssembler(cfg, nil)
	plain := a.Assemble(units, 0)
	overlapped := a.Assemble(units, 60)
	require.Equal(t, len(plain), len(overlapped))
	require.Greater(t, len(plain), 1)

	assert.Zero(t, overlapped[0].OverlapLength)
	for i := 1; i < len(overlapped); i++ {
		c := overlapped[i]
		assert.Equal(t, plain[i].Text, c.Content(), "unique content unchanged")
		require.Positive(t, c.OverlapLength)
		tail := strings.TrimSuffix(c.Text[:c.OverlapLength], overlapSeparator)
		assert.LessOrEqual(t, len(tail), 60)
		prev := overlapped[i-1].Content()
		assert.True(t, strings.HasSuffix(prev, tail))
		// starts at a word boundary
		before := prev[len(prev)-len(tail)-1]
		assert.Equal(t, byte(' '), before, fmt.Sprintf("chunk %d overlap %q", i, tail))
	}
}

func TestOverlapTail(t *testing.T) {
	assert.Equal(t, "gamma delta", overlapTail("alpha beta gamma delta", 12))
	assert.Equal(t, "delta", overlapTail("alpha beta gamma delta", 8))
	assert.Equal(t, "", overlapTail("alphabetagamma", 5))
	assert.Equal(t, "short text", overlapTail(" short text ", 100))
	assert.Equal(t, "über", overlapTail("grün über", 5))
}

func TestAssemble_RegulatoryEndToEnd(t *testing.T) {
	cfg := Config{MinChunkSize: 10, MaxChunkSize: 2400, BaseChunkSize: 1500, MergeThreshold: 20}
	text := "[CS 25.571] Evaluation text... (a) sub-point. [CS 25.573] Related text."
	res := segment.Segment(models.DocumentInput{
		Text:          text,
		DocumentType:  models.DocumentRegulatory,
		SourceLocator: "cs25",
	}, segment.Options{Families: refcode.DefaultSet(), BaseChunkSize: cfg.BaseChunkSize, MaxChunkSize: cfg.MaxChunkSize})

	chunks := NewAssembler(cfg, nil).Assemble(res.Units, cfg.Overlap)
	require.Len(t, chunks, 2)
	assert.Equal(t, "CS 25.571", chunks[0].SectionID)
	assert.Contains(t, chunks[0].Text, "(a) sub-point.")
	assert.Equal(t, "CS 25.573", chunks[1].SectionID)
	assert.Equal(t, "[CS 25.573] Related text.", chunks[1].Text)
}

func TestAssemble_Empty(t *testing.T) {
	a := NewAssembler(DefaultConfig(), nil)
	assert.Nil(t, a.Assemble(nil, 10))
	assert.Empty(t, a.Assemble([]models.DocumentUnit{{Text: "  ", SourceLocator: "x"}}, 10))
}
