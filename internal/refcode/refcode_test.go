package refcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	s := DefaultSet()
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"CS 25.571", "CS 25.571", true},
		{"cs-25.571", "CS 25.571", true},
		{"CS25.1309", "CS 25.1309", true},
		{"AMC1 25.1309", "AMC1 25.1309", true},
		{"AMC 25.571", "AMC 25.571", true},
		{"AMC CS 25.571", "AMC 25.571", true},
		{"GM1 CS-25.571", "GM1 25.571", true},
		{"CS-E 510", "CS-E 510", true},
		{"CS E510", "CS-E 510", true},
		{"CS-APU 20", "CS-APU 20", true},
		{"chapter 4", "", false},
		{"CS 25.571 and CS 25.573", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := s.Normalize(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindAll_OrderAndOverlap(t *testing.T) {
	s := DefaultSet()
	text := "See AMC CS 25.571 and CS 25.573."
	all := s.FindAll(text)
	require.Len(t, all, 3)
	assert.Equal(t, "AMC 25.571", all[0].Code)
	assert.Equal(t, FamilyAcceptableMeans, all[0].Family)
	assert.Equal(t, "CS 25.571", all[1].Code)
	assert.Equal(t, "CS 25.573", all[2].Code)

	kept, dropped := s.FindNonOverlapping(text)
	require.Len(t, kept, 2)
	assert.Equal(t, "AMC 25.571", kept[0].Code)
	assert.Equal(t, "CS 25.573", kept[1].Code)
	require.Len(t, dropped, 1)
	assert.Equal(t, "CS 25.571", dropped[0].Code)
}

func TestNewSet_FamiliesAndCustom(t *testing.T) {
	s, err := NewSet([]string{"engine-specific", "bogus", "Engine-Specific"}, []string{`\bFAR\s?\d+\.\d+\b`})
	require.NoError(t, err)
	assert.Equal(t, []string{FamilyEngine, FamilyCustom}, s.Families())

	kept, _ := s.FindNonOverlapping("per far   33.14 and CS 25.571 and CS-E 510")
	require.Len(t, kept, 1)
	assert.Equal(t, "CS-E 510", kept[0].Code)

	s, err = NewSet([]string{FamilyCustom}, []string{`(?i)\bFAR\s+\d+\.\d+\b`})
	require.NoError(t, err)
	code, ok := s.Normalize("far   33.14")
	require.True(t, ok)
	assert.Equal(t, "FAR 33.14", code)

	_, err = NewSet(nil, []string{"("})
	assert.Error(t, err)
}

func TestQualifyBare(t *testing.T) {
	s := DefaultSet()
	code, ok := s.QualifyBare("AMC1 25.571", "25.573")
	require.True(t, ok)
	assert.Equal(t, "CS 25.573", code)

	_, ok = s.QualifyBare("CS-E 510", "25.573")
	assert.False(t, ok)
	_, ok = s.QualifyBare("", "25.573")
	assert.False(t, ok)
}

func TestFindAll_Empty(t *testing.T) {
	assert.Nil(t, DefaultSet().FindAll(""))
	var s *Set
	assert.Nil(t, s.FindAll("CS 25.571"))
}
