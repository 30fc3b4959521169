package models

// ReferenceIndexEntry is the read view of one normalized reference code in the index.
type ReferenceIndexEntry struct {
	Code string `json:"code"`
	// SectionChunks are chunks whose section_id equals Code, in source and ordinal order.
	SectionChunks []string `json:"section_chunks"`
	// ReferencingChunks are chunks whose references_to contains Code.
	ReferencingChunks []string `json:"referencing_chunks"`
}

// ExpansionReason explains why a chunk id is part of an expanded set.
type ExpansionReason string

const (
	ReasonInput     ExpansionReason = "input"
	ReasonNeighbor  ExpansionReason = "neighbor"
	ReasonReference ExpansionReason = "reference"
	ReasonBacklink  ExpansionReason = "backlink"
)

// Expansion is one entry of an expanded chunk set.
type Expansion struct {
	ChunkID string          `json:"chunk_id"`
	Reason  ExpansionReason `json:"reason"`
	// Via is the chunk id (or reference code) that pulled this chunk in; empty for inputs.
	Via string `json:"via,omitempty"`
}
