package models

import "fmt"

// MaxExpandInput caps the number of chunk ids accepted in one expansion request.
const MaxExpandInput = 500

// ExpandQuery is a context expansion request from the retrieval collaborator.
// Nil toggles fall back to the configured defaults.
type ExpandQuery struct {
	ChunkIDs      []string `json:"chunk_ids"`
	Neighbors     *bool    `json:"neighbors,omitempty"`
	References    *bool    `json:"references,omitempty"`
	Backlinks     *bool    `json:"backlinks,omitempty"`
	IncludeChunks bool     `json:"include_chunks,omitempty"`
}

// Validate ensures the query has ids and removes empty and duplicate ones, keeping first-seen order.
func (q *ExpandQuery) Validate() error {
	if len(q.ChunkIDs) == 0 {
		return fmt.Errorf("chunk_ids cannot be empty")
	}
	if len(q.ChunkIDs) > MaxExpandInput {
		return fmt.Errorf("too many chunk_ids: %d (max %d)", len(q.ChunkIDs), MaxExpandInput)
	}
	seen := make(map[string]struct{}, len(q.ChunkIDs))
	ids := q.ChunkIDs[:0]
	for _, id := range q.ChunkIDs {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return fmt.Errorf("chunk_ids cannot be empty")
	}
	q.ChunkIDs = ids
	return nil
}

// ExpandResponse is the enriched chunk set returned by an expansion.
type ExpandResponse struct {
	ChunkIDs   []string    `json:"chunk_ids"`
	Expansions []Expansion `json:"expansions"`
	Chunks     []*Chunk    `json:"chunks,omitempty"`
}
