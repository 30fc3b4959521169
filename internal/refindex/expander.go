package refindex

import "github.com/hyperjump/bunkatsu/internal/models"

// ExpandOptions select the expansion passes.
type ExpandOptions struct {
	Neighbors  bool
	References bool
	Backlinks  bool
}

// DefaultExpandOptions enables neighbor and reference expansion.
func DefaultExpandOptions() ExpandOptions {
	return ExpandOptions{Neighbors: true, References: true}
}

// Expander enriches retrieved chunk sets. It only reads the index.
type Expander struct {
	lookup Lookup
	opts   ExpandOptions
}

// NewExpander returns an expander over lookup with default pass selection opts.
func NewExpander(lookup Lookup, opts ExpandOptions) *Expander {
	return &Expander{lookup: lookup, opts: opts}
}

// Options returns the default pass selection.
func (e *Expander) Options() ExpandOptions {
	return e.opts
}

// Expand returns the enriched id set using the default passes.
func (e *Expander) Expand(ids []string) []string {
	return IDs(e.ExpandWith(ids, e.opts))
}

// ExpandWith runs the passes in order: the known input ids, then positional neighbors
// (ordinal-1, ordinal+1 in the same source), then chunks whose section is referenced by an input,
// then chunks referencing an input's section. Each id appears once, at its first occurrence.
// Unknown ids and references to sections outside the index add nothing.
func (e *Expander) ExpandWith(ids []string, opts ExpandOptions) []models.Expansion {
	var out []models.Expansion
	seen := make(map[string]bool)
	push := func(id string, reason models.ExpansionReason, via string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, models.Expansion{ChunkID: id, Reason: reason, Via: via})
	}

	var inputs []*models.Chunk
	for _, id := range ids {
		c, ok := e.lookup.Chunk(id)
		if !ok || seen[id] {
			continue
		}
		inputs = append(inputs, c)
		push(id, models.ReasonInput, "")
	}
	if opts.Neighbors {
		for _, c := range inputs {
			for _, ord := range []int{c.Ordinal - 1, c.Ordinal + 1} {
				if n, ok := e.lookup.Neighbor(c.SourceLocator, ord); ok {
					push(n, models.ReasonNeighbor, c.ID)
				}
			}
		}
	}
	if opts.References {
		for _, c := range inputs {
			for _, code := range c.ReferencesTo {
				for _, id := range e.lookup.ChunksForSection(code) {
					push(id, models.ReasonReference, code)
				}
			}
		}
	}
	if opts.Backlinks {
		for _, c := range inputs {
			if c.SectionID == "" {
				continue
			}
			for _, id := range e.lookup.ReferencedBy(c.SectionID) {
				push(id, models.ReasonBacklink, c.SectionID)
			}
		}
	}
	return out
}

// IDs returns the chunk ids of expansions in order.
func IDs(expansions []models.Expansion) []string {
	out := make([]string, len(expansions))
	for i, e := range expansions {
		out[i] = e.ChunkID
	}
	return out
}
