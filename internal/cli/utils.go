// Package cli renders bunkatsu command output as text or JSON.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/bunkatsu/internal/indexer"
	"github.com/hyperjump/bunkatsu/internal/keyword"
	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/server"
	"github.com/hyperjump/bunkatsu/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat maps a --output flag value to a format.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(s)) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q; use text or json", s)
}

const previewLen = 200

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteReports writes ingestion reports followed by a summary line.
func WriteReports(w io.Writer, reports []*indexer.Report, format OutputFormat) error {
	if format == OutputJSON {
		if reports == nil {
			reports = []*indexer.Report{}
		}
		return WriteJSON(w, reports)
	}
	var indexed, skipped, failed int
	for _, r := range reports {
		if r == nil {
			continue
		}
		switch r.Outcome {
		case indexer.OutcomeIndexed:
			indexed++
			fmt.Fprintf(w, "indexed  %s (%s, %d chunks)\n", r.SourceLocator, r.Strategy, r.Chunks)
		case indexer.OutcomeSkipped:
			skipped++
			fmt.Fprintf(w, "skipped  %s (unchanged, %d chunks)\n", r.SourceLocator, r.Chunks)
		default:
			failed++
			fmt.Fprintf(w, "failed   %s: %s\n", r.SourceLocator, r.Error)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  warning [%s] %s\n", warn.Kind, warn.Message)
		}
	}
	fmt.Fprintf(w, "\n%d indexed, %d skipped, %d failed\n", indexed, skipped, failed)
	return nil
}

// WriteChunk writes one chunk with its annotations.
func WriteChunk(w io.Writer, c *models.Chunk, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, c)
	}
	writeChunkText(w, c, false)
	return nil
}

func writeChunkText(w io.Writer, c *models.Chunk, preview bool) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "ID: %s\n", c.ID)
	fmt.Fprintf(w, "Source: %s #%d\n", c.SourceLocator, c.Ordinal)
	if c.SectionID != "" {
		if c.SectionTitle != "" {
			fmt.Fprintf(w, "Section: %s %s\n", c.SectionID, c.SectionTitle)
		} else {
			fmt.Fprintf(w, "Section: %s\n", c.SectionID)
		}
	}
	fmt.Fprintf(w, "Density: %s (%.2f)\n", c.DensityType, c.DensityScore)
	if len(c.ReferencesTo) > 0 {
		fmt.Fprintf(w, "References: %s\n", strings.Join(c.ReferencesTo, ", "))
	}
	if len(c.Keywords) > 0 {
		fmt.Fprintf(w, "Keywords: %s\n", strings.Join(c.Keywords, ", "))
	}
	if c.HardCut {
		fmt.Fprintln(w, "Hard cut: yes")
	}
	text := c.Content()
	if preview {
		text = utils.Truncate(text, previewLen)
	}
	fmt.Fprintf(w, "\n%s\n\n", text)
}

// WriteExpansion writes an expanded chunk set. Chunks are previewed when included.
func WriteExpansion(w io.Writer, resp *models.ExpandResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, resp)
	}
	fmt.Fprintf(w, "%d chunks\n\n", len(resp.ChunkIDs))
	for _, e := range resp.Expansions {
		if e.Via != "" {
			fmt.Fprintf(w, "%-9s %s (via %s)\n", e.Reason, e.ChunkID, e.Via)
		} else {
			fmt.Fprintf(w, "%-9s %s\n", e.Reason, e.ChunkID)
		}
	}
	if len(resp.Chunks) > 0 {
		fmt.Fprintln(w)
		for _, c := range resp.Chunks {
			writeChunkText(w, c, true)
		}
	}
	return nil
}

// WriteEntry writes the reference index entry of one code.
func WriteEntry(w io.Writer, entry *models.ReferenceIndexEntry, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, entry)
	}
	fmt.Fprintf(w, "%s\n\nsection chunks (%d):\n", entry.Code, len(entry.SectionChunks))
	for _, id := range entry.SectionChunks {
		fmt.Fprintf(w, "  %s\n", id)
	}
	fmt.Fprintf(w, "referenced by (%d):\n", len(entry.ReferencingChunks))
	for _, id := range entry.ReferencingChunks {
		fmt.Fprintf(w, "  %s\n", id)
	}
	return nil
}

// WriteLookup writes keyword catalog hits.
func WriteLookup(w io.Writer, query string, results []*keyword.Result, format OutputFormat) error {
	if format == OutputJSON {
		if results == nil {
			results = []*keyword.Result{}
		}
		return WriteJSON(w, map[string]interface{}{"query": query, "results": results})
	}
	fmt.Fprintf(w, "Found %d chunks for %q\n\n", len(results), query)
	for i, r := range results {
		section := r.SectionID
		if section == "" {
			section = "-"
		}
		fmt.Fprintf(w, "%2d. %.4f  %s  %s  %s\n", i+1, r.Score, r.ID, section, r.Source)
	}
	return nil
}

// WriteStatus writes storage, index and configuration counts.
func WriteStatus(w io.Writer, st *server.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return WriteJSON(w, st)
	}
	fmt.Fprintf(w, "sources:            %d   # persisted source documents\n", st.Sources)
	fmt.Fprintf(w, "chunks:             %d   # persisted chunks\n", st.Chunks)
	fmt.Fprintf(w, "indexed_chunks:     %d   # chunks in the reference index\n", st.IndexedChunks)
	fmt.Fprintf(w, "section_codes:      %d   # distinct section codes\n", st.SectionCodes)
	if st.CatalogEntries != nil {
		fmt.Fprintf(w, "catalog_entries:    %d   # keyword catalog documents\n", *st.CatalogEntries)
	}
	if st.DiskUsageBytes != nil {
		fmt.Fprintf(w, "disk_usage_bytes:   %d   # database + catalog on disk\n", *st.DiskUsageBytes)
	}
	if c := st.Config; c != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "# configuration")
		fmt.Fprintf(w, "chunk_size:         %d..%d (base %d)\n", c.MinChunkSize, c.MaxChunkSize, c.BaseChunkSize)
		fmt.Fprintf(w, "overlap:            %d\n", c.Overlap)
		fmt.Fprintf(w, "merge_threshold:    %d\n", c.MergeThreshold)
		fmt.Fprintf(w, "families:           %s\n", strings.Join(c.Families, ", "))
		if c.DatabasePath != "" {
			fmt.Fprintf(w, "database_path:      %s\n", c.DatabasePath)
		}
		if c.CatalogPath != "" {
			fmt.Fprintf(w, "catalog_path:       %s\n", c.CatalogPath)
		}
	}
	return nil
}
