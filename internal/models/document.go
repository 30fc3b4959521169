// Package models defines core data structures for sources, document units, chunks, and expansion queries.
package models

import (
	"fmt"
	"strings"
	"time"
)

// DocumentType selects the segmentation strategy for a source.
type DocumentType string

const (
	// DocumentRegulatory routes text through the regulation-aware section parser.
	DocumentRegulatory DocumentType = "regulatory"
	// DocumentGeneric routes text through the structure-preserving splitter.
	DocumentGeneric DocumentType = "generic"
)

// ParseDocumentType maps a hint string to a DocumentType. Empty means generic.
func ParseDocumentType(s string) (DocumentType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(DocumentGeneric):
		return DocumentGeneric, nil
	case string(DocumentRegulatory), "regulation":
		return DocumentRegulatory, nil
	default:
		return "", fmt.Errorf("unknown document type %q", s)
	}
}

// DocumentInput is what the text-extraction collaborator hands over for one source.
type DocumentInput struct {
	Text          string       `json:"text"`
	DocumentType  DocumentType `json:"document_type,omitempty"`
	SourceLocator string       `json:"source_locator"`
}

// Validate checks the input and defaults the document type to generic.
func (in *DocumentInput) Validate() error {
	if strings.TrimSpace(in.SourceLocator) == "" {
		return fmt.Errorf("source_locator cannot be empty")
	}
	if in.DocumentType == "" {
		in.DocumentType = DocumentGeneric
	}
	if in.DocumentType != DocumentGeneric && in.DocumentType != DocumentRegulatory {
		return fmt.Errorf("unknown document type %q", in.DocumentType)
	}
	return nil
}

// Source is the persisted record of one ingested source document.
type Source struct {
	Locator      string       `json:"locator" db:"locator"`
	DocumentType DocumentType `json:"document_type" db:"document_type"`
	TextHash     string       `json:"text_hash" db:"text_hash"`
	ChunkCount   int          `json:"chunk_count" db:"chunk_count"`
	IngestedAt   time.Time    `json:"ingested_at" db:"ingested_at"`
}
