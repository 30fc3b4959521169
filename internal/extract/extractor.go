// Package extract reads source files into plain text for ingestion. Paragraph and line breaks
// of the source format are kept because segmentation relies on them.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hyperjump/bunkatsu/internal/models"
	"github.com/hyperjump/bunkatsu/internal/refcode"
	"github.com/hyperjump/bunkatsu/internal/segment"
)

// DefaultExtensions lists the formats the extractor reads.
var DefaultExtensions = []string{".txt", ".md", ".rst", ".csv", ".pdf", ".docx", ".xlsx", ".pptx", ".odt", ".odp", ".ods", ".rtf"}

// Extractor extracts plain text from document files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, strings.ToLower(filepath.Ext(path)))
}

// ExtractBytes extracts text from content based on ext, which includes the leading dot.
// Unknown extensions are read as plain text.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	switch strings.ToLower(ext) {
	case ".pdf":
		return extractPDF(content)
	case ".docx":
		return extractDOCX(content)
	case ".xlsx":
		return extractExcel(content)
	case ".pptx":
		return extractPPTX(content)
	case ".odt", ".odp", ".ods":
		return extractOpenDocument(content)
	case ".csv":
		return extractCSV(content)
	case ".rtf":
		return extractRTF(content)
	default:
		return extractPlain(content), nil
	}
}

// Supported reports whether ext is one of DefaultExtensions.
func Supported(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range DefaultExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// DetectDocumentType guesses the strategy for text: two or more section headers of the given
// families make it regulatory.
func DetectDocumentType(text string, families *refcode.Set) models.DocumentType {
	if len(segment.HeaderCodes(text, families)) >= 2 {
		return models.DocumentRegulatory
	}
	return models.DocumentGeneric
}
