package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	docxDocumentXMLPath = "word/document.xml"
	contentTypesPath    = "[Content_Types].xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	odfContentPath      = "content.xml"
)

var (
	// wtTag matches <w:t>text</w:t> with any attributes; atTag the DrawingML equivalent.
	wtTag = regexp.MustCompile(`<w:t(?:\s[^>]*)?>([^<]*)</w:t>`)
	atTag = regexp.MustCompile(`<a:t(?:\s[^>]*)?>([^<]*)</a:t>`)

	partNameRe  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partNameRe2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)

	slideRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

	odfBlockRe = regexp.MustCompile(`(?s)<text:(?:p|h)(?:\s[^>]*[^/])?>(.*?)</text:(?:p|h)>`)
	odfSpaceRe = regexp.MustCompile(`<text:(?:s|tab|line-break)\b[^>]*/>`)
	anyTagRe   = regexp.MustCompile(`<[^>]+>`)
)

func openZip(content []byte, format string) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readPart returns the bytes of the named zip member, or nil when it does not exist.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		return b, nil
	}
	return nil, nil
}

// paragraphs splits OOXML at closing paragraph tags and concatenates the text runs of each
// paragraph. Runs of one paragraph are joined without separator as Word renders them.
func paragraphs(xml, closeTag string, run *regexp.Regexp) []string {
	var out []string
	for _, p := range strings.Split(xml, closeTag) {
		var b strings.Builder
		for _, m := range run.FindAllStringSubmatch(p, -1) {
			b.WriteString(m[1])
		}
		if text := strings.TrimSpace(html.UnescapeString(b.String())); text != "" {
			out = append(out, text)
		}
	}
	return out
}

// findDocxMainDocumentPath finds the main document path from [Content_Types].xml.
func findDocxMainDocumentPath(zr *zip.Reader) string {
	b, err := readPart(zr, contentTypesPath)
	if err != nil || b == nil {
		return ""
	}
	if m := partNameRe.FindSubmatch(b); len(m) > 1 {
		return strings.TrimPrefix(string(m[1]), "/")
	}
	if m := partNameRe2.FindSubmatch(b); len(m) > 1 {
		return strings.TrimPrefix(string(m[1]), "/")
	}
	return ""
}

// extractDOCX returns one paragraph per Word paragraph.
func extractDOCX(content []byte) (string, error) {
	zr, err := openZip(content, "DOCX")
	if err != nil {
		return "", err
	}
	docPath := findDocxMainDocumentPath(zr)
	if docPath == "" {
		docPath = docxDocumentXMLPath
	}
	docXML, err := readPart(zr, docPath)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if docXML == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", docPath)
	}
	return strings.Join(paragraphs(string(docXML), "</w:p>", wtTag), "\n\n"), nil
}

// extractPPTX returns the slides in slide order, one paragraph per slide, followed by the
// speaker notes of the slide when present.
func extractPPTX(content []byte) (string, error) {
	zr, err := openZip(content, "PPTX")
	if err != nil {
		return "", err
	}
	type slide struct {
		n    int
		name string
	}
	var slides []slide
	for _, f := range zr.File {
		if m := slideRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slides = append(slides, slide{n: n, name: f.Name})
		}
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	var blocks []string
	for _, s := range slides {
		for _, part := range []string{s.name, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", s.n)} {
			b, err := readPart(zr, part)
			if err != nil {
				return "", fmt.Errorf("extract PPTX: %w", err)
			}
			if lines := paragraphs(string(b), "</a:p>", atTag); len(lines) > 0 {
				blocks = append(blocks, strings.Join(lines, "\n"))
			}
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

// extractOpenDocument returns the paragraphs and headings of content.xml in document order,
// one per line.
func extractOpenDocument(content []byte) (string, error) {
	zr, err := openZip(content, "OpenDocument")
	if err != nil {
		return "", err
	}
	b, err := readPart(zr, odfContentPath)
	if err != nil {
		return "", fmt.Errorf("extract OpenDocument: %w", err)
	}
	if b == nil {
		return "", fmt.Errorf("extract OpenDocument: %s not found", odfContentPath)
	}
	var lines []string
	for _, m := range odfBlockRe.FindAllStringSubmatch(string(b), -1) {
		inner := odfSpaceRe.ReplaceAllString(m[1], " ")
		text := strings.TrimSpace(html.UnescapeString(anyTagRe.ReplaceAllString(inner, "")))
		if text != "" {
			lines = append(lines, text)
		}
	}
	return strings.Join(lines, "\n"), nil
}
