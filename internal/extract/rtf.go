package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/lu4p/cat/rtftxt"
)

// extractRTF extracts text from .rtf bytes. rtftxt renders \par as a space, so paragraph marks
// are rewritten to \line first to keep one paragraph per line.
func extractRTF(content []byte) (string, error) {
	text, err := rtftxt.BytesToStr(rtfParagraphBreaks(content))
	if err != nil {
		return "", fmt.Errorf("extract RTF: %w", err)
	}
	return strings.TrimSpace(text), nil
}

// rtfParagraphBreaks replaces the \par control word with \line. Escaped backslashes and longer
// control words such as \pard are left alone.
func rtfParagraphBreaks(content []byte) []byte {
	var out bytes.Buffer
	out.Grow(len(content))
	for i := 0; i < len(content); i++ {
		b := content[i]
		if b != '\\' {
			out.WriteByte(b)
			continue
		}
		if i+1 < len(content) && content[i+1] == '\\' {
			out.WriteString(`\\`)
			i++
			continue
		}
		if bytes.HasPrefix(content[i+1:], []byte("par")) && (i+4 >= len(content) || !isASCIILetter(content[i+4])) {
			out.WriteString(`\line`)
			i += 3
			continue
		}
		out.WriteByte(b)
	}
	return out.Bytes()
}

func isASCIILetter(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z'
}
