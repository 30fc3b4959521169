package segment

import (
	"strings"

	"github.com/hyperjump/bunkatsu/internal/models"
)

type blockKind int

const (
	blockText blockKind = iota
	blockHeader
	blockList
)

// block is a run of lines of one kind. List blocks keep their items so an oversized list can
// be split between items.
type block struct {
	kind  blockKind
	text  string
	lead  string
	items []string
}

func lineKind(line string) blockKind {
	switch {
	case IsListItem(line):
		return blockList
	case IsHeaderLine(line):
		return blockHeader
	case IsTableRow(line):
		return blockList
	default:
		return blockText
	}
}

// parseBlocks splits text on blank lines and on changes of line kind. A header line is then
// glued to the block that follows it.
func parseBlocks(text string) []block {
	var blocks []block
	var cur *block
	blank := 0
	flush := func() {
		if cur != nil {
			blocks = append(blocks, *cur)
			cur = nil
		}
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			flush()
			blank++
			continue
		}
		kind := lineKind(line)
		if cur != nil && blank == 0 && cur.kind == blockList && kind == blockText && startsIndented(line) {
			// continuation of the previous list item
			cur.text += "\n" + line
			cur.items[len(cur.items)-1] += "\n" + line
			continue
		}
		if cur != nil && blank == 0 && kind == cur.kind && kind != blockHeader {
			cur.text += "\n" + line
			if kind == blockList {
				cur.items = append(cur.items, line)
			}
			continue
		}
		lead := ""
		if cur != nil || len(blocks) > 0 {
			lead = "\n"
			if blank > 0 {
				lead = "\n\n"
			}
		}
		flush()
		cur = &block{kind: kind, text: line, lead: lead}
		if kind == blockList {
			cur.items = []string{line}
		}
		blank = 0
	}
	flush()
	return glueHeaders(blocks)
}

func startsIndented(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

func glueHeaders(blocks []block) []block {
	out := make([]block, 0, len(blocks))
	for i := 0; i < len(blocks); i++ {
		b := blocks[i]
		for b.kind == blockHeader && i+1 < len(blocks) {
			next := blocks[i+1]
			joined := block{kind: next.kind, text: b.text + next.lead + next.text, lead: b.lead}
			if next.kind == blockList {
				joined.items = append([]string{b.text + next.lead + next.items[0]}, next.items[1:]...)
			}
			b = joined
			i++
		}
		out = append(out, b)
	}
	return out
}

// SplitStructural cuts generic text into units at paragraph and sentence boundaries.
// Paragraphs are packed up to limits.Target. Lists stay whole up to limits.Max and are split
// between items beyond that. A paragraph longer than the target is cut after the closest
// sentence terminator; without one it is hard cut and the unit is flagged.
func SplitStructural(text, locator string, limits Limits) []models.DocumentUnit {
	limits = limits.normalized()
	pieces := pack(parseBlocks(text), limits)
	units := make([]models.DocumentUnit, 0, len(pieces))
	for i, p := range pieces {
		units = append(units, models.DocumentUnit{
			Text:          p.text,
			SourceLocator: locator,
			Ordinal:       i,
			Strategy:      models.DocumentGeneric,
			Lead:          p.lead,
			HardCut:       p.hard,
		})
	}
	return units
}

func pack(blocks []block, limits Limits) []piece {
	var out []piece
	var cur piece
	flush := func() {
		if cur.text != "" {
			out = append(out, cur)
		}
		cur = piece{}
	}
	for _, b := range blocks {
		if len(b.text) > limits.Target {
			flush()
			out = append(out, splitBlock(b, limits)...)
			continue
		}
		if cur.text == "" {
			cur = piece{text: b.text, lead: b.lead}
			continue
		}
		if len(cur.text)+len(b.lead)+len(b.text) <= limits.Target {
			cur.text += b.lead + b.text
			continue
		}
		flush()
		cur = piece{text: b.text, lead: b.lead}
	}
	flush()
	return out
}

// splitBlock cuts a block longer than the target. The first piece keeps the block's lead.
func splitBlock(b block, limits Limits) []piece {
	var pieces []piece
	if b.kind == blockList {
		if len(b.text) <= limits.Max {
			return []piece{{text: b.text, lead: b.lead}}
		}
		pieces = splitList(b.items, limits)
	} else {
		pieces = cutAll(b.text, limits.Target, nil)
	}
	if len(pieces) > 0 {
		pieces[0].lead = b.lead
	}
	return pieces
}

func splitList(items []string, limits Limits) []piece {
	var out []piece
	var cur piece
	for _, item := range items {
		if len(item) > limits.Max {
			if cur.text != "" {
				out = append(out, cur)
				cur = piece{}
			}
			parts := cutAll(item, limits.Target, nil)
			parts[0].lead = "\n"
			out = append(out, parts...)
			continue
		}
		switch {
		case cur.text == "":
			cur = piece{text: item, lead: "\n"}
		case len(cur.text)+1+len(item) <= limits.Target:
			cur.text += "\n" + item
		default:
			out = append(out, cur)
			cur = piece{text: item, lead: "\n"}
		}
	}
	if cur.text != "" {
		out = append(out, cur)
	}
	return out
}
