package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Fingerprint computes the content-addressed cache key for a requirement
// context: SHA-256 over the normalized requirement text plus a canonical
// serialization of the supplemental data.
//
// Two contexts with the same semantic content must collide to the same key,
// so normalization collapses whitespace and case-folds the requirement text.
// Table row order and paragraph order are part of the identity: row order can
// carry meaning (priority lists, sequences), so reordering rows produces a
// different fingerprint.
func Fingerprint(rc RequirementContext) string {
	h := sha256.New()

	writeSection(h, "text", normalize(rc.Text))

	for i, t := range rc.Tables {
		writeSection(h, fmt.Sprintf("table.%d.name", i), normalize(t.Name))
		for j, col := range t.Columns {
			writeSection(h, fmt.Sprintf("table.%d.col.%d", i, j), normalize(col))
		}
		for j, row := range t.Rows {
			for k, cell := range row {
				writeSection(h, fmt.Sprintf("table.%d.row.%d.%d", i, j, k), normalize(cell))
			}
		}
	}

	for i, p := range rc.Paragraphs {
		writeSection(h, fmt.Sprintf("para.%d", i), normalize(p))
	}

	return hex.EncodeToString(h.Sum(nil))
}

// writeSection writes a length-prefixed labeled value so that adjacent
// sections can never be confused with each other.
func writeSection(h interface{ Write(p []byte) (int, error) }, label, value string) {
	fmt.Fprintf(h, "%s:%d:", label, len(value))
	h.Write([]byte(value))
}

// normalize collapses runs of whitespace to single spaces, trims, and
// case-folds so that formatting-only edits do not change the fingerprint.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
