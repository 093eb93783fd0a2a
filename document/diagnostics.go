package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/qri-io/deepdiff"

	"github.com/qri-io/jsondoc/value"
)

// diagnosticDiff renders a best-effort human-readable summary of how a and b
// differ, for embedding in ErrInvalidVersioningData messages. It prefers
// deepdiff's structural delta list — which names the changed paths rather
// than dumping both trees — and falls back to a plain cmp diff if deepdiff
// itself errors on the given shapes.
func diagnosticDiff(a, b interface{}) string {
	deltas, _, err := deepdiff.New().StatDiff(context.Background(), a, b)
	if err != nil || len(deltas) == 0 {
		return value.Diff(a, b)
	}

	var sb strings.Builder
	for _, d := range deltas {
		summarizeDelta(&sb, d, 0)
	}
	return sb.String()
}

func summarizeDelta(sb *strings.Builder, d *deepdiff.Delta, depth int) {
	if d == nil {
		return
	}
	fmt.Fprintf(sb, "%s%s %s: %v\n", strings.Repeat("  ", depth), d.Type, d.Path.String(), d.Value)
	for _, child := range d.Deltas {
		summarizeDelta(sb, child, depth+1)
	}
}
