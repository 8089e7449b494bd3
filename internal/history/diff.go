package history

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/feral-file/ff-history/internal/uow"
)

// FieldChange is one column that differs between two records.
type FieldChange struct {
	Column string `json:"column"`
	From   any    `json:"from"`
	To     any    `json:"to"`
}

// DiffRecords lists the columns whose values differ between from and to.
func DiffRecords(from, to Record) []FieldChange {
	var changes []FieldChange
	for _, col := range columnsOf(from, to) {
		a, b := from.Values[col], to.Values[col]
		if uow.Equal(a, b) || equalText(a, b) {
			continue
		}
		changes = append(changes, FieldChange{Column: col, From: uow.Indirect(a), To: uow.Indirect(b)})
	}
	return changes
}

// UnifiedDiff renders both records as "column: value" lines and diffs them.
func UnifiedDiff(from, to Record) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        recordLines(from, columnsOf(from, to)),
		B:        recordLines(to, columnsOf(from, to)),
		FromFile: fmt.Sprintf("version %d", from.Version),
		ToFile:   fmt.Sprintf("version %d", to.Version),
		Context:  3,
	})
}

// columnsOf returns the history column order when known, else sorted names.
func columnsOf(a, b Record) []string {
	if a.ht != nil {
		return a.ht.data
	}
	if b.ht != nil {
		return b.ht.data
	}
	seen := map[string]bool{}
	var cols []string
	for _, r := range []Record{a, b} {
		for col := range r.Values {
			if !seen[col] {
				seen[col] = true
				cols = append(cols, col)
			}
		}
	}
	slices.Sort(cols)
	return cols
}

func recordLines(r Record, cols []string) []string {
	lines := make([]string, 0, len(cols)+1)
	if r.Message != "" {
		lines = append(lines, "message: "+r.Message+"\n")
	}
	for _, col := range cols {
		lines = append(lines, col+": "+text(r.Values[col])+"\n")
	}
	return lines
}

func text(v any) string {
	v = uow.Indirect(v)
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case []byte:
		return string(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return strings.TrimSpace(string(b))
}

// equalText treats values that render the same as equal; drivers disagree on
// whether text comes back as string or bytes.
func equalText(a, b any) bool {
	return text(a) == text(b)
}
