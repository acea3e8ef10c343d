package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/oplog"
)

// readDocument loads a JSON (.json) or YAML file whose root is an object.
func readDocument(file string) (doc.Value, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return doc.Value{}, err
	}
	var v doc.Value
	if strings.EqualFold(filepath.Ext(file), ".json") {
		v, err = doc.UnmarshalJSON(data)
	} else {
		v, err = doc.ParseYAML(data)
	}
	if err != nil {
		return doc.Value{}, fmt.Errorf("parse %s: %w", file, err)
	}
	if v.Type() != doc.ObjectType {
		return doc.Value{}, fmt.Errorf("%s: document must be an object, got %s", file, v.Type())
	}
	return v, nil
}

// docIDFromFile is the file name without directory or extension.
func docIDFromFile(file string) string {
	base := filepath.Base(file)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// EntryView is the printable form of a log entry.
type EntryView struct {
	Seq             int64           `json:"seq"`
	ID              string          `json:"id"`
	Namespace       string          `json:"namespace"`
	DocID           string          `json:"doc_id"`
	Op              string          `json:"op"`
	Path            string          `json:"path"`
	Value           json.RawMessage `json:"value"`
	ValueHash       string          `json:"value_hash"`
	FromReplication bool            `json:"from_replication"`
}

func newEntryViews(entries []oplog.Entry) ([]EntryView, error) {
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		value, err := doc.MarshalJSON(e.Value)
		if err != nil {
			return nil, fmt.Errorf("render entry %s: %w", e.ID, err)
		}
		views = append(views, EntryView{
			Seq:             e.Seq,
			ID:              e.ID,
			Namespace:       e.Namespace,
			DocID:           e.DocID,
			Op:              e.Op,
			Path:            e.Path,
			Value:           value,
			ValueHash:       e.ValueHash,
			FromReplication: e.FromReplication,
		})
	}
	return views, nil
}

func (e EntryView) String() string {
	return fmt.Sprintf("seq %d  %s %s = %s", e.Seq, e.Op, e.Path, e.Value)
}

// lineDiff renders a line-oriented diff of before and after, one
// "+"/"-"/" " prefixed line per output line.
func lineDiff(before, after string, p palette) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				sb.WriteString(p.bad("- " + line))
			case diffmatchpatch.DiffInsert:
				sb.WriteString(p.ok("+ " + line))
			default:
				sb.WriteString(p.dim("  " + line))
			}
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}
