package reconcile

import (
	"sort"
	"strings"

	"workspace-sync/core/workspace"

	"github.com/samber/lo"
)

// Label maps an identifier onto its human-readable form.
type Label struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Accumulator collects labels and audit cells while tables are read.
// It cannot resolve anything; Seal it first.
type Accumulator struct {
	labels []Label
	seen   map[string]struct{}
	cells  []workspace.Cell
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{seen: make(map[string]struct{})}
}

// Register adds a label. The first label registered for an id wins; empty ids are ignored.
func (a *Accumulator) Register(id, label string) {
	if id == "" {
		return
	}
	if _, ok := a.seen[id]; ok {
		return
	}
	a.seen[id] = struct{}{}
	a.labels = append(a.labels, Label{ID: id, Label: label})
}

// RegisterRecords adds the id/title pair of every record.
func (a *Accumulator) RegisterRecords(records []workspace.Record) {
	for _, r := range records {
		a.Register(r.ID, r.Title)
	}
}

// RegisterUsers adds every user by id, in id order.
func (a *Accumulator) RegisterUsers(users map[string]workspace.User) {
	ids := lo.Keys(users)
	sort.Strings(ids)
	for _, id := range ids {
		a.Register(id, users[id].Name)
	}
}

// AddCells holds audit cells until the audit table is diffed.
func (a *Accumulator) AddCells(cells []workspace.Cell) {
	a.cells = append(a.cells, cells...)
}

// Len returns the number of registered labels.
func (a *Accumulator) Len() int {
	return len(a.labels)
}

// Seal freezes the accumulated state into a Ledger.
func (a *Accumulator) Seal() *Ledger {
	labels := make([]Label, len(a.labels))
	copy(labels, a.labels)

	// Longer ids first so an id that contains another is matched whole.
	sort.SliceStable(labels, func(i, j int) bool {
		if len(labels[i].ID) != len(labels[j].ID) {
			return len(labels[i].ID) > len(labels[j].ID)
		}
		return labels[i].ID < labels[j].ID
	})

	pairs := make([]string, 0, len(labels)*2)
	for _, l := range labels {
		pairs = append(pairs, l.ID, l.Label)
	}

	cells := make([]workspace.Cell, len(a.cells))
	copy(cells, a.cells)

	return &Ledger{
		labels:   labels,
		replacer: strings.NewReplacer(pairs...),
		cells:    cells,
	}
}

// Ledger is the sealed, read-only result of an Accumulator.
type Ledger struct {
	labels   []Label
	replacer *strings.Replacer
	cells    []workspace.Cell
}

// Labels returns the labels in match order.
func (l *Ledger) Labels() []Label {
	out := make([]Label, len(l.labels))
	copy(out, l.labels)
	return out
}

// Cells returns the accumulated audit cells.
func (l *Ledger) Cells() []workspace.Cell {
	return l.cells
}

// ResolveString replaces every embedded id of s with its label in a single
// left-to-right pass; inserted labels are not scanned again.
func (l *Ledger) ResolveString(s string) string {
	if len(l.labels) == 0 || s == "" {
		return s
	}
	return l.replacer.Replace(s)
}

// unresolvedColumns are never rewritten.
var unresolvedColumns = map[string]struct{}{
	"id":        {},
	"parent_id": {},
}

// Resolve rewrites the string values of every pending row of the resolvable
// change sets and returns how many values changed. Nil, empty and non-string
// values are left as they are.
func (l *Ledger) Resolve(sets ...*ChangeSet) int {
	changed := 0
	for _, cs := range sets {
		if cs == nil || !cs.Resolvable {
			continue
		}
		for _, row := range cs.Rows {
			for col, v := range row {
				if _, skip := unresolvedColumns[strings.ToLower(col)]; skip {
					continue
				}
				s, ok := v.(string)
				if !ok || s == "" {
					continue
				}
				if out := l.ResolveString(s); out != s {
					row[col] = out
					changed++
				}
			}
		}
	}
	return changed
}
