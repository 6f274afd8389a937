package budget

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/farxc/presupuestos-estudio/internal/store"
)

// Tree is the two-level view of a flat budget list: principals in input
// order and, per parent id, the additionals that reference it.
type Tree struct {
	Principals []store.Budget
	Children   map[int64][]store.Budget
}

// BuildTree partitions budgets in a single pass. Every record lands either
// in Principals or in exactly one bucket of Children. Additionals whose
// parent is not in the list keep their bucket and are simply unreachable
// from Principals.
func BuildTree(budgets []store.Budget) Tree {
	t := Tree{
		Principals: []store.Budget{},
		Children:   make(map[int64][]store.Budget),
	}
	for _, b := range budgets {
		if b.ParentID == nil {
			t.Principals = append(t.Principals, b)
			continue
		}
		t.Children[*b.ParentID] = append(t.Children[*b.ParentID], b)
	}
	return t
}

// Additionals returns the bucket of principalID.
func (t Tree) Additionals(principalID int64) []store.Budget {
	return t.Children[principalID]
}

// Len counts principals plus every bucketed additional.
func (t Tree) Len() int {
	n := len(t.Principals)
	for _, c := range t.Children {
		n += len(c)
	}
	return n
}

// a Caser keeps state, so each call gets its own
func fold(s string) string { return cases.Fold().String(s) }

// FilterPrincipals keeps the principals whose client name or address
// contains query, ignoring case. Additionals are never matched on their
// own. An empty query returns t unchanged.
func FilterPrincipals(t Tree, query string) Tree {
	query = strings.TrimSpace(query)
	if query == "" {
		return t
	}
	q := fold(query)

	out := Tree{Principals: []store.Budget{}, Children: t.Children}
	for _, p := range t.Principals {
		addr := ""
		if p.Address != nil {
			addr = *p.Address
		}
		if strings.Contains(fold(p.Client), q) || strings.Contains(fold(addr), q) {
			out.Principals = append(out.Principals, p)
		}
	}
	return out
}
