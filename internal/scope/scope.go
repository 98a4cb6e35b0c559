// Package scope implements the scope algebra for sum-product networks.
//
// A Scope is the set of random variables a node's output distribution is
// defined over, split into query (modeled) and evidence (conditioning)
// variables. Scopes are immutable values: every operation returns a new
// Scope and never mutates its receiver.
package scope

import (
	"fmt"
	"sort"
	"strings"
)

// Scope holds an ordered, duplicate-free set of query variable ids and an
// optional set of evidence variable ids. Query and evidence never share an
// id. The zero value is the empty scope.
type Scope struct {
	query    []int
	evidence []int
}

// ScopeError reports a violation of the scope algebra, such as joining two
// scopes with overlapping query sets.
type ScopeError struct {
	Op     string
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope: %s: %s", e.Op, e.Reason)
}

// New creates a Scope from query and evidence variable ids.
//
// Returns a ScopeError if either set contains duplicates or if the two
// sets overlap.
func New(query, evidence []int) (Scope, error) {
	q, ok := normalize(query)
	if !ok {
		return Scope{}, &ScopeError{Op: "new", Reason: fmt.Sprintf("duplicate query variable in %v", query)}
	}
	e, ok := normalize(evidence)
	if !ok {
		return Scope{}, &ScopeError{Op: "new", Reason: fmt.Sprintf("duplicate evidence variable in %v", evidence)}
	}
	for _, v := range e {
		if contains(q, v) {
			return Scope{}, &ScopeError{Op: "new", Reason: fmt.Sprintf("variable %d is both query and evidence", v)}
		}
	}
	return Scope{query: q, evidence: e}, nil
}

// Of creates a query-only Scope. It panics on duplicate ids and is meant
// for construction sites where the ids are literals.
func Of(query ...int) Scope {
	s, err := New(query, nil)
	if err != nil {
		panic(err)
	}
	return s
}

// Query returns a copy of the query variable ids in ascending order.
func (s Scope) Query() []int {
	return append([]int(nil), s.query...)
}

// Evidence returns a copy of the evidence variable ids in ascending order.
func (s Scope) Evidence() []int {
	return append([]int(nil), s.evidence...)
}

// Len returns the number of query variables.
func (s Scope) Len() int {
	return len(s.query)
}

// Contains reports whether v is a query variable of s.
func (s Scope) Contains(v int) bool {
	return contains(s.query, v)
}

// Join returns the union of s and o: query union of both queries, evidence
// union of both evidences. It fails with a ScopeError when the query sets
// overlap, because duplicate-variable semantics would be ambiguous; callers
// check the disjointness invariant they need before joining.
//
// Evidence ids that appear in the joined query are dropped so the
// query/evidence disjointness invariant is preserved.
func (s Scope) Join(o Scope) (Scope, error) {
	for _, v := range o.query {
		if contains(s.query, v) {
			return Scope{}, &ScopeError{
				Op:     "join",
				Reason: fmt.Sprintf("query sets %v and %v overlap at variable %d", s.query, o.query, v),
			}
		}
	}
	query := mergeSorted(s.query, o.query)
	evidence := mergeSorted(s.evidence, o.evidence)
	kept := evidence[:0:0]
	for _, v := range evidence {
		if !contains(query, v) {
			kept = append(kept, v)
		}
	}
	return Scope{query: query, evidence: kept}, nil
}

// EqualQuery reports whether s and o have the same query set, regardless of
// evidence. Sum nodes use this to validate their children.
func (s Scope) EqualQuery(o Scope) bool {
	if len(s.query) != len(o.query) {
		return false
	}
	for i, v := range s.query {
		if o.query[i] != v {
			return false
		}
	}
	return true
}

// Disjoint reports whether the query sets of s and o are disjoint. Product
// nodes use this to validate their children.
func (s Scope) Disjoint(o Scope) bool {
	for _, v := range o.query {
		if contains(s.query, v) {
			return false
		}
	}
	return true
}

// Equal reports whether s and o have identical query and evidence sets.
func (s Scope) Equal(o Scope) bool {
	if !s.EqualQuery(o) || len(s.evidence) != len(o.evidence) {
		return false
	}
	for i, v := range s.evidence {
		if o.evidence[i] != v {
			return false
		}
	}
	return true
}

// QueryIntersect returns the query variables of s that appear in vars.
func (s Scope) QueryIntersect(vars []int) []int {
	set := toSet(vars)
	var out []int
	for _, v := range s.query {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

// QuerySubsetOf reports whether every query variable of s appears in vars.
func (s Scope) QuerySubsetOf(vars []int) bool {
	set := toSet(vars)
	for _, v := range s.query {
		if !set[v] {
			return false
		}
	}
	return true
}

// String returns a compact representation like "q{0 1}|e{2}".
func (s Scope) String() string {
	var b strings.Builder
	b.WriteString("q{")
	for i, v := range s.query {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	b.WriteByte('}')
	if len(s.evidence) > 0 {
		b.WriteString("|e{")
		for i, v := range s.evidence {
			if i > 0 {
				b.WriteByte(' ')
			}
			fmt.Fprintf(&b, "%d", v)
		}
		b.WriteByte('}')
	}
	return b.String()
}

// normalize sorts vars ascending and reports false if a duplicate exists.
func normalize(vars []int) ([]int, bool) {
	if len(vars) == 0 {
		return nil, true
	}
	out := append([]int(nil), vars...)
	sort.Ints(out)
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			return nil, false
		}
	}
	return out, true
}

func contains(sorted []int, v int) bool {
	i := sort.SearchInts(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

// mergeSorted merges two sorted duplicate-free slices, keeping one copy of
// ids present in both.
func mergeSorted(a, b []int) []int {
	out := make([]int, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			out = append(out, a[i])
			i++
		case a[i] > b[j]:
			out = append(out, b[j])
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func toSet(vars []int) map[int]bool {
	set := make(map[int]bool, len(vars))
	for _, v := range vars {
		set[v] = true
	}
	return set
}
