package kextinfo

import (
	"errors"
	"io"
	"slices"
)

// Reference is the result of resolving a dependency index.
//
// When Resolved is false the index has no row in the snapshot and
// Extension is the zero value.
type Reference struct {
	Index     int
	Extension Extension
	Resolved  bool
}

// Index cross-references a snapshot of loaded extensions.
//
// It is built once by [NewIndex] and never modified afterwards; every
// accessor returns copies.
type Index struct {
	extensions []Extension
	// position maps an extension index to its position in extensions.
	position map[int]int
	// linkedBy maps an extension index to the indices of the extensions
	// that link against it, in snapshot order.
	linkedBy map[int][]int
	dangling []*DanglingReferenceError
}

// Load parses kextstat output from r and indexes it.
func Load(r io.Reader) (*Index, error) {
	exts, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return NewIndex(exts)
}

// NewIndex indexes exts and derives the reverse dependency relation.
//
// Two rows with the same index are a hard failure (*[DuplicateIndexError]).
// Dependencies on indices with no row do not fail the build; they are
// resolved as unresolved [Reference] values and listed by [Index.Dangling].
func NewIndex(exts []Extension) (*Index, error) {
	ix := &Index{
		extensions: make([]Extension, len(exts)),
		position:   make(map[int]int, len(exts)),
		linkedBy:   make(map[int][]int),
	}

	for i, e := range exts {
		if first, ok := ix.position[e.Index]; ok {
			return nil, &DuplicateIndexError{Index: e.Index, First: first, Second: i}
		}
		ix.position[e.Index] = i
		e.LinkedAgainst = slices.Clone(e.LinkedAgainst)
		ix.extensions[i] = e
	}

	for _, e := range ix.extensions {
		for _, dep := range e.LinkedAgainst {
			if _, ok := ix.position[dep]; !ok {
				ix.dangling = append(ix.dangling, &DanglingReferenceError{From: e.Index, To: dep})
				continue
			}
			// A dependency listed twice by the same extension is recorded once.
			// All of e's edges are appended consecutively, so checking the
			// tail is enough.
			rev := ix.linkedBy[dep]
			if n := len(rev); n > 0 && rev[n-1] == e.Index {
				continue
			}
			ix.linkedBy[dep] = append(rev, e.Index)
		}
	}

	return ix, nil
}

// Len returns the number of extensions in the snapshot.
func (ix *Index) Len() int {
	return len(ix.extensions)
}

// Extensions returns all extensions in snapshot order.
func (ix *Index) Extensions() []Extension {
	out := make([]Extension, len(ix.extensions))
	for i, e := range ix.extensions {
		e.LinkedAgainst = slices.Clone(e.LinkedAgainst)
		out[i] = e
	}
	return out
}

// Lookup returns the extension with the given index.
func (ix *Index) Lookup(index int) (Extension, bool) {
	pos, ok := ix.position[index]
	if !ok {
		return Extension{}, false
	}
	e := ix.extensions[pos]
	e.LinkedAgainst = slices.Clone(e.LinkedAgainst)
	return e, true
}

// Resolve looks up index and reports whether it matched a row.
func (ix *Index) Resolve(index int) Reference {
	e, ok := ix.Lookup(index)
	return Reference{Index: index, Extension: e, Resolved: ok}
}

// LinkedAgainst resolves the forward dependencies of the extension with
// the given index. It returns nil if the index is unknown or the extension
// has no dependencies.
func (ix *Index) LinkedAgainst(index int) []Reference {
	pos, ok := ix.position[index]
	if !ok {
		return nil
	}
	deps := ix.extensions[pos].LinkedAgainst
	if len(deps) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(deps))
	for _, dep := range deps {
		refs = append(refs, ix.Resolve(dep))
	}
	return refs
}

// LinkedBy returns the extensions that link against the given index, in
// snapshot order.
func (ix *Index) LinkedBy(index int) []Reference {
	dependents := ix.linkedBy[index]
	if len(dependents) == 0 {
		return nil
	}
	refs := make([]Reference, 0, len(dependents))
	for _, d := range dependents {
		refs = append(refs, ix.Resolve(d))
	}
	return refs
}

// Dangling returns every dependency edge whose target has no row, in
// snapshot order.
func (ix *Index) Dangling() []*DanglingReferenceError {
	return slices.Clone(ix.dangling)
}

// Validate returns nil if every dependency resolves, otherwise the
// dangling references joined into one error.
func (ix *Index) Validate() error {
	if len(ix.dangling) == 0 {
		return nil
	}
	errs := make([]error, 0, len(ix.dangling))
	for _, d := range ix.dangling {
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}
