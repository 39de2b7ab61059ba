package kextinfo

import (
	"fmt"
	"strings"
)

// String returns a human-readable summary of the snapshot.
func (ix *Index) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Extensions: %d\n", len(ix.extensions))
	if len(ix.dangling) > 0 {
		fmt.Fprintf(&b, "Dangling references: %d\n", len(ix.dangling))
	}
	b.WriteString("\n")

	for _, e := range ix.extensions {
		fmt.Fprintf(&b, "%4d %s (%s)\n", e.Index, e.Name, e.Version)
		fmt.Fprintf(&b, "     refs: %d  address: 0x%016x  size: 0x%x  wired: 0x%x\n", e.Refs, e.Address, e.Size, e.Wired)
		fmt.Fprintf(&b, "     uuid: %s\n", e.UUID)
		writeRefs(&b, "     linked against", ix.LinkedAgainst(e.Index))
		writeRefs(&b, "     linked by", ix.LinkedBy(e.Index))
	}

	return b.String()
}

func writeRefs(b *strings.Builder, name string, refs []Reference) {
	if len(refs) == 0 {
		fmt.Fprintf(b, "%s: none\n", name)
		return
	}
	parts := make([]string, 0, len(refs))
	for _, r := range refs {
		parts = append(parts, r.String())
	}
	fmt.Fprintf(b, "%s: %s\n", name, strings.Join(parts, ", "))
}

// String returns "index: name", or "index: (missing)" for an unresolved
// reference.
func (r Reference) String() string {
	if !r.Resolved {
		return fmt.Sprintf("%d: (missing)", r.Index)
	}
	return fmt.Sprintf("%d: %s", r.Index, r.Extension.Name)
}
