package report

import (
	"fmt"

	"github.com/leodido/kextinfo"
)

// Entry is the structured view of one extension used by the JSON and YAML
// formats.
type Entry struct {
	Index         int    `json:"index" yaml:"index"`
	Refs          int    `json:"refs" yaml:"refs"`
	Address       string `json:"address" yaml:"address"`
	Size          string `json:"size" yaml:"size"`
	Wired         string `json:"wired" yaml:"wired"`
	Name          string `json:"name" yaml:"name"`
	Version       string `json:"version" yaml:"version"`
	UUID          string `json:"uuid" yaml:"uuid"`
	LinkedAgainst []Link `json:"linkedAgainst" yaml:"linkedAgainst"`
	LinkedBy      []Link `json:"linkedBy" yaml:"linkedBy"`
}

// Link points at a related extension by index.
// Missing is set when the index has no row in the snapshot.
type Link struct {
	Index   int    `json:"index" yaml:"index"`
	Name    string `json:"name,omitempty" yaml:"name,omitempty"`
	Missing bool   `json:"missing,omitempty" yaml:"missing,omitempty"`
}

// Entries returns one Entry per extension, in snapshot order.
func Entries(ix *kextinfo.Index) []Entry {
	exts := ix.Extensions()
	entries := make([]Entry, 0, len(exts))
	for _, e := range exts {
		entries = append(entries, Entry{
			Index:         e.Index,
			Refs:          e.Refs,
			Address:       formatAddress(e.Address),
			Size:          formatSize(e.Size),
			Wired:         formatSize(e.Wired),
			Name:          e.Name,
			Version:       e.Version,
			UUID:          e.UUID.String(),
			LinkedAgainst: links(ix.LinkedAgainst(e.Index)),
			LinkedBy:      links(ix.LinkedBy(e.Index)),
		})
	}
	return entries
}

func links(refs []kextinfo.Reference) []Link {
	out := make([]Link, 0, len(refs))
	for _, r := range refs {
		l := Link{Index: r.Index, Missing: !r.Resolved}
		if r.Resolved {
			l.Name = r.Extension.Name
		}
		out = append(out, l)
	}
	return out
}

func formatAddress(v uint64) string {
	return fmt.Sprintf("0x%016x", v)
}

func formatSize(v uint64) string {
	return fmt.Sprintf("0x%x", v)
}
