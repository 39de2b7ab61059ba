// Package report renders an indexed kernel extension snapshot.
//
// Every format lists each extension once, together with the extensions it
// links against and the extensions that link against it.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/leodido/kextinfo"
	"gopkg.in/yaml.v3"
)

// Format selects the report encoding.
type Format int

const (
	// FormatHTML is a cross-linked HTML table.
	FormatHTML Format = iota
	// FormatJSON is an indented JSON array of [Entry].
	FormatJSON
	// FormatYAML is a YAML sequence of [Entry].
	FormatYAML
	// FormatText is the plain-text summary from [kextinfo.Index.String].
	FormatText
)

var formatNames = map[Format]string{
	FormatHTML: "html",
	FormatJSON: "json",
	FormatYAML: "yaml",
	FormatText: "text",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("Format(%d)", f)
}

// FormatValues returns every known format in declaration order.
func FormatValues() []Format {
	return []Format{FormatHTML, FormatJSON, FormatYAML, FormatText}
}

// FormatNames returns the names of [FormatValues].
func FormatNames() []string {
	values := FormatValues()
	names := make([]string, 0, len(values))
	for _, f := range values {
		names = append(names, f.String())
	}
	return names
}

// Render writes ix to w in the given format. opts applies to [FormatHTML]
// only.
func Render(w io.Writer, f Format, ix *kextinfo.Index, opts Options) error {
	switch f {
	case FormatHTML:
		return HTML(w, ix, opts)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Entries(ix))
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Entries(ix)); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		_, err := io.WriteString(w, ix.String())
		return err
	default:
		return fmt.Errorf("unknown report format %s", f)
	}
}
