package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/leodido/kextinfo"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Options controls the HTML page.
type Options struct {
	// Title is the page title.
	Title string
	// Stylesheet is linked from the page head when non-empty.
	Stylesheet string
	// Kernel is shown in a caption when non-empty.
	Kernel string
}

// DefaultOptions returns the options used by the kextinfo command.
func DefaultOptions() Options {
	return Options{
		Title:      "kextstat",
		Stylesheet: "shiny.css",
	}
}

var columns = []string{
	"index", "version", "name", "refs", "address", "size", "wired", "uuid", "linked against", "linked by",
}

// AnchorID returns the id of the table row for the extension with the
// given index.
func AnchorID(index int) string {
	return "stat-" + strconv.Itoa(index)
}

// HTML writes ix as a single-table HTML page. Every row is addressable by
// [AnchorID] and every resolved relationship links to its row.
func HTML(w io.Writer, ix *kextinfo.Index, opts Options) error {
	doc := NewDocument("en")
	p := message.NewPrinter(language.English)

	head := doc.Head()
	head.Append(
		doc.Element("meta").SetAttr("charset", "UTF-8"),
		doc.Element("title").SetText(opts.Title),
		doc.Element("meta").SetAttr("name", "viewport").SetAttr("content", "width=device-width,initial-scale=1"),
	)
	if opts.Stylesheet != "" {
		head.Append(doc.Element("link").SetAttr("rel", "stylesheet").SetAttr("href", opts.Stylesheet))
	}

	table := doc.Element("table")
	if opts.Kernel != "" {
		table.Append(doc.Element("caption").SetText("Kernel " + opts.Kernel))
	}

	tr := doc.Element("tr")
	for _, c := range columns {
		tr.Append(doc.Element("th").SetText(c))
	}
	table.Append(doc.Element("thead").Append(tr))

	tbody := doc.Element("tbody")
	for _, e := range ix.Extensions() {
		row := doc.Element("tr").SetAttr("id", AnchorID(e.Index))
		row.Append(
			cell(doc, "index", strconv.Itoa(e.Index)),
			cell(doc, "version", e.Version),
			cell(doc, "name", e.Name),
			cell(doc, "refs", strconv.Itoa(e.Refs)),
			cell(doc, "address", formatAddress(e.Address)),
			cell(doc, "size", formatSize(e.Size)),
			cell(doc, "wired", formatSize(e.Wired)),
			cell(doc, "uuid", e.UUID.String()),
			relationCell(doc, p, "linked-against", ix.LinkedAgainst(e.Index)),
			relationCell(doc, p, "linked-by", ix.LinkedBy(e.Index)),
		)
		tbody.Append(row)
	}
	table.Append(tbody)
	doc.Body().Append(table)

	return doc.Render(w)
}

func cell(doc Document, class, text string) Element {
	return doc.Element("td").SetAttr("class", "cell-"+class).SetText(text)
}

// relationCell lists refs in a collapsible block, or "none".
func relationCell(doc Document, p *message.Printer, class string, refs []kextinfo.Reference) Element {
	td := doc.Element("td").SetAttr("class", "cell-"+class)
	if len(refs) == 0 {
		return td.AppendText("none")
	}

	ul := doc.Element("ul")
	for _, r := range refs {
		label := fmt.Sprintf("%d: %s", r.Index, r.Extension.Name)
		li := doc.Element("li")
		if r.Resolved {
			li.Append(doc.Element("a").SetAttr("href", "#"+AnchorID(r.Index)).SetText(label))
		} else {
			li.SetAttr("class", "dangling").SetText(r.String())
		}
		ul.Append(li)
	}

	details := doc.Element("details").Append(
		doc.Element("summary").SetText(p.Sprintf("%d items", len(refs))),
		ul,
	)
	return td.Append(details)
}
