package document

import (
	"encoding/json"
	"html"
	"strings"
)

// LinkClass is the styling hook every rendered link carries.
const LinkClass = "underline"

// Render converts a document to HTML. Text is escaped before any mark wraps it.
func Render(doc Document) string {
	var b strings.Builder
	for _, p := range doc.Paragraphs {
		b.WriteString("<p>")
		for _, run := range p.Runs {
			b.WriteString(renderRun(run))
		}
		b.WriteString("</p>")
	}
	return b.String()
}

func renderRun(run Run) string {
	if run.Text == "" {
		return ""
	}
	out := html.EscapeString(run.Text)
	// innermost first
	for i := len(wrapOrder) - 1; i >= 0; i-- {
		mark, ok := findMark(run.Marks, wrapOrder[i])
		if !ok {
			continue
		}
		switch mark.Kind {
		case MarkBold:
			out = "<strong>" + out + "</strong>"
		case MarkItalic:
			out = "<em>" + out + "</em>"
		case MarkUnderline:
			out = "<u>" + out + "</u>"
		case MarkStrike:
			out = "<s>" + out + "</s>"
		case MarkCode:
			out = "<code>" + out + "</code>"
		case MarkLink:
			if !validHref(mark.Href) {
				continue
			}
			out = `<a href="` + html.EscapeString(mark.Href) + `" class="` + LinkClass +
				`" rel="noopener noreferrer nofollow" target="_blank">` + out + "</a>"
		}
	}
	return out
}

// RenderJSON renders stored editor JSON. It never fails: malformed input yields "",
// unsupported nodes are dropped and unusable marks are ignored.
func RenderJSON(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var root wireNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return ""
	}
	return Render(lenient(root))
}

func lenient(root wireNode) Document {
	if root.Type != nodeDoc {
		return Document{}
	}
	var doc Document
	for _, child := range root.Content {
		if child.Type != nodeParagraph {
			continue
		}
		var para Paragraph
		for _, inline := range child.Content {
			if inline.Type != nodeText || inline.Text == "" {
				continue
			}
			run := Run{Text: inline.Text}
			for _, wm := range inline.Marks {
				kind := MarkKind(wm.Type)
				if !knownMark(kind) {
					continue
				}
				if _, dup := findMark(run.Marks, kind); dup {
					continue
				}
				mark := Mark{Kind: kind}
				if kind == MarkLink {
					mark.Href, _ = wm.Attrs["href"].(string)
					if !validHref(mark.Href) {
						continue
					}
				}
				run.Marks = append(run.Marks, mark)
			}
			para.Runs = append(para.Runs, run)
		}
		doc.Paragraphs = append(doc.Paragraphs, para)
	}
	return doc
}

// PlainText flattens a document to text, one line per paragraph.
func PlainText(doc Document) string {
	lines := make([]string, 0, len(doc.Paragraphs))
	for _, p := range doc.Paragraphs {
		var b strings.Builder
		for _, run := range p.Runs {
			b.WriteString(run.Text)
		}
		lines = append(lines, b.String())
	}
	return strings.Join(lines, "\n")
}

// PlainTextJSON is PlainText over stored editor JSON, with RenderJSON's leniency.
func PlainTextJSON(raw []byte) string {
	var root wireNode
	if err := json.Unmarshal(raw, &root); err != nil {
		return ""
	}
	return PlainText(lenient(root))
}
