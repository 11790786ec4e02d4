// Package document defines the restricted rich-text answer format and renders it to
// safe HTML for public pages.
//
// A document is a single root holding paragraphs; a paragraph holds text runs; a run
// carries a set of marks. Nothing outside that grammar survives validation.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// MarkKind is the closed set of inline formats a run can carry.
type MarkKind string

const (
	MarkBold      MarkKind = "bold"
	MarkItalic    MarkKind = "italic"
	MarkUnderline MarkKind = "underline"
	MarkStrike    MarkKind = "strike"
	MarkCode      MarkKind = "code"
	MarkLink      MarkKind = "link"
)

// wrapOrder is outermost first. Rendering always follows it so the authored order of
// marks within a run never changes the output.
var wrapOrder = []MarkKind{MarkLink, MarkBold, MarkItalic, MarkUnderline, MarkStrike, MarkCode}

func knownMark(kind MarkKind) bool {
	for _, k := range wrapOrder {
		if k == kind {
			return true
		}
	}
	return false
}

// Mark is a single inline format. Href is only meaningful for MarkLink.
type Mark struct {
	Kind MarkKind
	Href string
}

// Run is a span of text sharing one set of marks.
type Run struct {
	Text  string
	Marks []Mark
}

// Paragraph is a block of runs.
type Paragraph struct {
	Runs []Run
}

// Document is the root of an answer.
type Document struct {
	Paragraphs []Paragraph
}

const (
	nodeDoc       = "doc"
	nodeParagraph = "paragraph"
	nodeText      = "text"
)

// wireNode is the editor JSON shape (tiptap / ProseMirror).
type wireNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []wireNode     `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []wireMark     `json:"marks,omitempty"`
}

type wireMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// Placeholder is the answer given to newly created questions.
func Placeholder() Document {
	return Document{Paragraphs: []Paragraph{{Runs: []Run{{Text: "EDIT ME"}}}}}
}

// Parse decodes editor JSON and validates it. Any violation is returned as *SchemaError.
func Parse(raw []byte) (Document, error) {
	var doc Document
	if err := doc.UnmarshalJSON(raw); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// UnmarshalJSON decodes strictly: the result is either a valid document or a *SchemaError.
func (d *Document) UnmarshalJSON(raw []byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return schemaErr("", "document is required")
	}
	var root wireNode
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&root); err != nil {
		return schemaErr("", fmt.Sprintf("malformed document: %v", err))
	}
	doc, err := fromWire(root)
	if err != nil {
		return err
	}
	*d = doc
	return nil
}

// MarshalJSON emits the editor JSON shape.
func (d Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.toWire())
}

func (d Document) toWire() wireNode {
	root := wireNode{Type: nodeDoc, Content: make([]wireNode, 0, len(d.Paragraphs))}
	for _, p := range d.Paragraphs {
		para := wireNode{Type: nodeParagraph}
		for _, run := range p.Runs {
			text := wireNode{Type: nodeText, Text: run.Text}
			for _, kind := range wrapOrder {
				mark, ok := findMark(run.Marks, kind)
				if !ok {
					continue
				}
				wm := wireMark{Type: string(kind)}
				if kind == MarkLink {
					wm.Attrs = map[string]any{"href": mark.Href}
				}
				text.Marks = append(text.Marks, wm)
			}
			para.Content = append(para.Content, text)
		}
		root.Content = append(root.Content, para)
	}
	return root
}

// fromWire converts and validates in one pass.
func fromWire(root wireNode) (Document, error) {
	if root.Type != nodeDoc {
		return Document{}, schemaErr("", fmt.Sprintf("root must be %q, got %q", nodeDoc, root.Type))
	}
	if root.Text != "" || len(root.Marks) > 0 {
		return Document{}, schemaErr("", "root cannot carry text or marks")
	}
	doc := Document{Paragraphs: make([]Paragraph, 0, len(root.Content))}
	for i, child := range root.Content {
		path := fmt.Sprintf("content[%d]", i)
		if child.Type != nodeParagraph {
			return Document{}, schemaErr(path, fmt.Sprintf("unsupported block %q", child.Type))
		}
		if child.Text != "" || len(child.Marks) > 0 {
			return Document{}, schemaErr(path, "paragraph cannot carry text or marks")
		}
		para := Paragraph{Runs: make([]Run, 0, len(child.Content))}
		for j, inline := range child.Content {
			run, err := runFromWire(inline, fmt.Sprintf("%s.content[%d]", path, j))
			if err != nil {
				return Document{}, err
			}
			para.Runs = append(para.Runs, run)
		}
		doc.Paragraphs = append(doc.Paragraphs, para)
	}
	return doc, nil
}

func runFromWire(node wireNode, path string) (Run, error) {
	if node.Type != nodeText {
		return Run{}, schemaErr(path, fmt.Sprintf("unsupported inline %q", node.Type))
	}
	if len(node.Content) > 0 {
		return Run{}, schemaErr(path, "text cannot have children")
	}
	if node.Text == "" {
		return Run{}, schemaErr(path, "text cannot be empty")
	}
	run := Run{Text: node.Text, Marks: make([]Mark, 0, len(node.Marks))}
	for k, wm := range node.Marks {
		markPath := fmt.Sprintf("%s.marks[%d]", path, k)
		kind := MarkKind(wm.Type)
		if !knownMark(kind) {
			return Run{}, schemaErr(markPath, fmt.Sprintf("unsupported mark %q", wm.Type))
		}
		if _, dup := findMark(run.Marks, kind); dup {
			return Run{}, schemaErr(markPath, fmt.Sprintf("duplicate mark %q", wm.Type))
		}
		mark := Mark{Kind: kind}
		if kind == MarkLink {
			href, _ := wm.Attrs["href"].(string)
			if !validHref(href) {
				return Run{}, schemaErr(markPath, "link href must start with http:// or https://")
			}
			mark.Href = href
		}
		run.Marks = append(run.Marks, mark)
	}
	return run, nil
}

func findMark(marks []Mark, kind MarkKind) (Mark, bool) {
	for _, m := range marks {
		if m.Kind == kind {
			return m, true
		}
	}
	return Mark{}, false
}
