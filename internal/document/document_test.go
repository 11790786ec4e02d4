package document

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseAcceptsEditorJSON(t *testing.T) {
	raw := `{"type":"doc","content":[
		{"type":"paragraph","content":[
			{"type":"text","text":"Hello "},
			{"type":"text","text":"world","marks":[{"type":"bold"},{"type":"link","attrs":{"href":"https://example.com","target":"_blank"}}]}
		]},
		{"type":"paragraph"}
	]}`
	doc, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(doc.Paragraphs) != 2 {
		t.Fatalf("expected 2 paragraphs, got %d", len(doc.Paragraphs))
	}
	runs := doc.Paragraphs[0].Runs
	if len(runs) != 2 || runs[1].Text != "world" || len(runs[1].Marks) != 2 {
		t.Fatalf("unexpected runs: %+v", runs)
	}
	if runs[1].Marks[1].Href != "https://example.com" {
		t.Fatalf("expected href to survive, got %+v", runs[1].Marks[1])
	}
}

func TestParseRejects(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ``},
		{name: "null", raw: `null`},
		{name: "not json", raw: `<p>hi</p>`},
		{name: "wrong root", raw: `{"type":"paragraph"}`},
		{name: "heading block", raw: `{"type":"doc","content":[{"type":"heading","content":[{"type":"text","text":"x"}]}]}`},
		{name: "nested paragraph", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"paragraph"}]}]}`},
		{name: "unknown mark", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"highlight"}]}]}]}`},
		{name: "javascript link", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"javascript:alert(1)"}}]}]}]}`},
		{name: "link without href", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"link"}]}]}]}`},
		{name: "bare scheme", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"link","attrs":{"href":"https://"}}]}]}]}`},
		{name: "empty text", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":""}]}]}`},
		{name: "duplicate mark", raw: `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"bold"},{"type":"bold"}]}]}]}`},
		{name: "unknown field", raw: `{"type":"doc","html":"<script></script>"}`},
		{name: "text on root", raw: `{"type":"doc","text":"x"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			if err == nil {
				t.Fatalf("expected Parse(%s) to fail", tc.raw)
			}
			if !IsSchemaError(err) {
				t.Fatalf("expected *SchemaError, got %T: %v", err, err)
			}
		})
	}
}

func TestSchemaErrorPath(t *testing.T) {
	raw := `{"type":"doc","content":[{"type":"paragraph"},{"type":"paragraph","content":[{"type":"text","text":"x","marks":[{"type":"sup"}]}]}]}`
	_, err := Parse([]byte(raw))
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "content[1].content[0].marks[0]") {
		t.Fatalf("expected path in error, got %q", err.Error())
	}
}

func TestMarshalRoundTripKeepsShape(t *testing.T) {
	doc := Document{Paragraphs: []Paragraph{{Runs: []Run{
		{Text: "see", Marks: []Mark{{Kind: MarkItalic}, {Kind: MarkLink, Href: "http://a.example"}}},
	}}}}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(raw), `"type":"doc"`) || !strings.Contains(string(raw), `"href":"http://a.example"`) {
		t.Fatalf("unexpected wire JSON: %s", raw)
	}
	back, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if Render(back) != Render(doc) {
		t.Fatalf("render changed after round trip: %q vs %q", Render(back), Render(doc))
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(Placeholder()); err != nil {
		t.Fatalf("placeholder should validate: %v", err)
	}
	bad := Document{Paragraphs: []Paragraph{{Runs: []Run{{Text: "x", Marks: []Mark{{Kind: MarkLink, Href: "ftp://x"}}}}}}}
	if err := Validate(bad); !IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
	unknown := Document{Paragraphs: []Paragraph{{Runs: []Run{{Text: "x", Marks: []Mark{{Kind: "blink"}}}}}}}
	if err := Validate(unknown); !IsSchemaError(err) {
		t.Fatalf("expected schema error, got %v", err)
	}
}

func TestPlainText(t *testing.T) {
	raw := `{"type":"doc","content":[{"type":"paragraph","content":[{"type":"text","text":"a"},{"type":"text","text":"b","marks":[{"type":"code"}]}]},{"type":"paragraph","content":[{"type":"text","text":"c"}]}]}`
	if got := PlainTextJSON([]byte(raw)); got != "ab\nc" {
		t.Fatalf("PlainTextJSON() = %q", got)
	}
}
