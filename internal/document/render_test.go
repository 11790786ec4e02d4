package document

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name     string
		doc      Document
		expected string
	}{
		{
			name:     "empty document",
			doc:      Document{},
			expected: "",
		},
		{
			name:     "placeholder",
			doc:      Placeholder(),
			expected: "<p>EDIT ME</p>",
		},
		{
			name:     "empty paragraph",
			doc:      Document{Paragraphs: []Paragraph{{}}},
			expected: "<p></p>",
		},
		{
			name: "bold and italic",
			doc: Document{Paragraphs: []Paragraph{{Runs: []Run{
				{Text: "Bold and italic", Marks: []Mark{{Kind: MarkBold}, {Kind: MarkItalic}}},
			}}}},
			expected: "<p><strong><em>Bold and italic</em></strong></p>",
		},
		{
			name: "all marks",
			doc: Document{Paragraphs: []Paragraph{{Runs: []Run{
				{Text: "x", Marks: []Mark{{Kind: MarkCode}, {Kind: MarkStrike}, {Kind: MarkUnderline}, {Kind: MarkItalic}, {Kind: MarkBold}, {Kind: MarkLink, Href: "https://e.example"}}},
			}}}},
			expected: `<p><a href="https://e.example" class="underline" rel="noopener noreferrer nofollow" target="_blank"><strong><em><u><s><code>x</code></s></u></em></strong></a></p>`,
		},
		{
			name: "escapes text",
			doc: Document{Paragraphs: []Paragraph{{Runs: []Run{
				{Text: `<script>alert("x")</script>`, Marks: []Mark{{Kind: MarkBold}}},
			}}}},
			expected: "<p><strong>&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;</strong></p>",
		},
		{
			name: "escapes href",
			doc: Document{Paragraphs: []Paragraph{{Runs: []Run{
				{Text: "q", Marks: []Mark{{Kind: MarkLink, Href: `https://e.example/?a="><script>`}}},
			}}}},
			expected: `<p><a href="https://e.example/?a=&#34;&gt;&lt;script&gt;" class="underline" rel="noopener noreferrer nofollow" target="_blank">q</a></p>`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Render(tc.doc); got != tc.expected {
				t.Fatalf("Render() = %q, want %q", got, tc.expected)
			}
		})
	}
}

func TestRenderMarkOrderIndependent(t *testing.T) {
	a := Document{Paragraphs: []Paragraph{{Runs: []Run{{Text: "x", Marks: []Mark{{Kind: MarkBold}, {Kind: MarkItalic}}}}}}}
	b := Document{Paragraphs: []Paragraph{{Runs: []Run{{Text: "x", Marks: []Mark{{Kind: MarkItalic}, {Kind: MarkBold}}}}}}}
	if Render(a) != Render(b) {
		t.Fatalf("mark order changed output: %q vs %q", Render(a), Render(b))
	}
}

func TestRenderJSONIsTotal(t *testing.T) {
	inputs := []string{
		``,
		`null`,
		`[]`,
		`{"type":"doc","content":"nope"}`,
		`{"type":"paragraph"}`,
		`{"type":"doc","content":[{"type":"heading","content":[{"type":"text","text":"dropped"}]}]}`,
		`{"type":"doc","content":[{"type":"paragraph","content":[{"type":"image"},{"type":"text","text":"kept","marks":[{"type":"link","attrs":{"href":"javascript:x"}}]}]}]}`,
	}
	for _, in := range inputs {
		out := RenderJSON([]byte(in))
		if strings.Contains(out, "dropped") || strings.Contains(out, "javascript") {
			t.Fatalf("RenderJSON(%s) leaked unsupported content: %q", in, out)
		}
	}
	if got := RenderJSON([]byte(inputs[6])); got != "<p>kept</p>" {
		t.Fatalf("expected bad link to render as plain text, got %q", got)
	}
}

func TestRenderedLinksCarryHookAndHref(t *testing.T) {
	raw := `{"type":"doc","content":[{"type":"paragraph","content":[
		{"type":"text","text":"one","marks":[{"type":"link","attrs":{"href":"https://one.example"}}]},
		{"type":"text","text":" and "},
		{"type":"text","text":"two","marks":[{"type":"italic"},{"type":"link","attrs":{"href":"http://two.example/path?q=1&r=2"}}]}
	]}]}`
	doc, err := Parse([]byte(raw))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	root, err := html.Parse(strings.NewReader(Render(doc)))
	if err != nil {
		t.Fatalf("html.Parse() error = %v", err)
	}

	var hrefs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			t.Fatalf("rendered output contains a script element")
		}
		if n.Type == html.ElementNode && n.Data == "a" {
			attrs := map[string]string{}
			for _, a := range n.Attr {
				attrs[a.Key] = a.Val
			}
			if attrs["class"] != LinkClass {
				t.Fatalf("link missing underline hook: %+v", attrs)
			}
			hrefs = append(hrefs, attrs["href"])
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	want := []string{"https://one.example", "http://two.example/path?q=1&r=2"}
	if len(hrefs) != len(want) {
		t.Fatalf("expected %d links, got %v", len(want), hrefs)
	}
	for i := range want {
		if hrefs[i] != want[i] {
			t.Fatalf("href %d = %q, want %q", i, hrefs[i], want[i])
		}
	}
}
