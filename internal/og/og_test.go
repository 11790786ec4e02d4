package og

import (
	"context"
	"errors"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		want    Params
		wantErr bool
	}{
		{
			name:  "valid",
			query: "theme=2&name=Ada&image=https%3A%2F%2Fimg.example%2Fa.png",
			want:  Params{Theme: 2, Name: "Ada", Image: "https://img.example/a.png"},
		},
		{
			name:  "name cut to sixteen runes",
			query: "theme=0&name=" + url.QueryEscape("ÅåÅåÅåÅåÅåÅåÅåÅåXYZ") + "&image=http%3A%2F%2Fx.io%2Fa",
			want:  Params{Theme: 0, Name: "ÅåÅåÅåÅåÅåÅåÅåÅå", Image: "http://x.io/a"},
		},
		{name: "missing name", query: "theme=1&image=https%3A%2F%2Fx.io", wantErr: true},
		{name: "missing image", query: "theme=1&name=Ada", wantErr: true},
		{name: "missing theme", query: "name=Ada&image=https%3A%2F%2Fx.io", wantErr: true},
		{name: "theme not a number", query: "theme=dark&name=Ada&image=https%3A%2F%2Fx.io", wantErr: true},
		{name: "theme six is out of range", query: "theme=6&name=Ada&image=https%3A%2F%2Fx.io", wantErr: true},
		{name: "negative theme", query: "theme=-1&name=Ada&image=https%3A%2F%2Fx.io", wantErr: true},
		{name: "file image", query: "theme=1&name=Ada&image=file%3A%2F%2F%2Fetc%2Fpasswd", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got, err := ParseParams(values)
			if tt.wantErr {
				if !errors.Is(err, ErrBadParams) {
					t.Fatalf("expected ErrBadParams, got %v (%+v)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseParams() error = %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParseParams() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestURLRoundTripsThroughParseParams(t *testing.T) {
	p := Params{Theme: 4, Name: "Ada & Co", Image: "https://img.example/a.png?s=50"}
	raw := URL("https://faq.example/", p)
	if !strings.HasPrefix(raw, "https://faq.example/api/og?") {
		t.Fatalf("unexpected url: %s", raw)
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	got, err := ParseParams(parsed.Query())
	if err != nil || got != p {
		t.Fatalf("round trip = %+v, %v", got, err)
	}
}

func TestKeyDependsOnEveryParam(t *testing.T) {
	base := Params{Theme: 1, Name: "Ada", Image: "https://x.io/a"}
	seen := map[string]bool{base.Key(): true}
	for _, p := range []Params{
		{Theme: 2, Name: "Ada", Image: "https://x.io/a"},
		{Theme: 1, Name: "Bob", Image: "https://x.io/a"},
		{Theme: 1, Name: "Ada", Image: "https://x.io/b"},
	} {
		if seen[p.Key()] {
			t.Fatalf("key collision for %+v", p)
		}
		seen[p.Key()] = true
	}
	if base.Key() != base.Key() || !strings.HasSuffix(base.Key(), ".png") {
		t.Fatalf("key must be stable png name, got %s", base.Key())
	}
}

func TestCardHTMLUsesThemeColoursAndEscapes(t *testing.T) {
	html, err := CardHTML(Params{Theme: 2, Name: "<b>Ada</b>", Image: "https://x.io/a.png"})
	if err != nil {
		t.Fatalf("CardHTML() error = %v", err)
	}
	for _, want := range []string{"#ffffff", "#262626", "&lt;b&gt;Ada&lt;/b&gt;", "Frequently Asked Questions", `src="https://x.io/a.png"`} {
		if !strings.Contains(html, want) {
			t.Fatalf("card html missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<b>Ada</b>") {
		t.Fatal("name must be escaped")
	}
}

func TestDataURLEncodesSpaces(t *testing.T) {
	got := dataURL("<p>a b</p>")
	if got != "data:text/html;charset=utf-8,%3Cp%3Ea%20b%3C%2Fp%3E" {
		t.Fatalf("dataURL() = %s", got)
	}
}

type fakeRenderer struct {
	calls int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, html string) ([]byte, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + html[:15]), nil
}

type memoryCache struct {
	items  map[string][]byte
	getErr error
	putErr error
}

func (m *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	data, ok := m.items[key]
	return data, ok, nil
}

func (m *memoryCache) Put(_ context.Context, key string, data []byte) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.items[key] = data
	return nil
}

func TestGeneratorReadsThroughCache(t *testing.T) {
	renderer := &fakeRenderer{}
	cache := &memoryCache{items: map[string][]byte{}}
	gen := NewGenerator(renderer, cache, zerolog.Nop())
	p := Params{Theme: 0, Name: "Ada", Image: "https://x.io/a"}

	first, err := gen.Generate(context.Background(), p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	second, err := gen.Generate(context.Background(), p)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if renderer.calls != 1 || string(first) != string(second) {
		t.Fatalf("expected one render and identical bytes, calls=%d", renderer.calls)
	}
}

func TestGeneratorSurvivesCacheFailures(t *testing.T) {
	renderer := &fakeRenderer{}
	cache := &memoryCache{items: map[string][]byte{}, getErr: errors.New("down"), putErr: errors.New("down")}
	gen := NewGenerator(renderer, cache, zerolog.Nop())

	if _, err := gen.Generate(context.Background(), Params{Theme: 0, Name: "Ada", Image: "https://x.io/a"}); err != nil {
		t.Fatalf("cache failures must not fail generation: %v", err)
	}
}

func TestGeneratorReturnsRenderError(t *testing.T) {
	gen := NewGenerator(&fakeRenderer{err: ErrChromeMissing}, nil, zerolog.Nop())
	if _, err := gen.Generate(context.Background(), Params{Name: "Ada", Image: "https://x.io/a"}); !errors.Is(err, ErrChromeMissing) {
		t.Fatalf("expected ErrChromeMissing, got %v", err)
	}
}

func TestChromeRendererProducesPNG(t *testing.T) {
	if os.Getenv("FAQPAGE_TEST_CHROME") == "" || !Available() {
		t.Skip("FAQPAGE_TEST_CHROME is not set or chromium is missing")
	}
	png, err := NewChromeRenderer(0).Render(context.Background(), "<html><body style=\"background:#fee2e2\"></body></html>")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if len(png) < 8 || string(png[1:4]) != "PNG" {
		t.Fatalf("expected png bytes, got %d bytes", len(png))
	}
}
