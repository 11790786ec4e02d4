// Package page renders public FAQ pages and caches the rendered HTML.
package page

import (
	"html/template"
	"strconv"
	"strings"

	"faqpage/internal/document"
	"faqpage/internal/handle"
	"faqpage/internal/og"
	"faqpage/internal/store"
	"faqpage/internal/theme"
)

// View is the render-ready form of a public page, also served as JSON.
type View struct {
	Handle      string         `json:"handle"`
	Name        string         `json:"name"`
	AvatarURL   string         `json:"avatarUrl,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Canonical   string         `json:"canonical"`
	OGImage     string         `json:"ogImage,omitempty"`
	Boxed       bool           `json:"isBoxed"`
	Numbered    bool           `json:"isNumbered"`
	Theme       theme.Theme    `json:"-"`
	ThemeID     int            `json:"theme"`
	Questions   []QuestionView `json:"questions"`
}

type QuestionView struct {
	Text       string        `json:"text"`
	AnswerHTML template.HTML `json:"answerHtml"`
}

// Build turns a stored page into a View. baseURL is the public origin used for the
// canonical link and the OG image.
func Build(p store.Page, baseURL string) View {
	name := strings.TrimSpace(p.DisplayName)
	if name == "" {
		name = p.Handle
	}
	baseURL = strings.TrimRight(baseURL, "/")

	v := View{
		Handle:      p.Handle,
		Name:        name,
		AvatarURL:   p.AvatarURL,
		Title:       name + "'s Frequently Asked Questions Page",
		Description: "Find answers to questions " + name + " gets the most often. Powered by My FAQ Page",
		Canonical:   baseURL + handle.Path(p.Handle),
		Boxed:       p.Settings.Boxed,
		Numbered:    p.Settings.Numbered,
		Theme:       theme.Get(p.Settings.Theme),
		ThemeID:     theme.Get(p.Settings.Theme).ID,
		Questions:   make([]QuestionView, 0, len(p.Questions)),
	}
	if strings.TrimSpace(p.DisplayName) != "" && p.AvatarURL != "" {
		v.OGImage = og.URL(baseURL, og.Params{
			Theme: v.ThemeID,
			Name:  p.DisplayName,
			Image: p.AvatarURL,
		})
	}

	for i, q := range p.Questions {
		text := q.Text
		if v.Numbered {
			text = strconv.Itoa(i+1) + ". " + text
		}
		v.Questions = append(v.Questions, QuestionView{
			Text:       text,
			AnswerHTML: template.HTML(document.RenderJSON(q.Answer)),
		})
	}
	return v
}
