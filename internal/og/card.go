package og

import (
	"bytes"
	"html/template"

	"faqpage/internal/theme"
)

var cardTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    html, body { margin: 0; width: {{.Width}}px; height: {{.Height}}px; }
    body {
      display: flex; flex-direction: column; align-items: center; justify-content: center;
      font-family: Arial, sans-serif; font-weight: 600;
      color: {{.Foreground}}; background-color: {{.Background}};
    }
    img { width: 300px; height: 300px; border-radius: 150px; object-fit: cover; }
    .name { margin-top: 20px; font-size: 72px; }
    .title { margin-top: 20px; font-size: 52px; }
  </style>
</head>
<body>
  <img src="{{.Image}}" alt="">
  <div class="name">{{.Name}}</div>
  <div class="title">Frequently Asked Questions</div>
</body>
</html>`))

type cardData struct {
	Width      int
	Height     int
	Foreground template.CSS
	Background template.CSS
	Image      string
	Name       string
}

// CardHTML renders the card markup for p.
func CardHTML(p Params) (string, error) {
	th := theme.Get(p.Theme)
	var buf bytes.Buffer
	err := cardTemplate.Execute(&buf, cardData{
		Width:      Width,
		Height:     Height,
		Foreground: template.CSS(th.Foreground),
		Background: template.CSS(th.Background),
		Image:      p.Image,
		Name:       p.Name,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
