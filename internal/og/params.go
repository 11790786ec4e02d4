// Package og builds the social preview card for a public page.
package og

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"strings"

	"faqpage/internal/theme"
)

const (
	Width  = 1200
	Height = 630

	// MaxNameRunes is how much of the display name fits on the card.
	MaxNameRunes = 16
)

var ErrBadParams = errors.New("invalid og parameters")

type Params struct {
	Theme int
	Name  string
	Image string
}

// ParseParams reads theme, name and image from a query string. All three are
// required; the name is cut to MaxNameRunes.
func ParseParams(values url.Values) (Params, error) {
	name := strings.TrimSpace(values.Get("name"))
	image := strings.TrimSpace(values.Get("image"))
	rawTheme := strings.TrimSpace(values.Get("theme"))
	if name == "" || image == "" || rawTheme == "" {
		return Params{}, ErrBadParams
	}

	themeID, err := strconv.Atoi(rawTheme)
	if err != nil || !theme.Valid(themeID) {
		return Params{}, ErrBadParams
	}

	parsed, err := url.Parse(image)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return Params{}, ErrBadParams
	}

	return Params{Theme: themeID, Name: truncate(name, MaxNameRunes), Image: image}, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// Query encodes p the way ParseParams reads it.
func (p Params) Query() url.Values {
	return url.Values{
		"theme": {strconv.Itoa(p.Theme)},
		"name":  {p.Name},
		"image": {p.Image},
	}
}

// URL returns the card endpoint for p under baseURL.
func URL(baseURL string, p Params) string {
	return strings.TrimRight(baseURL, "/") + "/api/og?" + p.Query().Encode()
}

// Key names the cached PNG for p.
func (p Params) Key() string {
	sum := sha256.Sum256([]byte(strconv.Itoa(p.Theme) + "\x00" + p.Name + "\x00" + p.Image))
	return "og/" + hex.EncodeToString(sum[:]) + ".png"
}
