// Package theme holds the six page themes shared by the public page and the OG card.
package theme

// Count is the number of themes; valid ids are 0..Count-1.
const Count = 6

type Theme struct {
	ID   int
	Name string

	// Utility classes for the page shell, boxed question cards, question text in
	// the plain layout, and answer text.
	Page     string
	Box      string
	Question string
	Answer   string

	// Card colours for the OG image.
	Foreground string
	Background string
}

var themes = [Count]Theme{
	{
		ID: 0, Name: "Light",
		Page:       "bg-white text-black",
		Box:        "rounded-2xl border-2 border-neutral-500 bg-neutral-100 p-4 shadow",
		Question:   "text-black",
		Answer:     "text-neutral-800",
		Foreground: "#000000", Background: "#ffffff",
	},
	{
		ID: 1, Name: "Minimal",
		Page:       "bg-white text-black",
		Box:        "",
		Question:   "text-black",
		Answer:     "text-neutral-800",
		Foreground: "#000000", Background: "#ffffff",
	},
	{
		ID: 2, Name: "Dim",
		Page:       "bg-neutral-800 text-white",
		Box:        "rounded-lg bg-neutral-700 p-4",
		Question:   "text-white",
		Answer:     "text-neutral-200",
		Foreground: "#ffffff", Background: "#262626",
	},
	{
		ID: 3, Name: "Dark",
		Page:       "bg-black text-white",
		Box:        "rounded-lg bg-neutral-900 p-4",
		Question:   "text-white",
		Answer:     "text-neutral-200",
		Foreground: "#ffffff", Background: "#000000",
	},
	{
		ID: 4, Name: "Rose",
		Page:       "bg-red-100 text-black",
		Box:        "rounded-2xl bg-red-200 p-4",
		Question:   "text-black",
		Answer:     "text-red-900",
		Foreground: "#000000", Background: "#fee2e2",
	},
	{
		ID: 5, Name: "Lemon",
		Page:       "bg-yellow-100 text-black",
		Box:        "rounded-2xl border-2 border-orange-300 bg-orange-100 p-4",
		Question:   "text-black",
		Answer:     "text-yellow-900",
		Foreground: "#000000", Background: "#fef9c3",
	},
}

func Valid(id int) bool {
	return id >= 0 && id < Count
}

// Get returns the theme with id, or the default theme for an unknown id.
func Get(id int) Theme {
	if !Valid(id) {
		return themes[0]
	}
	return themes[id]
}

// All returns every theme in id order.
func All() []Theme {
	out := make([]Theme, Count)
	copy(out, themes[:])
	return out
}
