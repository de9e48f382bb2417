package persona

// Persona captures the character the portal channels and the copy shown around it.
type Persona struct {
	ID          string `json:"id" toml:"id"`
	Name        string `json:"name" toml:"name"`
	Title       string `json:"title" toml:"title"`
	Tagline     string `json:"tagline" toml:"tagline"`
	Prompt      string `json:"prompt" toml:"prompt"`
	Placeholder string `json:"placeholder,omitempty" toml:"placeholder"`
}

// DefaultID names the persona used when none is configured.
const DefaultID = "revenant"

// Seed provides the built-in personas.
func Seed() []Persona {
	return []Persona{
		{
			ID:          DefaultID,
			Name:        "Ancestral Revenant",
			Title:       "Portal Interface",
			Tagline:     "Channel the Sassy Ancestral Revenant",
			Prompt:      "you are a sassy ancestral revenant",
			Placeholder: "Speak to the portal...",
		},
	}
}
