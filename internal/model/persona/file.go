package persona

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

type personaFile struct {
	Personas []Persona `toml:"persona"`
}

// LoadFile reads personas from a TOML file made of [[persona]] tables.
//
//	[[persona]]
//	id = "lich"
//	title = "Crypt Interface"
//	prompt = "you are a weary lich"
func LoadFile(path string) ([]Persona, error) {
	var file personaFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("decode persona file %s: %w", path, err)
	}

	return validate(file.Personas)
}

// Parse decodes personas from TOML text.
func Parse(data string) ([]Persona, error) {
	var file personaFile
	if _, err := toml.Decode(data, &file); err != nil {
		return nil, fmt.Errorf("decode personas: %w", err)
	}

	return validate(file.Personas)
}

func validate(items []Persona) ([]Persona, error) {
	for i := range items {
		items[i].ID = strings.TrimSpace(items[i].ID)
		if items[i].ID == "" {
			return nil, fmt.Errorf("persona #%d: id is required", i+1)
		}
		if strings.TrimSpace(items[i].Prompt) == "" {
			return nil, fmt.Errorf("persona %q: prompt is required", items[i].ID)
		}
		if items[i].Title == "" {
			items[i].Title = items[i].Name
		}
	}
	return items, nil
}
