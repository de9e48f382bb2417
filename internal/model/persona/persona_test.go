package persona

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSeedContainsDefaultPersona(t *testing.T) {
	store := NewMemoryStore(Seed())

	p, ok := store.FindByID(DefaultID)
	if !ok {
		t.Fatal("default persona missing from seed")
	}
	if p.Prompt != "you are a sassy ancestral revenant" {
		t.Fatalf("unexpected prompt: %q", p.Prompt)
	}
}

func TestMemoryStoreLaterEntriesOverride(t *testing.T) {
	store := NewMemoryStore([]Persona{
		{ID: "a", Prompt: "first"},
		{ID: "b", Prompt: "other"},
		{ID: "a", Prompt: "second"},
	})

	if got := len(store.List()); got != 2 {
		t.Fatalf("expected 2 personas, got %d", got)
	}
	p, _ := store.FindByID("a")
	if p.Prompt != "second" {
		t.Fatalf("expected override, got %q", p.Prompt)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "personas.toml")
	content := `
[[persona]]
id = "lich"
name = "Weary Lich"
prompt = "you are a weary lich"
tagline = "Disturb the crypt"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile err: %v", err)
	}

	items, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile err: %v", err)
	}
	if len(items) != 1 || items[0].ID != "lich" {
		t.Fatalf("unexpected personas: %+v", items)
	}
	if items[0].Title != "Weary Lich" {
		t.Fatalf("title should default to name, got %q", items[0].Title)
	}
}

func TestParseRejectsMissingPrompt(t *testing.T) {
	if _, err := Parse("[[persona]]\nid = \"mute\"\n"); err == nil {
		t.Fatal("expected error for persona without prompt")
	}
}
