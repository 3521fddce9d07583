package lexicon

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLexiconNew(t *testing.T) {
	lex := New()
	if lex == nil {
		t.Fatal("New() returned nil")
	}
	if stats := lex.Stats(); stats.Lemmas != 0 {
		t.Errorf("New lexicon should have 0 lemma groups, got %d", stats.Lemmas)
	}
}

func TestLexiconAddLemmaGroup(t *testing.T) {
	lex := New()
	lex.AddLemmaGroup("gato", []string{"gatos", "Gata", "gatas", "gatos"})

	for _, form := range []string{"gatos", "GATA", "gatas", "gato"} {
		if got := lex.Lemma(form); got != "gato" {
			t.Errorf("Lemma(%q) = %q, want 'gato'", form, got)
		}
	}
	if got := lex.Lemma("Congreso"); got != "congreso" {
		t.Errorf("unknown forms should be lowercased, got %q", got)
	}
	if forms := lex.Forms("gatas"); len(forms) != 4 {
		t.Errorf("Forms('gatas') returned %d forms, want 4", len(forms))
	}
	if !lex.Known("gata") || lex.Known("perro") {
		t.Error("Known() mismatch")
	}
}

func TestLexiconReplaceGroup(t *testing.T) {
	lex := New()
	lex.AddLemmaGroup("ser", []string{"fue", "era"})
	lex.AddLemmaGroup("ser", []string{"es"})

	if lex.Known("fue") {
		t.Error("old forms should be removed when a group is replaced")
	}
	if got := lex.Lemma("es"); got != "ser" {
		t.Errorf("Lemma('es') = %q, want 'ser'", got)
	}
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lemmas.yaml")
	content := `lemmas:
  - lemma: gato
    forms: [gatos, gata, gatas]
  - lemma: ir
    forms: [fue, va, van]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	lex, err := LoadFromYAML(path)
	if err != nil {
		t.Fatalf("LoadFromYAML: %v", err)
	}
	if got := lex.Lemma("van"); got != "ir" {
		t.Errorf("Lemma('van') = %q, want 'ir'", got)
	}
	if stats := lex.Stats(); stats.Lemmas != 2 || stats.Forms != 8 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestParseRejectsEmptyLemma(t *testing.T) {
	if _, err := Parse([]byte("lemmas:\n  - forms: [x]\n")); err == nil {
		t.Error("expected error for empty lemma")
	}
	if _, err := Parse([]byte("lemmas: [")); err == nil {
		t.Error("expected error for invalid yaml")
	}
}
