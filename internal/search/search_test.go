package search

import (
	"testing"

	"github.com/veletic/gatehouse/internal/domain"
)

func person(identifier, fname, lname string) domain.PersonStatus {
	return domain.PersonStatus{
		Person: domain.Person{
			Identifier: identifier,
			Type:       domain.TypeStudent,
			Fname:      fname,
			Lname:      lname,
		},
		State: domain.StateOutside,
	}
}

func identifiers(statuses []domain.PersonStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = s.Identifier
	}
	return out
}

func TestRankEmptyQueryReturnsAllByIdentifier(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	persons := []domain.PersonStatus{
		person("300/2021", "Mila", "Simic"),
		person("100/2020", "John", "Doe"),
		person("200/2019", "Jane", "Smith"),
	}

	got := engine.Rank("", persons)
	if len(got) != 3 {
		t.Fatalf("expected all 3 persons, got %d", len(got))
	}
	want := []string{"100/2020", "200/2019", "300/2021"}
	for i, id := range identifiers(got) {
		if id != want[i] {
			t.Errorf("position %d: got %q, want %q", i, id, want[i])
		}
	}
}

func TestRankFuzzyQuery(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	persons := []domain.PersonStatus{
		person("200/2019", "Jane", "Smith"),
		person("100/2020", "John", "Doe"),
	}

	got := engine.Rank("Jhn Doe", persons)
	if len(got) == 0 {
		t.Fatal("expected John Doe to be included")
	}
	if got[0].Fname != "John" {
		t.Errorf("expected John Doe first, got %s %s", got[0].Fname, got[0].Lname)
	}
	for _, s := range got {
		if s.Fname == "Jane" {
			t.Error("Jane Smith should not match query \"Jhn Doe\"")
		}
	}
}

func TestRankReorderedName(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	persons := []domain.PersonStatus{
		person("100/2020", "John", "Doe"),
	}

	// "Doe John" matches the lname+fname variant exactly.
	got := engine.Rank("Doe John", persons)
	if len(got) != 1 {
		t.Fatalf("expected reordered query to match, got %d results", len(got))
	}
}

func TestRankDiacriticFolding(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	persons := []domain.PersonStatus{
		person("100/2020", "Đorđe", "Čolić"),
	}

	got := engine.Rank("djordje colic", persons)
	if len(got) != 1 {
		t.Fatalf("expected folded query to match diacritic name, got %d results", len(got))
	}
}

func TestRankSubstringInclusion(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	persons := []domain.PersonStatus{
		person("100/2020", "Aleksandra", "Petrovic"),
	}

	// Too far for the distance thresholds, but a clean substring.
	got := engine.Rank("petrov", persons)
	if len(got) != 1 {
		t.Fatalf("expected substring match, got %d results", len(got))
	}
}

func TestRankIdentifierTieBreak(t *testing.T) {
	engine := NewEngine(DefaultThresholds())
	persons := []domain.PersonStatus{
		person("200/2020", "Ana", "Ivanov"),
		person("100/2020", "Ana", "Ivanov"),
	}

	got := engine.Rank("Ana Ivanov", persons)
	if len(got) != 2 {
		t.Fatalf("expected both duplicates to match, got %d", len(got))
	}
	if got[0].Identifier != "100/2020" {
		t.Errorf("expected identifier tie-break ascending, got %q first", got[0].Identifier)
	}
}
