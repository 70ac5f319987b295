package importer

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lthms/thoughtpool/internal/store"
)

func openStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.Config{DBPath: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestCategories(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	in := "show_category,semantic_category\n" +
		"Health > Running,running and jogging\n" +
		"Work,\n" +
		"Health >  Running,dup\n" +
		"Broken >  > x,\n" +
		",\n"

	res, err := Categories(ctx, s, strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 2 || res.Skipped != 3 {
		t.Errorf("result = %+v, want 2 added, 3 skipped", res)
	}

	cats, err := s.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != 2 || cats[0].Path != "Health > Running" || cats[0].Semantic != "running and jogging" {
		t.Errorf("categories = %+v", cats)
	}
}

func TestCategoriesMissingColumn(t *testing.T) {
	_, err := Categories(context.Background(), openStore(t), strings.NewReader("name\nWork\n"))
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("err = %v, want ErrMissingColumn", err)
	}
}

func TestCategoriesEmptyInput(t *testing.T) {
	res, err := Categories(context.Background(), openStore(t), strings.NewReader(""))
	if err != nil || res != (Result{}) {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
}

func TestCategoriesBOMAndDanglingSeparators(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	in := "\ufeffshow_category\n" +
		"Health\n" +
		"\"Health > \"\n" +
		"\"> Work\"\n"

	res, err := Categories(ctx, s, strings.NewReader(in))
	if err != nil {
		t.Fatalf("header with byte-order mark: %v", err)
	}
	if res.Added != 1 || res.Skipped != 2 {
		t.Errorf("result = %+v, want 1 added, 2 skipped", res)
	}
	paths, err := s.CategoryPaths(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "Health" {
		t.Errorf("paths = %q, want [Health]", paths)
	}
}

func TestThoughts(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	in := "Thought,Class,Urgency,Status,ETA\n" +
		"buy milk,shopping,High,open,0.25\n" +
		"\"write report, draft\",work,,done,\n" +
		"bad status,work,,later,\n" +
		"bad eta,work,,,soon\n" +
		"  ,work,,,\n" +
		"short row\n"

	res, err := Thoughts(ctx, s, strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 3 || res.Skipped != 3 {
		t.Errorf("result = %+v, want 3 added, 3 skipped", res)
	}

	all, err := s.All(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d thoughts", len(all))
	}
	milk := all[0]
	if milk.Text != "buy milk" || milk.Label != "shopping" || milk.Urgency != store.UrgencyHigh || milk.ETA != 0.25 {
		t.Errorf("first thought = %+v", milk)
	}
	report := all[1]
	if report.Text != "write report, draft" || report.Status != store.StatusDone || report.CompletedAt == nil {
		t.Errorf("second thought = %+v", report)
	}
	if all[2].Text != "short row" || all[2].Status != store.StatusOpen || all[2].ETA != store.DefaultETA {
		t.Errorf("third thought = %+v", all[2])
	}
}

func TestThoughtsNoteTextHeader(t *testing.T) {
	s := openStore(t)
	res, err := Thoughts(context.Background(), s, strings.NewReader("note_text,label\nhello,misc\n"))
	if err != nil || res.Added != 1 {
		t.Fatalf("res = %+v, err = %v", res, err)
	}
	labels, _ := s.Labels(context.Background())
	if len(labels) != 1 || labels[0] != "misc" {
		t.Errorf("labels = %v", labels)
	}
}
