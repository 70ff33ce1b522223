package syndex

import (
	"errors"
	"fmt"
	"testing"
)

func TestPrepare_ExtractsDeclaredFields(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	data, err := d.Prepare(newArticle(1, "hello"), nil, true)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	if data["title"] != "hello" {
		t.Errorf("title = %v, want hello", data["title"])
	}
	if data["views"] != int64(10) {
		t.Errorf("views = %v, want 10", data["views"])
	}
	if data["byline"] != "ada" {
		t.Errorf("byline = %v, want ada", data["byline"])
	}
	if _, ok := data["id"]; ok {
		t.Error("id leaked into the document source")
	}
}

func TestPrepare_HookPriority(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	if err := d.PrepareField("title", func(a article) (any, error) {
		return "simple:" + a.Title, nil
	}); err != nil {
		t.Fatalf("PrepareField: %v", err)
	}

	data, err := d.Prepare(newArticle(1, "x"), nil, true)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if data["title"] != "simple:x" {
		t.Errorf("title = %v, want the simple hook to replace extraction", data["title"])
	}

	// The related-aware hook outranks the simple one and sees the ignore set.
	var gotIgnore []string
	if err := d.PrepareFieldWithRelated("title", func(a article, ignore []string) (any, error) {
		gotIgnore = ignore
		return "related:" + a.Title, nil
	}); err != nil {
		t.Fatalf("PrepareFieldWithRelated: %v", err)
	}

	data, err = d.Prepare(newArticle(1, "x"), []string{"Author"}, true)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if data["title"] != "related:x" {
		t.Errorf("title = %v, want the related hook to win", data["title"])
	}
	if len(gotIgnore) != 1 || gotIgnore[0] != "Author" {
		t.Errorf("ignore = %v, want [Author]", gotIgnore)
	}
}

func TestPrepareField_UnknownField(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	err := d.PrepareField("nonexistent", func(article) (any, error) { return nil, nil })
	if err == nil {
		t.Fatal("PrepareField error = nil, want error for unmapped field")
	}
}

func TestPrepare_FailSilentFieldSwallowsError(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	if err := d.PrepareField("byline", func(article) (any, error) {
		return nil, errors.New("author service down")
	}); err != nil {
		t.Fatalf("PrepareField: %v", err)
	}

	data, err := d.Prepare(newArticle(1, "x"), nil, true)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if data["byline"] != nil {
		t.Errorf("byline = %v, want nil after a swallowed failure", data["byline"])
	}
}

func TestPrepare_LoudFieldPropagatesError(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	boom := errors.New("bad row")
	if err := d.PrepareField("title", func(article) (any, error) {
		return nil, boom
	}); err != nil {
		t.Fatalf("PrepareField: %v", err)
	}

	if _, err := d.Prepare(newArticle(1, "x"), nil, true); !errors.Is(err, boom) {
		t.Fatalf("Prepare err = %v, want wrapped %v", err, boom)
	}
}

func TestPrepare_TranslationHook(t *testing.T) {
	c := newTestClient(t, &stubTransport{}, WithTranslation("en", "en", "fr"))
	d := newArticleDoc(t, c)

	d.TranslateWith(func(language, field string, value any, _ bool) (any, error) {
		if field != "title" {
			return value, nil
		}
		return fmt.Sprintf("%s[%s]", value, language), nil
	})

	data, err := d.Prepare(newArticle(1, "hello"), nil, true)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if data["title"] != "hello[en]" {
		t.Errorf("title = %v, want the default language applied", data["title"])
	}

	err = d.withLanguage("fr", func() error {
		data, err := d.Prepare(newArticle(1, "hello"), nil, true)
		if err != nil {
			return err
		}
		if data["title"] != "hello[fr]" {
			t.Errorf("title = %v, want the scoped language applied", data["title"])
		}
		return nil
	})
	if err != nil {
		t.Fatalf("withLanguage: %v", err)
	}
}

func TestWithLanguage_RestoresScope(t *testing.T) {
	c := newTestClient(t, &stubTransport{}, WithTranslation("en", "en", "fr"))
	d := newArticleDoc(t, c)

	boom := errors.New("prepare failed")
	err := d.withLanguage("fr", func() error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if d.language() != "en" {
		t.Errorf("language = %q, want the default restored after failure", d.language())
	}

	func() {
		defer func() { _ = recover() }()
		_ = d.withLanguage("fr", func() error { panic("mid-preparation") })
	}()
	if d.language() != "en" {
		t.Errorf("language = %q, want the default restored after panic", d.language())
	}
}

func TestQueryset_RequiresTable(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	if _, err := d.Queryset(); !errors.Is(err, ErrNoTable) {
		t.Fatalf("err = %v, want ErrNoTable", err)
	}

	bound := newArticleDoc(t, withStubDB(c), WithTable("articles"))
	if _, err := bound.Queryset(); err != nil {
		t.Fatalf("Queryset with table: %v", err)
	}
}

func TestNewDocument_TableRequiresDatabase(t *testing.T) {
	c := newTestClient(t, &stubTransport{})

	_, err := NewDocument[article](c, "article", "articles", WithTable("articles"))
	if !errors.Is(err, ErrNoDatabase) {
		t.Fatalf("err = %v, want ErrNoDatabase", err)
	}
}

func TestDocument_PK(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	if got := d.PK(newArticle(7, "x")); got != "7" {
		t.Errorf("PK = %q, want 7", got)
	}
}
