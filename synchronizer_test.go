package syndex

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

func TestIndexName_Formatting(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		language string
		want     string
		custom   bool
	}{
		{
			name: "bare",
			want: "articles",
		},
		{
			name: "prefix only",
			opts: []Option{WithIndexAffixes("stag", "")},
			want: "stag-articles",
		},
		{
			name: "suffix only",
			opts: []Option{WithIndexAffixes("", "v2")},
			want: "articles-v2",
		},
		{
			name: "translation adds default language",
			opts: []Option{WithTranslation("en", "en", "fr")},
			want: "articles-en",
		},
		{
			name:     "translation with explicit language",
			opts:     []Option{WithTranslation("en", "en", "fr")},
			language: "fr",
			want:     "articles-fr",
		},
		{
			name: "full custom naming",
			opts: []Option{
				WithTranslation("en", "en", "fr"),
				WithIndexAffixes("stag", "v2"),
			},
			language: "fr",
			want:     "stag-articles-fr-v2",
			custom:   true,
		},
		{
			name:   "affixes without translation are not custom",
			opts:   []Option{WithIndexAffixes("stag", "v2")},
			want:   "stag-articles-v2",
			custom: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, &stubTransport{}, tt.opts...)

			name, custom := c.CustomIndexName("articles", tt.language)
			if name != tt.want {
				t.Errorf("name = %q, want %q", name, tt.want)
			}
			if custom != tt.custom {
				t.Errorf("custom = %v, want %v", custom, tt.custom)
			}

			// Pure: same inputs, same output.
			again, _ := c.CustomIndexName("articles", tt.language)
			if again != name {
				t.Errorf("second call = %q, want %q", again, name)
			}
		})
	}
}

func TestCustomIndexNames_PreservesOrder(t *testing.T) {
	c := newTestClient(t, &stubTransport{},
		WithTranslation("en", "en"),
		WithIndexAffixes("stag", "v1"),
	)

	bases := []string{"articles", "authors", "comments"}
	names, custom := c.CustomIndexNames(bases, "")
	if !custom {
		t.Error("custom = false, want true")
	}
	if len(names) != len(bases) {
		t.Fatalf("names = %d, want %d", len(names), len(bases))
	}
	want := []string{"stag-articles-en-v1", "stag-authors-en-v1", "stag-comments-en-v1"}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

// A bare Settings value must resolve names exactly as a client built from the
// same options does, so tooling that only has configuration in hand can report
// the indices a deployed document would write to.
func TestSettings_IndexName_MatchesClient(t *testing.T) {
	c := newTestClient(t, &stubTransport{},
		WithTranslation("en", "en", "fr"),
		WithIndexAffixes("stag", "v1"),
	)
	s := Settings{
		TranslationEnabled: true,
		DefaultLanguage:    "en",
		IndexPrefix:        "stag",
		IndexSuffix:        "v1",
	}

	for _, lang := range []string{"", "en", "fr"} {
		fromClient, _ := c.CustomIndexName("articles", lang)
		if got := s.IndexName("articles", lang); got != fromClient {
			t.Errorf("IndexName(%q) = %q, client resolved %q", lang, got, fromClient)
		}
	}
	if got := s.IndexName("articles", ""); got != "stag-articles-en-v1" {
		t.Errorf("IndexName with default language = %q, want %q", got, "stag-articles-en-v1")
	}
}

type collectedAction struct {
	index string
	id    string
	src   map[string]any
}

// collectActions drains the document's action sequence.
func collectActions(t *testing.T, d *Document[article], src Source[article], op Op) []collectedAction {
	t.Helper()
	var out []collectedAction
	for act, err := range d.actions(context.Background(), src, op, true) {
		if err != nil {
			t.Fatalf("actions: %v", err)
		}
		out = append(out, collectedAction{act.Index, act.ID, act.Source})
	}
	return out
}

func TestActions_OnePerInstance(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	src := Instances(newArticle(1, "a"), newArticle(2, "b"), newArticle(3, "c"))
	acts := collectActions(t, d, src, OpIndex)

	if len(acts) != 3 {
		t.Fatalf("actions = %d, want 3", len(acts))
	}
	for i, want := range []string{"1", "2", "3"} {
		if acts[i].id != want {
			t.Errorf("acts[%d].id = %q, want %q", i, acts[i].id, want)
		}
		if acts[i].index != "articles" {
			t.Errorf("acts[%d].index = %q, want articles", i, acts[i].index)
		}
		if acts[i].src == nil {
			t.Errorf("acts[%d] has no source", i)
		}
	}
}

func TestActions_LanguageFanOut(t *testing.T) {
	c := newTestClient(t, &stubTransport{},
		WithTranslation("en", "en", "fr"),
	)
	d := newArticleDoc(t, c)
	d.TranslateWith(func(language, field string, value any, _ bool) (any, error) {
		if field == "title" {
			return fmt.Sprintf("%s[%s]", value, language), nil
		}
		return value, nil
	})

	src := Instances(newArticle(1, "a"), newArticle(2, "b"))
	acts := collectActions(t, d, src, OpIndex)

	// Per instance: one action per analyser, instance order outermost.
	if len(acts) != 4 {
		t.Fatalf("actions = %d, want 4", len(acts))
	}
	wantIndex := []string{"articles-en", "articles-fr", "articles-en", "articles-fr"}
	wantID := []string{"1", "1", "2", "2"}
	wantTitle := []string{"a[en]", "a[fr]", "b[en]", "b[fr]"}
	for i := range acts {
		if acts[i].index != wantIndex[i] {
			t.Errorf("acts[%d].index = %q, want %q", i, acts[i].index, wantIndex[i])
		}
		if acts[i].id != wantID[i] {
			t.Errorf("acts[%d].id = %q, want %q", i, acts[i].id, wantID[i])
		}
		if acts[i].src["title"] != wantTitle[i] {
			t.Errorf("acts[%d].title = %v, want %q", i, acts[i].src["title"], wantTitle[i])
		}
	}

	// Scoped overrides never leak past generation.
	if d.language() != "en" {
		t.Errorf("language = %q, want en after generation", d.language())
	}
}

func TestActions_DeleteCarriesNoSource(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	acts := collectActions(t, d, Instances(newArticle(1, "a")), OpDelete)
	if len(acts) != 1 {
		t.Fatalf("actions = %d, want 1", len(acts))
	}
	if acts[0].src != nil {
		t.Errorf("delete action source = %v, want nil", acts[0].src)
	}
}

// pagedSource wraps a Source and records every page request.
type pagedSource struct {
	inner Source[article]
	pages []struct{ offset, limit int }
}

func (p *pagedSource) Page(ctx context.Context, offset, limit int) ([]article, error) {
	p.pages = append(p.pages, struct{ offset, limit int }{offset, limit})
	return p.inner.Page(ctx, offset, limit)
}

func TestActions_PaginationWithFanOut(t *testing.T) {
	c := newTestClient(t, &stubTransport{},
		WithTranslation("en", "en", "fr"),
		WithQuerysetPagination(500),
	)
	d := newArticleDoc(t, c)

	items := make([]article, 1200)
	for i := range items {
		items[i] = newArticle(i+1, fmt.Sprintf("title %d", i+1))
	}
	src := &pagedSource{inner: Instances(items...)}

	acts := collectActions(t, d, src, OpIndex)

	if len(acts) != 2400 {
		t.Fatalf("actions = %d, want 2400 (1200 instances x 2 languages)", len(acts))
	}
	// Instance order survives pagination; ids repeat once per language.
	for i := 0; i < 1200; i++ {
		want := fmt.Sprint(i + 1)
		if acts[2*i].id != want || acts[2*i+1].id != want {
			t.Fatalf("acts around %d = %q/%q, want both %q", i, acts[2*i].id, acts[2*i+1].id, want)
		}
	}

	wantPages := []struct{ offset, limit int }{{0, 500}, {500, 500}, {1000, 500}}
	if len(src.pages) != len(wantPages) {
		t.Fatalf("pages = %v, want %v", src.pages, wantPages)
	}
	for i, want := range wantPages {
		if src.pages[i] != want {
			t.Errorf("pages[%d] = %v, want %v", i, src.pages[i], want)
		}
	}
}

func TestActions_NoPaginationFetchesOnce(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	src := &pagedSource{inner: Instances(newArticle(1, "a"), newArticle(2, "b"))}
	collectActions(t, d, src, OpIndex)

	if len(src.pages) != 1 {
		t.Fatalf("pages = %v, want a single unbounded fetch", src.pages)
	}
	if src.pages[0].limit != -1 {
		t.Errorf("limit = %d, want -1", src.pages[0].limit)
	}
}

func TestUpdate_DispatchesBulk(t *testing.T) {
	rt := &stubTransport{}
	c := newTestClient(t, rt)
	d := newArticleDoc(t, c)

	report, err := d.Update(context.Background(), Instances(newArticle(1, "a"), newArticle(2, "b")))
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if report == nil || report.Default == nil {
		t.Fatal("report missing the default cluster response")
	}

	reqs := rt.requests("_bulk")
	if len(reqs) != 1 {
		t.Fatalf("bulk requests = %d, want 1", len(reqs))
	}
	if !strings.Contains(reqs[0].body, `{"index":{"_index":"articles","_id":"1"}}`) {
		t.Errorf("bulk body missing the first action meta:\n%s", reqs[0].body)
	}
}

func TestSync_UnknownOp(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	if _, err := d.Sync(context.Background(), Op("upsert"), Instances(newArticle(1, "a"))); err == nil {
		t.Fatal("Sync error = nil, want error for unknown op")
	}
}

func TestSyncIDs_DeleteFansOutLanguages(t *testing.T) {
	rt := &stubTransport{}
	c := newTestClient(t, rt, WithTranslation("en", "en", "fr"))
	d := newArticleDoc(t, c)

	if err := d.SyncIDs(context.Background(), OpDelete, []string{"5"}); err != nil {
		t.Fatalf("SyncIDs: %v", err)
	}

	reqs := rt.requests("_bulk")
	if len(reqs) != 1 {
		t.Fatalf("bulk requests = %d, want 1", len(reqs))
	}
	for _, want := range []string{
		`{"delete":{"_index":"articles-en","_id":"5"}}`,
		`{"delete":{"_index":"articles-fr","_id":"5"}}`,
	} {
		if !strings.Contains(reqs[0].body, want) {
			t.Errorf("bulk body missing %s:\n%s", want, reqs[0].body)
		}
	}
}

func TestSyncIDs_UpdateRequiresTable(t *testing.T) {
	c := newTestClient(t, &stubTransport{})
	d := newArticleDoc(t, c)

	err := d.SyncIDs(context.Background(), OpIndex, []string{"1"})
	if err == nil {
		t.Fatal("SyncIDs error = nil, want error without a table binding")
	}
}
