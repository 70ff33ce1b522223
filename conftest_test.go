package syndex

import (
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/indexmill/syndex/internal/relational"
)

// stubCall is one recorded cluster request.
type stubCall struct {
	path string
	body string
}

// stubTransport is a canned cluster transport: it records every request and
// answers by endpoint.
type stubTransport struct {
	mu    sync.Mutex
	calls []stubCall

	bulkBody   string
	searchBody string
	countBody  string
	status     int
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var payload string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		payload = string(b)
	}
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{path: req.URL.Path, body: payload})
	s.mu.Unlock()

	status := s.status
	if status == 0 {
		status = http.StatusOK
	}

	var body string
	switch {
	case strings.HasSuffix(req.URL.Path, "_bulk"):
		body = s.bulkBody
		if body == "" {
			body = `{"took":1,"errors":false,"items":[]}`
		}
	case strings.HasSuffix(req.URL.Path, "_search"):
		body = s.searchBody
		if body == "" {
			body = `{"took":1,"hits":{"total":{"value":0,"relation":"eq"},"hits":[]}}`
		}
	case strings.HasSuffix(req.URL.Path, "_count"):
		body = s.countBody
		if body == "" {
			body = `{"count":0}`
		}
	default:
		body = `{}`
	}

	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(body)),
	}, nil
}

// requests returns the recorded calls whose path matches the endpoint suffix.
func (s *stubTransport) requests(endpoint string) []stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []stubCall
	for _, c := range s.calls {
		if strings.HasSuffix(c.path, endpoint) {
			out = append(out, c)
		}
	}
	return out
}

// newTestClient builds a client backed by the stub transport as the default
// cluster.
func newTestClient(t *testing.T, rt *stubTransport, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithClusterConfig("default", elasticsearch.Config{
			Addresses: []string{"http://default:9200"},
			Transport: rt,
		}),
	}, opts...)
	c, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// withStubDB attaches a database wrapper with no live pool, so table-bound
// documents can be constructed in tests that only build SQL and never run it.
func withStubDB(c *Client) *Client {
	c.db = relational.NewDB(nil)
	return c
}

// author is a related model for attribute path tests.
type author struct {
	Name  string
	Email string
}

// article is the model used across the package tests.
type article struct {
	ID        int       `db:"id"        syndex:"id,id"`
	Title     string    `db:"title"     syndex:"title"`
	Views     int64     `db:"views"     syndex:"views"`
	Published time.Time `db:"published" syndex:"published"`
	Author    *author   `db:"-"         syndex:"-"`
	Byline    string    `db:"-"         syndex:"byline,attr=Author.Name,failsilent"`
}

func newArticle(id int, title string) article {
	return article{
		ID:        id,
		Title:     title,
		Views:     int64(id) * 10,
		Published: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Author:    &author{Name: "ada"},
	}
}

func newArticleDoc(t *testing.T, c *Client, opts ...DocumentOption) *Document[article] {
	t.Helper()
	d, err := NewDocument[article](c, "article", "articles", opts...)
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return d
}
