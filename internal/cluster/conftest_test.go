package cluster

import (
	"io"
	"iter"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v8"

	"github.com/indexmill/syndex/internal/domain"
)

// callLog records the order clusters were hit in, across transports.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) record(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, name)
}

// stubTransport is a canned HTTP transport for one cluster handle.
type stubTransport struct {
	name string
	log  *callLog

	status int
	body   string
	err    error

	mu     sync.Mutex
	bodies []string
}

func (s *stubTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var payload string
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		payload = string(b)
	}

	s.mu.Lock()
	s.bodies = append(s.bodies, payload)
	s.mu.Unlock()
	if s.log != nil {
		s.log.record(s.name)
	}

	if s.err != nil {
		return nil, s.err
	}
	status := s.status
	if status == 0 {
		status = http.StatusOK
	}
	body := s.body
	if body == "" {
		body = `{"took":1,"errors":false,"items":[]}`
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

func newStubHandle(t *testing.T, rt *stubTransport) *Handle {
	t.Helper()
	h, err := New(rt.name, elasticsearch.Config{
		Addresses: []string{"http://" + rt.name + ":9200"},
		Transport: rt,
	})
	if err != nil {
		t.Fatalf("New(%q): %v", rt.name, err)
	}
	return h
}

func newStubSet(t *testing.T, transports ...*stubTransport) *Set {
	t.Helper()
	handles := make(map[string]*Handle, len(transports))
	for _, rt := range transports {
		handles[rt.name] = newStubHandle(t, rt)
	}
	s, err := NewSet(handles)
	if err != nil {
		t.Fatalf("NewSet: %v", err)
	}
	return s
}

func actionSeq(actions ...domain.Action) iter.Seq2[domain.Action, error] {
	return func(yield func(domain.Action, error) bool) {
		for _, a := range actions {
			if !yield(a, nil) {
				return
			}
		}
	}
}

func indexAction(id string) domain.Action {
	return domain.Action{
		Op:     domain.OpIndex,
		Index:  "articles",
		ID:     id,
		Source: map[string]any{"title": "title " + id},
	}
}
