package domain

import "encoding/json"

// SearchResponse is the hits envelope returned by a search cluster.
type SearchResponse struct {
	Took     int  `json:"took"`
	TimedOut bool `json:"timed_out"`
	Hits     Hits `json:"hits"`
}

// Hits holds the matching documents of a search response.
type Hits struct {
	Total    HitsTotal `json:"total"`
	MaxScore *float64  `json:"max_score"`
	Hits     []Hit     `json:"hits"`
}

// HitsTotal is the total hit count with its counting relation.
type HitsTotal struct {
	Value    int    `json:"value"`
	Relation string `json:"relation"`
}

// Hit is one matching document.
type Hit struct {
	Index  string          `json:"_index"`
	ID     string          `json:"_id"`
	Score  *float64        `json:"_score"`
	Source json.RawMessage `json:"_source,omitempty"`
}

// IDs returns the hit document identifiers in relevance order.
func (r *SearchResponse) IDs() []string {
	ids := make([]string, len(r.Hits.Hits))
	for i := range r.Hits.Hits {
		ids[i] = r.Hits.Hits[i].ID
	}
	return ids
}

// EmptySearchResponse returns the synthetic response used for queries that
// were never sent: zero hits, no max score.
func EmptySearchResponse() *SearchResponse {
	return &SearchResponse{
		Hits: Hits{
			Total:    HitsTotal{Value: 0, Relation: "eq"},
			MaxScore: nil,
			Hits:     []Hit{},
		},
	}
}

// CountResponse is the body returned by a count request.
type CountResponse struct {
	Count int `json:"count"`
}

// BulkResponse is the body returned by a bulk request.
type BulkResponse struct {
	Took   int        `json:"took"`
	Errors bool       `json:"errors"`
	Items  []BulkItem `json:"items"`
}

// BulkItem is one per-action outcome inside a bulk response.
type BulkItem struct {
	Index  *BulkItemDetail `json:"index,omitempty"`
	Update *BulkItemDetail `json:"update,omitempty"`
	Delete *BulkItemDetail `json:"delete,omitempty"`
}

// BulkItemDetail carries the outcome of a single bulk action.
type BulkItemDetail struct {
	Index  string `json:"_index"`
	ID     string `json:"_id"`
	Result string `json:"result"`
	Status int    `json:"status"`
}

// Detail returns whichever action detail is present.
func (it *BulkItem) Detail() *BulkItemDetail {
	switch {
	case it.Index != nil:
		return it.Index
	case it.Update != nil:
		return it.Update
	default:
		return it.Delete
	}
}
