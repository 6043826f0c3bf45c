package messagequeue

// VectorSearchRequestPayload is the schema for vector.search.request messages.
type VectorSearchRequestPayload struct {
	RequestID string            `json:"request_id"`
	Query     string            `json:"query"`
	TopK      int               `json:"top_k"`
	Filter    map[string]string `json:"filter,omitempty"`
}

// VectorSearchHit is one similarity result inside a search result payload.
type VectorSearchHit struct {
	ID      string         `json:"id"`
	Table   string         `json:"table,omitempty"`
	Content string         `json:"content"`
	Score   float64        `json:"score"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// VectorSearchResultPayload is the schema for vector.search.result messages.
type VectorSearchResultPayload struct {
	RequestID string            `json:"request_id"`
	Hits      []VectorSearchHit `json:"hits"`
	Error     string            `json:"error,omitempty"`
}

// RecordChangedPayload is the schema for records.changed messages.
type RecordChangedPayload struct {
	Table     string `json:"table"`
	RecordID  string `json:"record_id"`
	Operation string `json:"operation"` // INSERT | UPDATE | DELETE
}
