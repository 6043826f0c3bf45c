// Package vectormq implements the vector search port over the message queue.
// The embedding index lives in an external worker; searches are published as
// correlated request messages and answered on a result subject.
package vectormq

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Strob0t/DeskForge/internal/port/messagequeue"
	"github.com/Strob0t/DeskForge/internal/port/vector"
)

// Searcher implements vector.Searcher over a message queue.
type Searcher struct {
	queue   messagequeue.Queue
	timeout time.Duration

	mu      sync.Mutex
	waiters map[string]chan *messagequeue.VectorSearchResultPayload
}

// NewSearcher creates a queue-backed vector searcher. timeout bounds how long
// a search waits for the worker's correlated result.
func NewSearcher(queue messagequeue.Queue, timeout time.Duration) *Searcher {
	return &Searcher{
		queue:   queue,
		timeout: timeout,
		waiters: make(map[string]chan *messagequeue.VectorSearchResultPayload),
	}
}

// Search publishes a similarity query and waits synchronously for the result.
func (s *Searcher) Search(ctx context.Context, query string, k int, filter map[string]string) ([]vector.Result, error) {
	// Generate correlation ID.
	idBytes := make([]byte, 16)
	if _, err := rand.Read(idBytes); err != nil {
		return nil, fmt.Errorf("generate request id: %w", err)
	}
	requestID := hex.EncodeToString(idBytes)

	// Register waiter.
	ch := make(chan *messagequeue.VectorSearchResultPayload, 1)
	s.mu.Lock()
	s.waiters[requestID] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.waiters, requestID)
		s.mu.Unlock()
	}()

	payload := messagequeue.VectorSearchRequestPayload{
		RequestID: requestID,
		Query:     query,
		TopK:      k,
		Filter:    filter,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal vector search request: %w", err)
	}

	if err := s.queue.Publish(ctx, messagequeue.SubjectVectorSearchRequest, data); err != nil {
		return nil, fmt.Errorf("publish vector search request: %w", err)
	}

	// Wait for result with timeout.
	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	select {
	case result := <-ch:
		if result.Error != "" {
			return nil, fmt.Errorf("vector search error: %s", result.Error)
		}
		return toResults(result.Hits), nil
	case <-timeoutCtx.Done():
		return nil, fmt.Errorf("vector search timeout after %s", s.timeout)
	}
}

// StartSubscriber subscribes to the result subject and delivers results to
// waiting callers. The returned function cancels the subscription.
func (s *Searcher) StartSubscriber(ctx context.Context) (func(), error) {
	cancel, err := s.queue.Subscribe(ctx, messagequeue.SubjectVectorSearchResult,
		func(_ context.Context, _ string, data []byte) error {
			var payload messagequeue.VectorSearchResultPayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("unmarshal vector search result: %w", err)
			}
			s.deliver(&payload)
			return nil
		})
	if err != nil {
		return nil, fmt.Errorf("subscribe vector search result: %w", err)
	}
	return cancel, nil
}

// deliver hands a result to its waiting caller, if any.
func (s *Searcher) deliver(payload *messagequeue.VectorSearchResultPayload) {
	s.mu.Lock()
	ch, ok := s.waiters[payload.RequestID]
	if ok {
		delete(s.waiters, payload.RequestID)
	}
	s.mu.Unlock()

	if !ok {
		slog.Warn("no waiter for vector search result", "request_id", payload.RequestID)
		return
	}

	ch <- payload
}

func toResults(hits []messagequeue.VectorSearchHit) []vector.Result {
	results := make([]vector.Result, 0, len(hits))
	for _, h := range hits {
		results = append(results, vector.Result{
			Content: h.Content,
			Metadata: vector.Metadata{
				ID:    h.ID,
				Table: h.Table,
				Score: h.Score,
				Extra: h.Extra,
			},
		})
	}
	return results
}
