package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/cherry/cherry/pkg/source"
)

// MockFetcher serves remote files from memory and counts downloads
type MockFetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	calls map[string]int
}

// NewMockFetcher creates a fetcher serving files, keyed by URL
func NewMockFetcher(files map[string]string) *MockFetcher {
	f := &MockFetcher{
		files: make(map[string][]byte, len(files)),
		calls: make(map[string]int),
	}
	for url, body := range files {
		f.files[url] = []byte(body)
	}
	return f
}

// Fetch returns the stored body, an error for unknown URLs, or the context
// error once ctx is done
func (f *MockFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[url]++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	body, ok := f.files[url]
	if !ok {
		return nil, fmt.Errorf("GET %s: connection refused", url)
	}
	return body, nil
}

// Calls returns how many times url was fetched
func (f *MockFetcher) Calls(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

// RecordingScheduler records what a handler schedules, in call order
type RecordingScheduler struct {
	Back  []source.Source
	Front []source.Source
}

// PushBack records src as scheduled next
func (s *RecordingScheduler) PushBack(src source.Source) {
	s.Back = append(s.Back, src)
}

// PushFront records src as scheduled last
func (s *RecordingScheduler) PushFront(src source.Source) {
	s.Front = append(s.Front, src)
}

// Origins returns the origins of the PushBack calls
func (s *RecordingScheduler) Origins() []string {
	origins := make([]string, 0, len(s.Back))
	for _, src := range s.Back {
		origins = append(origins, src.Origin())
	}
	return origins
}
