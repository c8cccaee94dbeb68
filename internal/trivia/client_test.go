package trivia

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeQuestions = `{"response_code":0,"results":[
 {"category":"Science","type":"multiple","difficulty":"easy","question":"Q1","correct_answer":"A","incorrect_answers":["B","C","D"]},
 {"category":"Science","type":"boolean","difficulty":"easy","question":"Q2","correct_answer":"True","incorrect_answers":["False"]},
 {"category":"History","type":"multiple","difficulty":"hard","question":"Q3","correct_answer":"X","incorrect_answers":["Y","Z","W"]}
]}`

type memPool struct {
	mu        sync.Mutex
	processed map[string]bool
	items     []Question
}

func (p *memPool) Absorb(qs []Question) (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	added := 0
	for _, q := range qs {
		if p.processed[q.Question] {
			continue
		}
		p.items = append(p.items, q)
		added++
	}
	return added, len(p.items)
}

func serve(t *testing.T, status int, body string) (*Client, *atomic.Int32) {
	t.Helper()
	hits := &atomic.Int32{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "10", r.URL.Query().Get("amount"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	c, err := NewClient(Options{BaseURL: srv.URL + "/api.php", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return c, hits
}

func wait(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err, ok := <-ch:
		require.True(t, ok, "channel closed without a value")
		_, open := <-ch
		assert.False(t, open, "channel must be closed after one value")
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("fetch did not complete")
		return nil
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(Options{})
	require.NoError(t, err)
	assert.Equal(t, "https://opentdb.com/api.php?amount=10", c.Endpoint())

	c, err = NewClient(Options{BaseURL: "https://example.org/api.php?category=9", Amount: 3})
	require.NoError(t, err)
	assert.Equal(t, "https://example.org/api.php?amount=3&category=9", c.Endpoint())

	_, err = NewClient(Options{BaseURL: "opentdb.com/api.php"})
	assert.Error(t, err)
}

func TestFetchDecodes(t *testing.T) {
	c, hits := serve(t, http.StatusOK, threeQuestions)
	set, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, set.Results, 3)
	assert.Equal(t, "Q1", set.Results[0].Question)
	assert.Equal(t, []string{"B", "C", "D"}, set.Results[0].IncorrectAnswers)
	assert.Equal(t, "boolean", set.Results[1].Type)
	assert.Equal(t, "hard", set.Results[2].Difficulty)
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetchNonZeroResponseCode(t *testing.T) {
	c, _ := serve(t, http.StatusOK, `{"response_code":5,"results":[]}`)
	_, err := c.Fetch(context.Background())
	var rcErr *ResponseCodeError
	require.ErrorAs(t, err, &rcErr)
	assert.Equal(t, 5, rcErr.ResponseCode)
	assert.Equal(t, "trivia_response_5", rcErr.Code())
}

func TestFetchBadStatus(t *testing.T) {
	c, _ := serve(t, http.StatusBadGateway, `<html>bad gateway</html>`)
	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestFetchResponseCodeWinsOverStatus(t *testing.T) {
	c, _ := serve(t, http.StatusTooManyRequests, `{"response_code":5,"results":[]}`)
	_, err := c.Fetch(context.Background())
	var rcErr *ResponseCodeError
	assert.ErrorAs(t, err, &rcErr)
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c, err := NewClient(Options{BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = c.Fetch(context.Background())
	assert.Error(t, err)
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	c, err := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})
	require.NoError(t, err)
	_, err = c.Fetch(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFetchMoreFillsPool(t *testing.T) {
	c, hits := serve(t, http.StatusOK, threeQuestions)
	pool := &memPool{processed: map[string]bool{}}

	require.NoError(t, wait(t, c.FetchMore(context.Background(), pool)))
	assert.Len(t, pool.items, 3)
	assert.EqualValues(t, 1, hits.Load())
}

func TestFetchMoreSkipsProcessed(t *testing.T) {
	c, _ := serve(t, http.StatusOK, threeQuestions)
	pool := &memPool{processed: map[string]bool{"Q2": true}}

	require.NoError(t, wait(t, c.FetchMore(context.Background(), pool)))
	require.Len(t, pool.items, 2)
	assert.Equal(t, "Q1", pool.items[0].Question)
	assert.Equal(t, "Q3", pool.items[1].Question)
}

func TestFetchMoreNoFreshQuestions(t *testing.T) {
	c, _ := serve(t, http.StatusOK, threeQuestions)
	pool := &memPool{processed: map[string]bool{"Q1": true, "Q2": true, "Q3": true}}

	err := wait(t, c.FetchMore(context.Background(), pool))
	assert.ErrorIs(t, err, ErrNoFreshQuestions)
	assert.Empty(t, pool.items)
}

func TestFetchMoreResponseCodeLeavesPoolUnchanged(t *testing.T) {
	c, _ := serve(t, http.StatusOK, `{"response_code":1,"results":[{"question":"Q9","correct_answer":"a","incorrect_answers":["b"]}]}`)
	pool := &memPool{processed: map[string]bool{}, items: []Question{{Question: "kept"}}}

	err := wait(t, c.FetchMore(context.Background(), pool))
	var rcErr *ResponseCodeError
	require.True(t, errors.As(err, &rcErr))
	require.Len(t, pool.items, 1)
	assert.Equal(t, "kept", pool.items[0].Question)
}
