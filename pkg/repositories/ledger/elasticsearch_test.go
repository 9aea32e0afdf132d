package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fadedpez/pitbot/internal/types"
	"github.com/fadedpez/pitbot/pkg/entities"
	mock_ledger "github.com/fadedpez/pitbot/pkg/repositories/ledger/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeElasticsearch answers just enough of the REST API for the mirror
type fakeElasticsearch struct {
	mu       sync.Mutex
	requests []recordedRequest
	indices  map[string]bool
	failDocs bool
}

func newFakeElasticsearch(t *testing.T) (*fakeElasticsearch, *httptest.Server) {
	fake := &fakeElasticsearch{indices: make(map[string]bool)}
	server := httptest.NewServer(http.HandlerFunc(fake.serve))
	t.Cleanup(server.Close)
	return fake, server
}

func (f *fakeElasticsearch) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	index := strings.Split(strings.TrimPrefix(r.URL.Path, "/"), "/")[0]
	switch {
	case r.Method == http.MethodHead:
		if !f.indices[index] {
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && !strings.Contains(r.URL.Path, "/_doc/"):
		f.indices[index] = true
		io.WriteString(w, `{"acknowledged":true}`)
	case strings.Contains(r.URL.Path, "/_doc/"):
		if f.failDocs {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"error":"boom"}`)
			return
		}
		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"result":"created"}`)
	case strings.HasSuffix(r.URL.Path, "/_update_by_query"):
		io.WriteString(w, `{"updated":1}`)
	default:
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"unexpected request"}`)
	}
}

func (f *fakeElasticsearch) find(method, path string) []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	var found []recordedRequest
	for _, req := range f.requests {
		if req.Method == method && req.Path == path {
			found = append(found, req)
		}
	}
	return found
}

func newMirror(t *testing.T, base Repository, url string) *ElasticsearchRepository {
	repo, err := NewElasticsearchRepository(base, &ElasticsearchConfig{URL: url, IndexPrefix: "test"}, quietLogger)
	require.NoError(t, err)
	return repo
}

func TestElasticsearchMirrorsRoll(t *testing.T) {
	fake, server := newFakeElasticsearch(t)
	base := NewMemoryRepository()
	repo := newMirror(t, base, server.URL)
	ctx := context.Background()

	roll := newRoll(42, 7, at(2024, time.March, 1, 10, 0, 0, 0))
	require.NoError(t, repo.AppendRoll(ctx, roll))

	assert.Len(t, fake.find(http.MethodPut, "/test_rolls_2024-03"), 1, "index should be created once")

	docs := fake.find(http.MethodPut, "/test_rolls_2024-03/_doc/"+roll.ID)
	require.Len(t, docs, 1)

	var doc ESRoll
	require.NoError(t, json.Unmarshal([]byte(docs[0].Body), &doc))
	assert.Equal(t, "42", doc.UserID)
	assert.Equal(t, 7, doc.Value)
	assert.Equal(t, "2024-03-01", doc.Day)
	assert.Equal(t, roll.OccurredAt.UnixMicro(), doc.OccurredAtUS)

	// The base stays the source of truth for reads
	latest, err := repo.MostRecentRoll(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, roll.ID, latest.ID)

	second := newRoll(42, 2, at(2024, time.March, 2, 10, 0, 0, 0))
	require.NoError(t, repo.AppendRoll(ctx, second))
	assert.Len(t, fake.find(http.MethodPut, "/test_rolls_2024-03"), 1, "ensured indices are cached")
}

func TestElasticsearchMirrorsDuplicateAndInvalidation(t *testing.T) {
	fake, server := newFakeElasticsearch(t)
	repo := newMirror(t, NewMemoryRepository(), server.URL)
	ctx := context.Background()

	when := at(2024, time.March, 1, 10, 0, 0, 0)
	require.NoError(t, repo.AppendRoll(ctx, newRoll(42, 7, when)))

	attempt := newAttempt(42, at(2024, time.March, 1, 18, 0, 0, 0))
	require.NoError(t, repo.AppendDuplicate(ctx, attempt))
	assert.Len(t, fake.find(http.MethodPut, "/test_doublerolls_2024-03/_doc/"+attempt.ID), 1)

	require.NoError(t, repo.Invalidate(ctx, 42, when, 7))
	updates := fake.find(http.MethodPost, "/test_rolls_*/_update_by_query")
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].Body, `"occurred_at_us":`+jsonInt(when.UnixMicro()))
	assert.Contains(t, updates[0].Body, `"removed_by":"7"`)
}

func TestElasticsearchMirrorFailureIsNotSurfaced(t *testing.T) {
	fake, server := newFakeElasticsearch(t)
	fake.failDocs = true
	base := NewMemoryRepository()
	repo := newMirror(t, base, server.URL)

	roll := newRoll(42, 7, at(2024, time.March, 1, 10, 0, 0, 0))
	require.NoError(t, repo.AppendRoll(context.Background(), roll))

	stored, err := base.MostRecentRoll(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, roll.ID, stored.ID)
}

func TestElasticsearchBaseErrorsPropagate(t *testing.T) {
	_, server := newFakeElasticsearch(t)
	ctrl := gomock.NewController(t)
	base := mock_ledger.NewMockRepository(ctrl)
	repo := newMirror(t, base, server.URL)

	storageErr := types.NewRollError(types.ErrStorageUnavailable, "disk gone")
	roll := newRoll(42, 7, at(2024, time.March, 1, 10, 0, 0, 0))
	base.EXPECT().AppendRoll(gomock.Any(), roll).Return(storageErr)

	err := repo.AppendRoll(context.Background(), roll)
	assert.True(t, types.IsRollError(err, types.ErrStorageUnavailable))

	base.EXPECT().Invalidate(gomock.Any(), entities.UserID(42), roll.OccurredAt, entities.UserID(7)).
		Return(types.NewRollError(types.ErrNotFound, "no roll"))
	err = repo.Invalidate(context.Background(), 42, roll.OccurredAt, 7)
	assert.True(t, types.IsRollError(err, types.ErrNotFound))
}

func TestEnsureIndices(t *testing.T) {
	fake, server := newFakeElasticsearch(t)
	repo := newMirror(t, NewMemoryRepository(), server.URL)

	require.NoError(t, repo.EnsureIndices(context.Background(), time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC)))
	assert.Len(t, fake.find(http.MethodPut, "/test_rolls_2024-04"), 1)
	assert.Len(t, fake.find(http.MethodPut, "/test_doublerolls_2024-04"), 1)
	assert.Equal(t, "test_rolls_2024-04", repo.RollsIndex("2024-04"))
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
