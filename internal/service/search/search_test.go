package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/venues/internal/models"
)

type fakeES struct {
	mu       sync.Mutex
	requests []recorded
	reply    string
	status   int
}

type recorded struct {
	Method string
	Path   string
	Body   string
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recorded{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	status := f.status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	_, _ = w.Write([]byte(f.reply))
}

func newIndex(t *testing.T, f *fakeES) *CompanyIndex {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewCompanyIndex(client, "companies")
}

func TestCompanyIndex_Put_OmitsPrivateFields(t *testing.T) {
	t.Parallel()

	f := &fakeES{reply: `{"result":"created"}`, status: http.StatusCreated}
	idx := newIndex(t, f)

	c := &models.Company{
		ID:           uuid.New(),
		Name:         "Blue Note",
		Email:        "hello@bluenote.example",
		PasswordHash: "$2a$10$secret",
		TaxID:        "TAX-1",
		Category:     "jazz-club",
	}
	require.NoError(t, idx.Put(context.Background(), c))

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, http.MethodPut, req.Method)
	assert.Equal(t, "/companies/_doc/"+c.ID.String(), req.Path)
	assert.NotContains(t, req.Body, "secret")
	assert.NotContains(t, req.Body, "TAX-1")

	var doc CompanyDoc
	require.NoError(t, json.Unmarshal([]byte(req.Body), &doc))
	assert.Equal(t, "Blue Note", doc.Name)
}

func TestCompanyIndex_Put_ErrorStatus(t *testing.T) {
	t.Parallel()

	f := &fakeES{reply: `{"error":"boom"}`, status: http.StatusBadRequest}
	idx := newIndex(t, f)

	err := idx.Put(context.Background(), &models.Company{ID: uuid.New(), Name: "X"})
	require.Error(t, err)
}

func TestCompanyIndex_Search(t *testing.T) {
	t.Parallel()

	f := &fakeES{reply: `{"hits":{"total":{"value":1},"hits":[{"_source":{"id":"c1","name":"Blue Note","category":"jazz-club"}}]}}`}
	idx := newIndex(t, f)

	res, err := idx.Search(context.Background(), " jazz ", 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Total)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Blue Note", res.Items[0].Name)

	require.Len(t, f.requests, 1)
	assert.True(t, strings.HasSuffix(f.requests[0].Path, "/companies/_search"))
	assert.Contains(t, f.requests[0].Body, `"query":"jazz"`)
}

func TestCompanyIndex_Search_EmptyQuery(t *testing.T) {
	t.Parallel()

	idx := newIndex(t, &fakeES{})
	_, err := idx.Search(context.Background(), "  ", 0, 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
}
