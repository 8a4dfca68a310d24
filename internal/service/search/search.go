package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/venues/internal/models"
)

var ErrEmptyQuery = errors.New("empty search query")

// CompanyDoc is the public part of a company profile. Secrets and tax ids
// never reach the index.
type CompanyDoc struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
}

func DocFromCompany(c *models.Company) CompanyDoc {
	return CompanyDoc{
		ID:          c.ID.String(),
		Name:        c.Name,
		Email:       c.Email,
		Category:    c.Category,
		Description: c.Description,
		CreatedAt:   c.CreatedAt,
	}
}

type Results struct {
	Total int64        `json:"total"`
	Items []CompanyDoc `json:"items"`
}

type CompanyIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewCompanyIndex(es *elasticsearch.Client, index string) *CompanyIndex {
	return &CompanyIndex{ES: es, Index: index}
}

// Put upserts the company document under its id.
func (ci *CompanyIndex) Put(ctx context.Context, c *models.Company) error {
	body, err := json.Marshal(DocFromCompany(c))
	if err != nil {
		return fmt.Errorf("search: marshal: %w", err)
	}
	res, err := ci.ES.Index(ci.Index, bytes.NewReader(body),
		ci.ES.Index.WithContext(ctx),
		ci.ES.Index.WithDocumentID(c.ID.String()),
	)
	if err != nil {
		return fmt.Errorf("search: index: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("search: index %s: %s", res.Status(), msg)
	}
	return nil
}

func (ci *CompanyIndex) Search(ctx context.Context, query string, from, size int) (Results, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Results{}, ErrEmptyQuery
	}

	req := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"name^2", "category", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return Results{}, fmt.Errorf("search: encode: %w", err)
	}

	res, err := ci.ES.Search(
		ci.ES.Search.WithContext(ctx),
		ci.ES.Search.WithIndex(ci.Index),
		ci.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return Results{}, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return Results{}, fmt.Errorf("search: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source CompanyDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return Results{}, fmt.Errorf("search: decode: %w", err)
	}

	items := make([]CompanyDoc, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		items[i] = hit.Source
	}
	return Results{Total: r.Hits.Total.Value, Items: items}, nil
}
