package es

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"go.uber.org/zap"
)

type Config struct {
	URL      string
	User     string
	Password string
}

// NewClient connects and checks the cluster answers. Credentials are never logged.
func NewClient(ctx context.Context, cfg Config, log *zap.Logger) (*elasticsearch.Client, error) {
	log.Info("connecting to elasticsearch", zap.String("url", cfg.URL))

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
		Transport: &http.Transport{ResponseHeaderTimeout: 5 * time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
		return nil, fmt.Errorf("elasticsearch error %s: %s", res.Status(), body)
	}

	log.Info("connected to elasticsearch")
	return client, nil
}
