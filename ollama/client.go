// Package ollama wraps the official Ollama API client for the local
// provider: liveness checks and model listing only. Local connections
// carry no credential, so reachability of the server is the whole check.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"

	"lynkd/connection"
)

type Client struct {
	client  *api.Client
	baseURL string
}

func NewClient(baseURL string) (*Client, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid Ollama URL: %w", err)
	}

	client := api.NewClient(parsedURL, http.DefaultClient)

	return &Client{
		client:  client,
		baseURL: baseURL,
	}, nil
}

// ListModels returns the locally installed models as descriptors.
func (c *Client) ListModels(ctx context.Context) ([]connection.ModelDescriptor, error) {
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := make([]connection.ModelDescriptor, len(resp.Models))
	for i, model := range resp.Models {
		models[i] = connection.ModelDescriptor{
			ID:            model.Name,
			Name:          model.Name,
			ShortName:     model.Name,
			Provider:      "ollama",
			ContextWindow: connection.GenericContextWindow,
		}
	}

	return models, nil
}

// Ping checks if the server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := c.client.List(ctx)
	return err
}

// BaseURL returns the configured server URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}
