package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
)

// RESTClient runs the table operations the remote repositories need against a PostgREST
// endpoint such as Supabase's /rest/v1.
type RESTClient struct {
	rest    *postgrest.Client
	timeout time.Duration
}

// NewRESTClient returns a client rooted at baseURL, e.g. https://project.supabase.co.
func NewRESTClient(baseURL, apiKey string, timeout time.Duration) (*RESTClient, error) {
	base := strings.TrimRight(baseURL, "/")
	if u, err := url.Parse(base); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid REST url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rest := postgrest.NewClient(base+"/rest/v1", "public", map[string]string{
		"apikey":        apiKey,
		"Authorization": "Bearer " + apiKey,
	})
	return &RESTClient{rest: rest, timeout: timeout}, nil
}

// Select loads every row of the table into dest.
func (c *RESTClient) Select(ctx context.Context, table string, dest interface{}) error {
	var body []byte
	err := c.do(ctx, func() error {
		var err error
		body, _, err = c.rest.From(table).Select("*", "", false).Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("select %s: %w", table, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", table, err)
	}
	return nil
}

// Upsert inserts rows, merging on primary key conflicts.
func (c *RESTClient) Upsert(ctx context.Context, table string, rows interface{}) error {
	err := c.do(ctx, func() error {
		_, _, err := c.rest.From(table).Upsert(rows, "id", "minimal", "").Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}

// Delete removes rows whose column equals value.
func (c *RESTClient) Delete(ctx context.Context, table, column, value string) error {
	err := c.do(ctx, func() error {
		_, _, err := c.rest.From(table).Delete("minimal", "").Eq(column, value).Execute()
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

// do bounds a call by ctx and the client timeout. postgrest-go takes no context, so a call
// that outlives the deadline finishes in the background and its result is discarded.
func (c *RESTClient) do(ctx context.Context, call func() error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- call() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
