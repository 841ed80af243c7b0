// Package redis provides Redis draft persistence: one JSON blob per draft
// plus a set index of known ids. It suits multi-instance editors that do not
// want a relational database.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/flowgrid/flowgrid/pkg/persistence"
)

// Persistence implements persistence.Persistence on Redis.
type Persistence struct {
	client    *goredis.Client
	draftRepo *DraftRepository
}

// NewPersistence connects to Redis and pings it.
func NewPersistence(ctx context.Context, redisURL string) (*Persistence, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Persistence{
		client:    client,
		draftRepo: NewDraftRepository(client),
	}, nil
}

// NewPersistenceWithClient wraps an existing client. Used by tests.
func NewPersistenceWithClient(client *goredis.Client) *Persistence {
	return &Persistence{
		client:    client,
		draftRepo: NewDraftRepository(client),
	}
}

// Drafts returns the draft repository.
func (p *Persistence) Drafts() persistence.DraftRepository {
	return p.draftRepo
}

// HealthCheck pings the server.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (p *Persistence) Close(_ context.Context) error {
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}

	return nil
}
