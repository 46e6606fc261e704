// Package registry implements the service registry: each service
// periodically SETEXes its own record with a TTL slightly longer than its
// heartbeat period, so a crashed or hung service silently drops out of
// the registry instead of requiring explicit unregistration.
package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cryptopulse/signalpipe/internal/models"
)

const keyPrefix = "service_registry:"

type Registry struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Registry {
	return &Registry{client: client, ttl: ttl}
}

func key(name string) string {
	return keyPrefix + name
}

// Register writes the service's record with the registry's TTL.
func (r *Registry) Register(ctx context.Context, reg models.ServiceRegistration) error {
	reg.RegisteredAt = time.Now()
	reg.LastHeartbeat = reg.RegisteredAt
	reg.Healthy = true

	return r.write(ctx, reg)
}

// Heartbeat refreshes the TTL and LastHeartbeat for an already-registered
// service, reading its current record so metadata survives.
func (r *Registry) Heartbeat(ctx context.Context, name string) error {
	reg, err := r.Get(ctx, name)
	if err != nil {
		return err
	}
	if reg == nil {
		return nil
	}

	reg.LastHeartbeat = time.Now()
	reg.Healthy = true
	return r.write(ctx, *reg)
}

func (r *Registry) write(ctx context.Context, reg models.ServiceRegistration) error {
	data, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key(reg.Name), data, r.ttl).Err()
}

// Get returns nil, nil when the service has no live record (TTL expired).
func (r *Registry) Get(ctx context.Context, name string) (*models.ServiceRegistration, error) {
	data, err := r.client.Get(ctx, key(name)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var reg models.ServiceRegistration
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

// Unregister removes a service's record explicitly (graceful shutdown).
func (r *Registry) Unregister(ctx context.Context, name string) error {
	return r.client.Del(ctx, key(name)).Err()
}

// List scans the registry keyspace and returns every live registration.
func (r *Registry) List(ctx context.Context) ([]models.ServiceRegistration, error) {
	var out []models.ServiceRegistration

	iter := r.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		data, err := r.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, err
		}

		var reg models.ServiceRegistration
		if err := json.Unmarshal(data, &reg); err != nil {
			return nil, err
		}
		out = append(out, reg)
	}

	return out, iter.Err()
}
