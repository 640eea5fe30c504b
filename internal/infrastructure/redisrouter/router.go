// Package redisrouter implements [domain.TrafficRouter] on Redis. The
// serving layer's load balancers read environment weights from a hash
// and subscribe to a channel for change notifications.
package redisrouter

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/modelshift/modelshift-server/internal/domain"
)

const (
	defaultWeightsKey    = "modelshift:traffic:weights"
	defaultUpdateChannel = "modelshift:traffic:updates"
)

// WeightUpdate is the change notification published after a weight
// write. Subscribers re-read the full hash on receipt; the payload is
// informational.
type WeightUpdate struct {
	Environment domain.EnvironmentID `json:"environment"`
	Weight      float64              `json:"weight"`
	Timestamp   time.Time            `json:"timestamp"`
}

// Client is the slice of the go-redis API the router uses. Satisfied by
// [redis.Client], [redis.ClusterClient], and [redis.UniversalClient].
type Client interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Router implements [domain.TrafficRouter] backed by Redis.
type Router struct {
	Client Client

	// WeightsKey and UpdateChannel override the default locations.
	WeightsKey    string
	UpdateChannel string

	Now func() time.Time
}

func (r *Router) SetWeights(ctx context.Context, env domain.EnvironmentID, weight float64) error {
	if weight < 0 || weight > 1 {
		return fmt.Errorf("%w: weight %v outside [0,1]", domain.ErrInvalidConfig, weight)
	}

	if err := r.Client.HSet(ctx, r.weightsKey(), string(env), weight).Err(); err != nil {
		return fmt.Errorf("write weight for %q: %w", env, err)
	}

	payload, err := json.Marshal(WeightUpdate{
		Environment: env,
		Weight:      weight,
		Timestamp:   r.now(),
	})
	if err != nil {
		return fmt.Errorf("marshal weight update: %w", err)
	}
	if err := r.Client.Publish(ctx, r.updateChannel(), payload).Err(); err != nil {
		return fmt.Errorf("publish weight update: %w", err)
	}
	return nil
}

// Weights returns the current weight of every environment in the hash.
func (r *Router) Weights(ctx context.Context) (map[domain.EnvironmentID]float64, error) {
	raw, err := r.Client.HGetAll(ctx, r.weightsKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("read weights: %w", err)
	}
	weights := make(map[domain.EnvironmentID]float64, len(raw))
	for env, value := range raw {
		w, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("weight for %q: %w", env, err)
		}
		weights[domain.EnvironmentID(env)] = w
	}
	return weights, nil
}

func (r *Router) weightsKey() string {
	if r.WeightsKey != "" {
		return r.WeightsKey
	}
	return defaultWeightsKey
}

func (r *Router) updateChannel() string {
	if r.UpdateChannel != "" {
		return r.UpdateChannel
	}
	return defaultUpdateChannel
}

func (r *Router) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}
