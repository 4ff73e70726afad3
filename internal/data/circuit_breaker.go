package data

import (
	"context"
	"fmt"
	"time"

	"StarPort/internal/biz"
	"StarPort/internal/conf"
	"StarPort/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// CircuitBreakerStore is a Redis-backed circuit breaker shared by all
// upstream circuits. State lives entirely in Redis under the caller-supplied
// key, so many request handlers can drive the same circuit without
// in-process locks: every counter mutation is a single atomic Redis command.
// The compound check-then-transition paths have a narrow racy window; the
// worst case is a slightly delayed transition, which is accepted in favor of
// availability.
//
// Keys per circuit:
//
//	{key}:state                current state ("closed" absent by default)
//	{key}:failures             failure counter, expires after the timeout
//	{key}:successes            total success counter
//	{key}:last_failure         epoch seconds of the last failure
//	{key}:half_open_successes  probe success counter
type CircuitBreakerStore struct {
	rdb                      *redis.Client
	failureThreshold         int64
	timeout                  time.Duration
	halfOpenSuccessThreshold int64
	logger                   *log.Helper
}

// NewCircuitBreakerStore creates a circuit breaker store with thresholds
// from the upstream configuration.
func NewCircuitBreakerStore(c *conf.Swapi, rdb *redis.Client, logger log.Logger) *CircuitBreakerStore {
	failureThreshold := int64(5)
	timeout := 60 * time.Second
	halfOpenSuccessThreshold := int64(2)

	if c != nil {
		if c.CircuitFailureThreshold > 0 {
			failureThreshold = int64(c.CircuitFailureThreshold)
		}
		if c.CircuitTimeout != nil && c.CircuitTimeout.AsDuration() > 0 {
			timeout = c.CircuitTimeout.AsDuration()
		}
		if c.CircuitHalfOpenSuccessThreshold > 0 {
			halfOpenSuccessThreshold = int64(c.CircuitHalfOpenSuccessThreshold)
		}
	}

	return &CircuitBreakerStore{
		rdb:                      rdb,
		failureThreshold:         failureThreshold,
		timeout:                  timeout,
		halfOpenSuccessThreshold: halfOpenSuccessThreshold,
		logger:                   log.NewHelper(logger),
	}
}

// Check reports whether a call through the circuit is allowed.
// Open circuits reject with *biz.CircuitOpenError until the cool-down has
// elapsed, then transition to half-open and allow the probe. A half-open
// circuit that has collected enough probe successes transitions to closed
// here, on the check following the deciding success, not inside
// RecordSuccess.
func (s *CircuitBreakerStore) Check(ctx context.Context, key string) error {
	state, err := s.State(ctx, key)
	if err != nil {
		return err
	}

	switch state {
	case model.CircuitOpen:
		lastFailure, err := s.lastFailureTime(ctx, key)
		if err != nil {
			return err
		}

		since := time.Now().Unix() - lastFailure
		if since >= int64(s.timeout.Seconds()) {
			if err := s.setState(ctx, key, model.CircuitHalfOpen); err != nil {
				return err
			}
			if err := s.rdb.Del(ctx, key+":half_open_successes").Err(); err != nil {
				return fmt.Errorf("circuit %s: failed to reset half-open counter: %w", key, err)
			}
			s.logger.Infow("msg", "circuit transitioned to half-open", "circuit", key)
			return nil
		}

		return &biz.CircuitOpenError{
			Key:              key,
			SinceLastFailure: since,
			RetryAfter:       int64(s.timeout.Seconds()) - since,
		}

	case model.CircuitHalfOpen:
		successes, err := s.halfOpenSuccessCount(ctx, key)
		if err != nil {
			return err
		}

		if successes >= s.halfOpenSuccessThreshold {
			if err := s.setState(ctx, key, model.CircuitClosed); err != nil {
				return err
			}
			if err := s.rdb.Del(ctx, key+":failures", key+":half_open_successes").Err(); err != nil {
				return fmt.Errorf("circuit %s: failed to reset counters: %w", key, err)
			}
			s.logger.Infow("msg", "circuit closed after successful probes", "circuit", key)
		}
	}

	return nil
}

// RecordSuccess records a successful call. While half-open it advances the
// probe counter; while closed it resets the failure counter. The total
// success counter always increments.
func (s *CircuitBreakerStore) RecordSuccess(ctx context.Context, key string) error {
	state, err := s.State(ctx, key)
	if err != nil {
		return err
	}

	switch state {
	case model.CircuitHalfOpen:
		if err := s.rdb.Incr(ctx, key+":half_open_successes").Err(); err != nil {
			return fmt.Errorf("circuit %s: failed to increment half-open counter: %w", key, err)
		}
	case model.CircuitClosed:
		if err := s.rdb.Del(ctx, key+":failures").Err(); err != nil {
			return fmt.Errorf("circuit %s: failed to reset failure counter: %w", key, err)
		}
	}

	if err := s.rdb.Incr(ctx, key+":successes").Err(); err != nil {
		return fmt.Errorf("circuit %s: failed to increment success counter: %w", key, err)
	}

	return nil
}

// RecordFailure records a failed call. A half-open circuit reopens
// immediately; a closed circuit opens once the failure counter reaches the
// threshold. The failure counter expires after the cool-down timeout, so
// stale failures age out on their own.
func (s *CircuitBreakerStore) RecordFailure(ctx context.Context, key string) error {
	state, err := s.State(ctx, key)
	if err != nil {
		return err
	}

	if state == model.CircuitHalfOpen {
		if err := s.setState(ctx, key, model.CircuitOpen); err != nil {
			return err
		}
		if err := s.stampLastFailure(ctx, key); err != nil {
			return err
		}
		if err := s.rdb.Del(ctx, key+":half_open_successes").Err(); err != nil {
			return fmt.Errorf("circuit %s: failed to reset half-open counter: %w", key, err)
		}
		if _, err := s.incrementFailureCount(ctx, key); err != nil {
			return err
		}
		s.logger.Warnw("msg", "circuit reopened after failed probe", "circuit", key)
		return nil
	}

	count, err := s.incrementFailureCount(ctx, key)
	if err != nil {
		return err
	}
	if err := s.stampLastFailure(ctx, key); err != nil {
		return err
	}

	if count >= s.failureThreshold {
		if err := s.setState(ctx, key, model.CircuitOpen); err != nil {
			return err
		}
		s.logger.Warnw("msg", "circuit opened",
			"circuit", key,
			"failures", count,
			"threshold", s.failureThreshold)
	}

	return nil
}

// State returns the current state of the circuit. A missing state key means
// the circuit has never tripped and is closed.
func (s *CircuitBreakerStore) State(ctx context.Context, key string) (model.CircuitState, error) {
	state, err := s.rdb.Get(ctx, key+":state").Result()
	if err == redis.Nil {
		return model.CircuitClosed, nil
	}
	if err != nil {
		return "", fmt.Errorf("circuit %s: failed to get state: %w", key, err)
	}

	return model.CircuitState(state), nil
}

// Statistics returns a read-only snapshot of the circuit's counters.
func (s *CircuitBreakerStore) Statistics(ctx context.Context, key string) (*model.CircuitStats, error) {
	state, err := s.State(ctx, key)
	if err != nil {
		return nil, err
	}

	failures, err := s.counter(ctx, key+":failures")
	if err != nil {
		return nil, err
	}
	successes, err := s.counter(ctx, key+":successes")
	if err != nil {
		return nil, err
	}
	halfOpenSuccesses, err := s.counter(ctx, key+":half_open_successes")
	if err != nil {
		return nil, err
	}
	lastFailure, err := s.lastFailureTime(ctx, key)
	if err != nil {
		return nil, err
	}

	return &model.CircuitStats{
		State:             state,
		Failures:          failures,
		Successes:         successes,
		LastFailureTime:   lastFailure,
		HalfOpenSuccesses: halfOpenSuccesses,
	}, nil
}

// FailureCount returns the current failure counter of the circuit.
func (s *CircuitBreakerStore) FailureCount(ctx context.Context, key string) (int64, error) {
	return s.counter(ctx, key+":failures")
}

func (s *CircuitBreakerStore) setState(ctx context.Context, key string, state model.CircuitState) error {
	if err := s.rdb.Set(ctx, key+":state", string(state), 0).Err(); err != nil {
		return fmt.Errorf("circuit %s: failed to set state: %w", key, err)
	}
	return nil
}

// incrementFailureCount bumps the failure counter and refreshes its TTL so
// failures age out after the cool-down timeout of inactivity.
func (s *CircuitBreakerStore) incrementFailureCount(ctx context.Context, key string) (int64, error) {
	count, err := s.rdb.Incr(ctx, key+":failures").Result()
	if err != nil {
		return 0, fmt.Errorf("circuit %s: failed to increment failure counter: %w", key, err)
	}

	if err := s.rdb.Expire(ctx, key+":failures", s.timeout).Err(); err != nil {
		return 0, fmt.Errorf("circuit %s: failed to set failure counter TTL: %w", key, err)
	}

	return count, nil
}

func (s *CircuitBreakerStore) stampLastFailure(ctx context.Context, key string) error {
	now := fmt.Sprintf("%d", time.Now().Unix())
	if err := s.rdb.Set(ctx, key+":last_failure", now, 0).Err(); err != nil {
		return fmt.Errorf("circuit %s: failed to stamp last failure: %w", key, err)
	}
	return nil
}

func (s *CircuitBreakerStore) lastFailureTime(ctx context.Context, key string) (int64, error) {
	t, err := s.rdb.Get(ctx, key+":last_failure").Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("circuit %s: failed to get last failure time: %w", key, err)
	}
	return t, nil
}

func (s *CircuitBreakerStore) halfOpenSuccessCount(ctx context.Context, key string) (int64, error) {
	return s.counter(ctx, key+":half_open_successes")
}

func (s *CircuitBreakerStore) counter(ctx context.Context, fullKey string) (int64, error) {
	count, err := s.rdb.Get(ctx, fullKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read counter %s: %w", fullKey, err)
	}
	return count, nil
}
