// Package cache provides the Redis-backed cache-aside layer for upstream QC
// fetches. The cache is strictly an optimization: every helper here degrades
// to a direct fetch when the store is unreachable.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// DefaultConnectTimeout bounds a single connect attempt so a hung socket
	// cannot stall startup or the reconnect loop.
	DefaultConnectTimeout = 5 * time.Second

	// DefaultRetryInterval is how often the reconnect loop retries while the
	// store is unreachable.
	DefaultRetryInterval = 30 * time.Second
)

// Store is the subset of redis.Client commands the cache layer uses.
// *redis.Client satisfies it; tests inject fakes built from the redis
// command result constructors.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// State is the connection state of the manager. Exactly one state holds at a
// time; transitions happen only inside the manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// DialFunc opens a connection to the cache store. The context carries the
// connect timeout; implementations must honor it.
type DialFunc func(ctx context.Context) (Store, error)

// RedisDialer returns a DialFunc for a Redis URL
// (e.g. "redis://localhost:6379" or "redis://:password@host:6379/0").
// The URL is parsed eagerly so a malformed one fails at construction, not on
// every retry tick.
func RedisDialer(url string) (DialFunc, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return func(ctx context.Context) (Store, error) {
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	}, nil
}

// ManagerConfig holds Manager construction options.
type ManagerConfig struct {
	// Dial opens the store connection. Required.
	Dial DialFunc

	// ConnectTimeout bounds one connect attempt (default: 5s).
	ConnectTimeout time.Duration

	// RetryInterval is the reconnect loop period (default: 30s).
	RetryInterval time.Duration
}

// Manager owns the single logical connection to the cache store and keeps it
// alive for the process lifetime. Connection failures are contained here:
// callers see only a nil client, never an error. Safe for concurrent use.
type Manager struct {
	dial           DialFunc
	connectTimeout time.Duration
	retryInterval  time.Duration

	mu    sync.Mutex
	state State
	store Store

	failures chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewManager creates a Manager and performs one bounded connect attempt so a
// reachable store is usable immediately. On failure the manager starts
// disconnected and the background loop keeps retrying; construction never
// fails because the store is down.
func NewManager(cfg ManagerConfig) *Manager {
	m := &Manager{
		dial:           cfg.Dial,
		connectTimeout: cfg.ConnectTimeout,
		retryInterval:  cfg.RetryInterval,
		failures:       make(chan struct{}, 1),
		done:           make(chan struct{}),
	}
	if m.connectTimeout <= 0 {
		m.connectTimeout = DefaultConnectTimeout
	}
	if m.retryInterval <= 0 {
		m.retryInterval = DefaultRetryInterval
	}

	m.connect()

	m.wg.Add(1)
	go m.run()

	return m
}

// Client returns a usable store handle when connected, nil otherwise.
// A nil return means "operate without cache", never a fatal condition.
func (m *Manager) Client() Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateConnected {
		return nil
	}
	return m.store
}

// State returns the current connection state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ReportFailure transitions Connected to Disconnected after an I/O error on
// the store and wakes the reconnect loop. Calls in any other state are no-ops,
// so concurrent reporters cannot double-close the handle.
func (m *Manager) ReportFailure(err error) {
	m.mu.Lock()
	if m.state != StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = StateDisconnected
	store := m.store
	m.store = nil
	m.mu.Unlock()

	slog.Warn("cache store connection lost", "error", err)
	if store != nil {
		_ = store.Close()
	}

	select {
	case m.failures <- struct{}{}:
	default:
	}
}

// Close stops the reconnect loop and releases the store connection.
// Idempotent.
func (m *Manager) Close() error {
	m.stopOnce.Do(func() {
		close(m.done)
	})
	m.wg.Wait()

	m.mu.Lock()
	store := m.store
	m.store = nil
	m.state = StateDisconnected
	m.mu.Unlock()

	if store != nil {
		return store.Close()
	}
	return nil
}

// run is the reconnect loop: while disconnected, retry once per interval.
// Reconnection is silent self-healing; it never propagates errors and never
// gives up.
func (m *Manager) run() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.retryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.done:
			return
		case <-m.failures:
		case <-ticker.C:
		}

		if m.State() == StateConnected {
			continue
		}
		m.connect()
	}
}

// connect performs one bounded connect attempt.
func (m *Manager) connect() {
	m.mu.Lock()
	if m.state == StateConnected {
		m.mu.Unlock()
		return
	}
	m.state = StateConnecting
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.connectTimeout)
	defer cancel()

	store, err := m.dial(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.state = StateDisconnected
		slog.Warn("cache store connect failed, operating without cache", "error", err)
		return
	}
	m.state = StateConnected
	m.store = store
	slog.Info("cache store connected")
}
