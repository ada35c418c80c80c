package health

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Probe func(ctx context.Context) error

type named struct {
	name  string
	probe Probe
}

// Checker runs every registered probe in registration order and reports
// the first failure.
type Checker struct {
	probes  []named
	timeout time.Duration
}

func NewChecker(timeout time.Duration) *Checker {
	return &Checker{timeout: timeout}
}

func (c *Checker) Add(name string, p Probe) *Checker {
	c.probes = append(c.probes, named{name: name, probe: p})
	return c
}

func (c *Checker) Check(ctx context.Context) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	for _, n := range c.probes {
		if err := n.probe(ctx); err != nil {
			return fmt.Errorf("%s: %w", n.name, err)
		}
	}
	return nil
}

func Database(db *gorm.DB) Probe {
	return func(ctx context.Context) error {
		return db.WithContext(ctx).Exec("SELECT 1").Error
	}
}

func Redis(client *redis.Client) Probe {
	return func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}
}
