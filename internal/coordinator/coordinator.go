// Package coordinator serializes ledger mutations per account. There is no
// global lock: each key gets its own section, created on first use and
// dropped once nobody holds or waits for it.
package coordinator

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"

	"partnershib-bot/internal/ledger"
)

type section struct {
	sem  chan struct{}
	refs int
}

type Coordinator struct {
	sections *xsync.Map[int64, *section]
}

func New() *Coordinator {
	return &Coordinator{sections: xsync.NewMap[int64, *section]()}
}

func (c *Coordinator) acquire(key int64) *section {
	s, _ := c.sections.Compute(key, func(old *section, loaded bool) (*section, xsync.ComputeOp) {
		if !loaded {
			old = &section{sem: make(chan struct{}, 1)}
		}
		old.refs++
		return old, xsync.UpdateOp
	})
	return s
}

func (c *Coordinator) release(key int64) {
	c.sections.Compute(key, func(old *section, loaded bool) (*section, xsync.ComputeOp) {
		if !loaded {
			return nil, xsync.CancelOp
		}
		old.refs--
		if old.refs == 0 {
			return nil, xsync.DeleteOp
		}
		return old, xsync.UpdateOp
	})
}

// Lock enters the exclusive section of key. It returns ledger.ErrUnavailable
// if ctx ends first. The returned unlock must be called exactly once.
func (c *Coordinator) Lock(ctx context.Context, key int64) (func(), error) {
	s := c.acquire(key)

	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		c.release(key)
		return nil, fmt.Errorf("%w: waiting for account %d: %w", ledger.ErrUnavailable, key, ctx.Err())
	}

	return func() {
		<-s.sem
		c.release(key)
	}, nil
}

// Do runs fn inside the section of key.
func (c *Coordinator) Do(ctx context.Context, key int64, fn func() error) error {
	unlock, err := c.Lock(ctx, key)
	if err != nil {
		return err
	}
	defer unlock()

	return fn()
}

// Len is the number of live sections.
func (c *Coordinator) Len() int {
	return c.sections.Size()
}
