package client

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/blockberries/mina-signer-go/transaction"
)

// verifyAll runs verify on every index of an n-item batch and returns the
// results in input order. It stops early only when ctx is done.
func (c *Client) verifyAll(ctx context.Context, n int, verify func(i int) bool) ([]bool, error) {
	results := make([]bool, n)
	g, ctx := errgroup.WithContext(ctx)
	if c.concurrency > 0 {
		g.SetLimit(c.concurrency)
	}
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = verify(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// VerifyPayments verifies txs concurrently. results[i] belongs to txs[i].
func (c *Client) VerifyPayments(ctx context.Context, txs []*transaction.SignedPayment) ([]bool, error) {
	results, err := c.verifyAll(ctx, len(txs), func(i int) bool {
		return c.VerifyPayment(txs[i])
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("verified payments", "count", len(txs), "valid", countTrue(results))
	return results, nil
}

// VerifyStakeDelegations verifies txs concurrently. results[i] belongs to
// txs[i].
func (c *Client) VerifyStakeDelegations(ctx context.Context, txs []*transaction.SignedStakeDelegation) ([]bool, error) {
	results, err := c.verifyAll(ctx, len(txs), func(i int) bool {
		return c.VerifyStakeDelegation(txs[i])
	})
	if err != nil {
		return nil, err
	}
	c.logger.Debug("verified stake delegations", "count", len(txs), "valid", countTrue(results))
	return results, nil
}

// VerifyMessages verifies msgs concurrently. results[i] belongs to msgs[i].
func (c *Client) VerifyMessages(ctx context.Context, msgs []*transaction.SignedMessage) ([]bool, error) {
	return c.verifyAll(ctx, len(msgs), func(i int) bool {
		return c.VerifyMessage(msgs[i])
	})
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
