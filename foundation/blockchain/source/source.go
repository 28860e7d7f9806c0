// Package source provides access to the chain the benchmarked headers come
// from. Remote calls are retried with an exponential backoff.
package source

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// ErrNotFound is returned when the chain does not know the block.
var ErrNotFound = errors.New("block not found")

// Caller represents the behavior required to make remote calls. The
// rpc.Client value implements this interface.
type Caller interface {
	CallContext(ctx context.Context, result any, method string, args ...any) error
}

// Config represents the settings for the source chain.
type Config struct {
	Retries    uint64
	RetryDelay time.Duration
}

// Source provides access to blocks of the source chain.
type Source struct {
	caller Caller
	cfg    Config
}

// Dial connects to the rpc endpoint of the source chain.
func Dial(ctx context.Context, url string, cfg Config) (*Source, *rpc.Client, error) {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial source %s: %w", url, err)
	}

	return New(client, cfg), client, nil
}

// New constructs a source using the caller for remote calls.
func New(caller Caller, cfg Config) *Source {
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 500 * time.Millisecond
	}

	return &Source{
		caller: caller,
		cfg:    cfg,
	}
}

// BlockByNumber returns the block at the height with its transaction hashes.
func (s *Source) BlockByNumber(ctx context.Context, number uint64) (header.Block, error) {
	return s.block(ctx, "eth_getBlockByNumber", hexutil.EncodeUint64(number))
}

// BlockByHash returns the block with the hash with its transaction hashes.
func (s *Source) BlockByHash(ctx context.Context, hash common.Hash) (header.Block, error) {
	return s.block(ctx, "eth_getBlockByHash", hash)
}

// TransactionHashes returns the hashes of the transactions of the block at
// the height.
func (s *Source) TransactionHashes(ctx context.Context, number uint64) ([]common.Hash, error) {
	block, err := s.BlockByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	return block.Transactions, nil
}

func (s *Source) block(ctx context.Context, method string, id any) (header.Block, error) {
	raw, err := s.raw(ctx, method, id)
	if err != nil {
		return header.Block{}, err
	}

	block, err := header.Decode(raw)
	if err != nil {
		return header.Block{}, fmt.Errorf("%s %v: %w", method, id, err)
	}

	return block, nil
}

// raw performs the call retrying failures other than a missing block.
func (s *Source) raw(ctx context.Context, method string, id any) (json.RawMessage, error) {
	var b backoff.BackOff = backoff.NewExponentialBackOff(backoff.WithInitialInterval(s.cfg.RetryDelay))
	b = backoff.WithMaxRetries(b, s.cfg.Retries)
	b = backoff.WithContext(b, ctx)

	f := func() (json.RawMessage, error) {
		var raw json.RawMessage
		if err := s.caller.CallContext(ctx, &raw, method, id, false); err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, backoff.Permanent(fmt.Errorf("%s %v: %w", method, id, ErrNotFound))
		}

		return raw, nil
	}

	raw, err := backoff.RetryWithData(f, b)
	if err != nil {
		return nil, err
	}

	return raw, nil
}
