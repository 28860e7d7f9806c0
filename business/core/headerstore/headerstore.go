// Package headerstore provides the core business API for the headers the
// experiments replay against the relays.
package headerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ardanlabs/relaybench/business/core/headerstore/db"
	"github.com/ardanlabs/relaybench/business/sys/database"
	"github.com/ardanlabs/relaybench/foundation/blockchain/header"
	"github.com/ardanlabs/relaybench/foundation/blockchain/relay"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a block or its witness is not stored.
var ErrNotFound = errors.New("not found")

// Storer declares the behavior the store needs to persist and retrieve data.
type Storer interface {
	Migrate(ctx context.Context) error
	StatusCheck(ctx context.Context) error
	QueryByNumber(ctx context.Context, number int64) ([]db.Block, error)
	QueryByHash(ctx context.Context, hash string) (db.Block, error)
	QueryWitness(ctx context.Context, hash string) (db.Witness, error)
	Create(ctx context.Context, b db.Block) error
	CreateWitness(ctx context.Context, w db.Witness) error
}

// Core manages the set of APIs for header access.
type Core struct {
	log    *zap.SugaredLogger
	storer Storer
}

// NewCore constructs a core for header api access.
func NewCore(log *zap.SugaredLogger, storer Storer) *Core {
	return &Core{
		log:    log,
		storer: storer,
	}
}

// Migrate creates the schema when it is missing.
func (c *Core) Migrate(ctx context.Context) error {
	return c.storer.Migrate(ctx)
}

// StatusCheck checks the store can be reached.
func (c *Core) StatusCheck(ctx context.Context) error {
	return c.storer.StatusCheck(ctx)
}

// BlocksOfHeight returns every stored block at the height, forks included,
// ordered by hash.
func (c *Core) BlocksOfHeight(ctx context.Context, number uint64) ([]header.Block, error) {
	rows, err := c.storer.QueryByNumber(ctx, int64(number))
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	blocks := make([]header.Block, len(rows))
	for i, row := range rows {
		b, err := header.Decode([]byte(row.BlockData))
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", row.BlockHash, err)
		}
		blocks[i] = b
	}

	return blocks, nil
}

// Block returns the stored block with the hash.
func (c *Core) Block(ctx context.Context, hash common.Hash) (header.Block, error) {
	row, err := c.storer.QueryByHash(ctx, hash.Hex())
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return header.Block{}, fmt.Errorf("block %s: %w", hash.Hex(), ErrNotFound)
		}
		return header.Block{}, fmt.Errorf("query: %w", err)
	}

	b, err := header.Decode([]byte(row.BlockData))
	if err != nil {
		return header.Block{}, fmt.Errorf("block %s: %w", row.BlockHash, err)
	}

	return b, nil
}

// Parent returns the stored block the block points to as its parent.
func (c *Core) Parent(ctx context.Context, b header.Block) (header.Block, error) {
	parent, err := c.Block(ctx, b.ParentHash)
	if err != nil {
		return header.Block{}, fmt.Errorf("parent of %s: %w", b.Hash.Hex(), err)
	}

	return parent, nil
}

// Witness returns the Ethash witness data stored for the block.
func (c *Core) Witness(ctx context.Context, b header.Block) (relay.Witness, error) {
	row, err := c.storer.QueryWitness(ctx, b.Hash.Hex())
	if err != nil {
		if errors.Is(err, database.ErrDBNotFound) {
			return relay.Witness{}, fmt.Errorf("witness %s: %w", b.Hash.Hex(), ErrNotFound)
		}
		return relay.Witness{}, fmt.Errorf("query: %w", err)
	}

	dsl, err := decodeLookup(row.DatasetLookup)
	if err != nil {
		return relay.Witness{}, fmt.Errorf("witness %s: dataset lookup: %w", row.BlockHash, err)
	}

	wfl, err := decodeLookup(row.WitnessLookup)
	if err != nil {
		return relay.Witness{}, fmt.Errorf("witness %s: witness lookup: %w", row.BlockHash, err)
	}

	return relay.Witness{DatasetLookup: dsl, WitnessForLookup: wfl}, nil
}

// AddBlock stores the block. The stored hash is recalculated from the
// header fields so a block with inconsistent data is rejected.
func (c *Core) AddBlock(ctx context.Context, b header.Block) error {
	if err := header.VerifyHash(b); err != nil {
		return fmt.Errorf("block %d: %w", b.NumberU64(), err)
	}

	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode block %s: %w", b.Hash.Hex(), err)
	}

	row := db.Block{
		BlockNumber: int64(b.NumberU64()),
		BlockHash:   b.Hash.Hex(),
		ParentHash:  b.ParentHash.Hex(),
		BlockData:   string(data),
	}

	if err := c.storer.Create(ctx, row); err != nil {
		return fmt.Errorf("create: %w", err)
	}

	c.log.Debugw("headerstore", "status", "block added", "number", row.BlockNumber, "hash", row.BlockHash)

	return nil
}

// AddWitness stores the witness data of the block with the hash.
func (c *Core) AddWitness(ctx context.Context, hash common.Hash, w relay.Witness) error {
	dsl, err := encodeLookup(w.DatasetLookup)
	if err != nil {
		return fmt.Errorf("encode dataset lookup: %w", err)
	}

	wfl, err := encodeLookup(w.WitnessForLookup)
	if err != nil {
		return fmt.Errorf("encode witness lookup: %w", err)
	}

	row := db.Witness{
		BlockHash:     hash.Hex(),
		DatasetLookup: dsl,
		WitnessLookup: wfl,
	}

	if err := c.storer.CreateWitness(ctx, row); err != nil {
		return fmt.Errorf("create witness: %w", err)
	}

	return nil
}

// =============================================================================

// decodeLookup decodes a JSON array of numbers, decimal or hex strings.
func decodeLookup(data string) ([]*big.Int, error) {
	var qs []*header.Quantity
	if err := json.Unmarshal([]byte(data), &qs); err != nil {
		return nil, err
	}

	values := make([]*big.Int, len(qs))
	for i, q := range qs {
		values[i] = q.Big()
	}

	return values, nil
}

// encodeLookup encodes the values as a JSON array of decimal strings.
func encodeLookup(values []*big.Int) (string, error) {
	qs := make([]*header.Quantity, len(values))
	for i, v := range values {
		if v == nil || v.Sign() < 0 {
			return "", fmt.Errorf("invalid value at index %d", i)
		}
		qs[i] = (*header.Quantity)(v)
	}

	data, err := json.Marshal(qs)
	if err != nil {
		return "", err
	}

	return string(data), nil
}
