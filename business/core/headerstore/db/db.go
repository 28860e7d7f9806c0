// Package db contains header store related CRUD functionality.
package db

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"

	"github.com/ardanlabs/relaybench/business/sys/database"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schema string

// Store manages the set of APIs for header access.
type Store struct {
	log *zap.SugaredLogger
	db  *sqlx.DB
}

// NewStore constructs a data for api access.
func NewStore(log *zap.SugaredLogger, db *sqlx.DB) Store {
	return Store{
		log: log,
		db:  db,
	}
}

// Migrate creates the tables when they do not exist.
func (s Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

// StatusCheck checks the database can be reached.
func (s Store) StatusCheck(ctx context.Context) error {
	return database.StatusCheck(ctx, s.db)
}

// QueryByNumber retrieves every block stored at the height ordered by hash.
func (s Store) QueryByNumber(ctx context.Context, number int64) ([]Block, error) {
	const q = `
	SELECT
		block_number, block_hash, parent_hash, block_data
	FROM
		blockheader
	WHERE
		block_number = $1
	ORDER BY
		block_hash`

	var blocks []Block
	if err := s.db.SelectContext(ctx, &blocks, q, number); err != nil {
		return nil, fmt.Errorf("selecting blocks number[%d]: %w", number, err)
	}

	return blocks, nil
}

// QueryByHash retrieves the block with the hash.
func (s Store) QueryByHash(ctx context.Context, hash string) (Block, error) {
	const q = `
	SELECT
		block_number, block_hash, parent_hash, block_data
	FROM
		blockheader
	WHERE
		block_hash = $1`

	var block Block
	if err := s.db.GetContext(ctx, &block, q, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Block{}, database.ErrDBNotFound
		}
		return Block{}, fmt.Errorf("selecting block hash[%s]: %w", hash, err)
	}

	return block, nil
}

// QueryWitness retrieves the witness data of the block with the hash.
func (s Store) QueryWitness(ctx context.Context, hash string) (Witness, error) {
	const q = `
	SELECT
		block_hash, dataset_lookup, witness_lookup
	FROM
		witness
	WHERE
		block_hash = $1`

	var w Witness
	if err := s.db.GetContext(ctx, &w, q, hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Witness{}, database.ErrDBNotFound
		}
		return Witness{}, fmt.Errorf("selecting witness hash[%s]: %w", hash, err)
	}

	return w, nil
}

// Create inserts a block, replacing the data of a block with the same hash.
func (s Store) Create(ctx context.Context, b Block) error {
	const q = `
	INSERT INTO blockheader
		(block_number, block_hash, parent_hash, block_data)
	VALUES
		(:block_number, :block_hash, :parent_hash, :block_data)
	ON CONFLICT (block_hash) DO UPDATE SET
		block_data = EXCLUDED.block_data`

	if _, err := s.db.NamedExecContext(ctx, q, b); err != nil {
		return fmt.Errorf("inserting block hash[%s]: %w", b.BlockHash, err)
	}

	return nil
}

// CreateWitness inserts the witness data of a block.
func (s Store) CreateWitness(ctx context.Context, w Witness) error {
	const q = `
	INSERT INTO witness
		(block_hash, dataset_lookup, witness_lookup)
	VALUES
		(:block_hash, :dataset_lookup, :witness_lookup)
	ON CONFLICT (block_hash) DO UPDATE SET
		dataset_lookup = EXCLUDED.dataset_lookup,
		witness_lookup = EXCLUDED.witness_lookup`

	if _, err := s.db.NamedExecContext(ctx, q, w); err != nil {
		return fmt.Errorf("inserting witness hash[%s]: %w", w.BlockHash, err)
	}

	return nil
}
