package db

// Block represents a row of the blockheader table. The block data is the
// JSON block object.
type Block struct {
	BlockNumber int64  `db:"block_number"`
	BlockHash   string `db:"block_hash"`
	ParentHash  string `db:"parent_hash"`
	BlockData   string `db:"block_data"`
}

// Witness represents a row of the witness table. The lookups are JSON
// arrays of uint256 values.
type Witness struct {
	BlockHash     string `db:"block_hash"`
	DatasetLookup string `db:"dataset_lookup"`
	WitnessLookup string `db:"witness_lookup"`
}
