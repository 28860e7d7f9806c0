package header

import (
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TxList is the list of transaction hashes of a block. Blocks fetched with
// full transaction objects are reduced to their hashes.
type TxList []common.Hash

// UnmarshalJSON implements the json.Unmarshaler interface.
func (l *TxList) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	list := make(TxList, len(raw))
	for i, item := range raw {
		if len(item) > 0 && item[0] == '{' {
			var tx struct {
				Hash common.Hash `json:"hash"`
			}
			if err := json.Unmarshal(item, &tx); err != nil {
				return fmt.Errorf("transaction %d: %w", i, err)
			}
			list[i] = tx.Hash
			continue
		}

		if err := json.Unmarshal(item, &list[i]); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}

	*l = list
	return nil
}
