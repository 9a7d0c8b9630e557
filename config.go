package wrapnzap

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds the addresses a Zapper is built with. It never changes after
// New.
type Config struct {
	// Address is the Zapper's own ledger account.
	Address common.Address `json:"address" yaml:"address" mapstructure:"address"`

	// Recipient receives every forwarded token.
	Recipient common.Address `json:"recipient" yaml:"recipient" mapstructure:"recipient"`

	// Wrapper is the wrapping service's ledger account.
	Wrapper common.Address `json:"wrapper" yaml:"wrapper" mapstructure:"wrapper"`
}

// Validate checks that every address is set and the Zapper's own account
// is distinct from the other two.
func (c Config) Validate() error {
	zero := common.Address{}
	switch {
	case c.Address == zero:
		return fmt.Errorf("%w: address", ErrZeroAddress)
	case c.Recipient == zero:
		return fmt.Errorf("%w: recipient", ErrZeroAddress)
	case c.Wrapper == zero:
		return fmt.Errorf("%w: wrapper", ErrZeroAddress)
	case c.Address == c.Recipient, c.Address == c.Wrapper:
		return ErrSelfReference
	}
	return nil
}
