package solana

import (
	"github.com/gagliardetto/solana-go"
)

// Network selects which Solana cluster the service talks to.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkDevnet  Network = "devnet"
)

// Profile binds a token program ID to the token's decimal precision. The
// two must always travel as a pair: an instruction built with one program's
// decimals under the other program's ID would be rejected by the ledger,
// or worse, move amounts at the wrong scale.
//
// A Profile is selected once per operation from the active network and
// threaded explicitly through the builder and provisioner, rather than
// re-branching on the environment at every call site.
type Profile struct {
	TokenProgramID solana.PublicKey
	Decimals       uint8
}

// DefaultProfile returns the token profile for a network. The production
// asset lives under the original token program with 8 decimals; the devnet
// variant was minted under Token-2022 with 9. Both pairs can be overridden
// through configuration.
func DefaultProfile(network Network) Profile {
	if network == NetworkMainnet {
		return Profile{TokenProgramID: solana.TokenProgramID, Decimals: 8}
	}
	return Profile{TokenProgramID: solana.Token2022ProgramID, Decimals: 9}
}
