package solana

import (
	"github.com/gagliardetto/solana-go"
)

// AssociatedTokenAddress derives the associated token account for owner
// under the given token program and mint. The derivation is a pure function
// of its inputs: the seeds are, in order, the owner address, the token
// program ID, and the mint address, evaluated under the associated-token-
// account program. Identical inputs always yield the identical address.
//
// solana.FindAssociatedTokenAddress is deliberately not used here: it binds
// the original token program into the seed list, and Token-2022 accounts
// derive with the 2022 program ID instead.
func AssociatedTokenAddress(owner, tokenProgram, mint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{
			owner.Bytes(),
			tokenProgram.Bytes(),
			mint.Bytes(),
		},
		solana.SPLAssociatedTokenAccountProgramID,
	)
	if err != nil {
		// The bump seed search space is exhausted. Practically unreachable,
		// but the contract is an error, not a panic.
		return solana.PublicKey{}, &DerivationError{Owner: owner, Mint: mint, Err: err}
	}
	return addr, nil
}
