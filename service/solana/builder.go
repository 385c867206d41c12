package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/shopspring/decimal"
)

// Instruction discriminators for the SPL token and associated-token-account
// programs. The token builders shipped with solana-go bind their program ID
// through a package-level global, which cannot express the per-environment
// Tokenkeg vs Token-2022 split, so these two instructions are encoded
// directly against the profile's program ID.
const (
	tokenInstructionTransferChecked byte = 12
	ataInstructionCreateIdempotent  byte = 1
)

// BuildNativeTransfer assembles and signs a system-program transfer of
// amount SOL from the sender wallet to recipient. SOL always carries
// NativeDecimals; the environment profile does not apply to the native
// asset.
func BuildNativeTransfer(
	sender *Signer,
	recipient solana.PublicKey,
	amount decimal.Decimal,
	blockhash solana.Hash,
) (*solana.Transaction, error) {
	if amount.IsNegative() {
		return nil, &ValidationError{Reason: "amount must not be negative"}
	}
	lamports, err := ToMinorUnits(amount, NativeDecimals)
	if err != nil {
		return nil, err
	}

	ix := system.NewTransferInstruction(lamports, sender.PublicKey(), recipient).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(sender.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}
	if err := sender.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildTokenTransfer assembles and signs a checked SPL transfer between two
// derived token accounts. The checked variant embeds the mint and the
// profile's decimal count so the ledger rejects the instruction if either
// has drifted from the actual asset; a plain transfer would silently move
// the wrong scale.
func BuildTokenTransfer(
	sender *Signer,
	source, destination solana.PublicKey,
	mint solana.PublicKey,
	amount decimal.Decimal,
	profile Profile,
	blockhash solana.Hash,
) (*solana.Transaction, error) {
	if amount.IsNegative() {
		return nil, &ValidationError{Reason: "amount must not be negative"}
	}
	raw, err := ToMinorUnits(amount, profile.Decimals)
	if err != nil {
		return nil, err
	}

	ix := transferCheckedInstruction(
		profile.TokenProgramID,
		source,
		mint,
		destination,
		sender.PublicKey(),
		raw,
		profile.Decimals,
	)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(sender.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}
	if err := sender.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildCreateAssociatedAccount assembles and signs an idempotent creation
// of owner's associated token account for mint under the profile's token
// program, paid for by payer. Submitting it for an account that already
// exists is a no-op on the ledger.
func BuildCreateAssociatedAccount(
	payer *Signer,
	owner, mint solana.PublicKey,
	profile Profile,
	blockhash solana.Hash,
) (*solana.Transaction, error) {
	ata, err := AssociatedTokenAddress(owner, profile.TokenProgramID, mint)
	if err != nil {
		return nil, err
	}

	ix := createIdempotentInstruction(payer.PublicKey(), owner, ata, mint, profile.TokenProgramID)

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		blockhash,
		solana.TransactionPayer(payer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}
	if err := payer.Sign(tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// transferCheckedInstruction encodes a TransferChecked instruction for the
// given token program: discriminator, little-endian u64 raw amount, and the
// expected decimal count.
func transferCheckedInstruction(
	programID, source, mint, destination, owner solana.PublicKey,
	rawAmount uint64,
	decimals uint8,
) solana.Instruction {
	data := make([]byte, 10)
	data[0] = tokenInstructionTransferChecked
	binary.LittleEndian.PutUint64(data[1:9], rawAmount)
	data[9] = decimals

	return solana.NewInstruction(
		programID,
		solana.AccountMetaSlice{
			solana.Meta(source).WRITE(),
			solana.Meta(mint),
			solana.Meta(destination).WRITE(),
			solana.Meta(owner).SIGNER(),
		},
		data,
	)
}

// createIdempotentInstruction encodes a CreateIdempotent instruction of the
// associated-token-account program.
func createIdempotentInstruction(
	payer, owner, ata, mint, tokenProgram solana.PublicKey,
) solana.Instruction {
	return solana.NewInstruction(
		solana.SPLAssociatedTokenAccountProgramID,
		solana.AccountMetaSlice{
			solana.Meta(payer).WRITE().SIGNER(),
			solana.Meta(ata).WRITE(),
			solana.Meta(owner),
			solana.Meta(mint),
			solana.Meta(solana.SystemProgramID),
			solana.Meta(tokenProgram),
		},
		[]byte{ataInstructionCreateIdempotent},
	)
}
