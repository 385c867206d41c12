package solana

import (
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
)

// Signer holds the wallet keypair for one operation. The secret key never
// leaves the struct: String and LogValue render only the public address,
// so an errant log line cannot leak key material.
type Signer struct {
	key solana.PrivateKey
}

// NewSigner decodes base58-encoded secret key material into a Signer.
// Solana secret keys are the 64-byte concatenation of the ed25519 seed and
// the public key.
func NewSigner(secret string) (*Signer, error) {
	raw, err := base58.Decode(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to decode secret key: %w", err)
	}
	if len(raw) != 64 {
		return nil, fmt.Errorf("secret key must decode to 64 bytes, got %d", len(raw))
	}
	return &Signer{key: solana.PrivateKey(raw)}, nil
}

// PublicKey returns the wallet's public address.
func (s *Signer) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Sign fills in every signature the transaction requires from this wallet.
func (s *Signer) Sign(tx *solana.Transaction) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(s.key.PublicKey()) {
			return &s.key
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}

// String renders the public address only.
func (s *Signer) String() string {
	return s.key.PublicKey().String()
}

// LogValue implements slog.LogValuer so a Signer passed to a logger shows
// its public address, never the secret.
func (s *Signer) LogValue() slog.Value {
	return slog.StringValue(s.String())
}
