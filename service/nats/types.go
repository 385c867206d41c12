package nats

import (
	"time"
)

// TransferEvent represents a settled transfer published to NATS.
// This is published to the subject "transfers.{network}" in JetStream
// once the transaction has been observed at finalized commitment.
type TransferEvent struct {
	// Transaction identifier
	Signature string `json:"signature"`

	// Transfer details
	Network   string  `json:"network"` // "mainnet" or "devnet"
	Kind      string  `json:"kind"`    // "native" or "token"
	Recipient string  `json:"recipient"`
	Mint      *string `json:"mint,omitempty"` // nil for native SOL
	RawAmount uint64  `json:"raw_amount"`     // minor units
	Amount    string  `json:"amount"`         // human units, decimal string

	// Metadata
	SettledAt   time.Time `json:"settled_at"`
	PublishedAt time.Time `json:"published_at"`
}
