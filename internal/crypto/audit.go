package crypto

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/januslabs/janusd/internal/domain"
)

// SignedAuditStore decorates a domain.AuditStore so every entry carries a
// wallet signature over its canonical detail JSON. Entries become verifiable
// with VerifyPayload against the oracle address.
type SignedAuditStore struct {
	inner  domain.AuditStore
	wallet *Wallet
}

// NewSignedAuditStore wraps inner so entries are signed by wallet.
func NewSignedAuditStore(inner domain.AuditStore, wallet *Wallet) *SignedAuditStore {
	return &SignedAuditStore{inner: inner, wallet: wallet}
}

var _ domain.AuditStore = (*SignedAuditStore)(nil)

// Log signs the canonical JSON of detail and appends the signature and
// signer address before delegating to the inner store.
func (s *SignedAuditStore) Log(ctx context.Context, event string, detail map[string]any) error {
	payload, err := json.Marshal(detail)
	if err != nil {
		return fmt.Errorf("crypto: marshal audit detail: %w", err)
	}
	sig, err := s.wallet.SignPayload(payload)
	if err != nil {
		return fmt.Errorf("crypto: sign audit entry: %w", err)
	}

	signed := make(map[string]any, len(detail)+2)
	for k, v := range detail {
		signed[k] = v
	}
	signed["sig"] = sig
	signed["signer"] = s.wallet.Address().Hex()

	return s.inner.Log(ctx, event, signed)
}

// List delegates to the inner store.
func (s *SignedAuditStore) List(ctx context.Context, limit int) ([]domain.AuditEntry, error) {
	return s.inner.List(ctx, limit)
}
