package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the oracle's secp256k1 key pair. The derived address is the
// identity the settlement loop submits chain calls as, and the key signs
// attestations over audit entries.
type Wallet struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewWallet creates a Wallet from a hex-encoded secp256k1 private key.
func NewWallet(privateKeyHex string) (*Wallet, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Wallet{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the wallet's private key.
func (w *Wallet) Address() common.Address {
	return w.address
}

// SignPayload hashes payload with keccak256 and signs the digest. The result
// is a hex-encoded 65-byte signature (r || s || v, with v in {27, 28}).
func (w *Wallet) SignPayload(payload []byte) (string, error) {
	digest := ethcrypto.Keccak256(payload)
	sig, err := ethcrypto.Sign(digest, w.privateKey)
	if err != nil {
		return "", fmt.Errorf("crypto: signing payload: %w", err)
	}
	if sig[64] < 27 {
		sig[64] += 27
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// VerifyPayload recovers the signing address from a SignPayload signature
// and compares it to addr.
func VerifyPayload(payload []byte, sigHex string, addr common.Address) (bool, error) {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return false, fmt.Errorf("crypto: decoding signature: %w", err)
	}
	if len(sig) != 65 {
		return false, fmt.Errorf("crypto: expected 65-byte signature, got %d", len(sig))
	}

	// Recovery expects v in {0, 1}.
	recSig := make([]byte, 65)
	copy(recSig, sig)
	if recSig[64] >= 27 {
		recSig[64] -= 27
	}

	digest := ethcrypto.Keccak256(payload)
	pub, err := ethcrypto.SigToPub(digest, recSig)
	if err != nil {
		return false, fmt.Errorf("crypto: recovering public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub) == addr, nil
}
