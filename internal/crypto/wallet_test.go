package crypto

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Well-known test vector key, never used with real funds.
const testKeyHex = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestWalletAddressDerivation(t *testing.T) {
	w, err := NewWallet(testKeyHex)
	require.NoError(t, err)
	assert.Equal(t,
		common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		w.Address(),
	)

	// 0x prefix is accepted too.
	w2, err := NewWallet("0x" + testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), w2.Address())
}

func TestWalletRejectsBadKey(t *testing.T) {
	_, err := NewWallet("not-hex")
	assert.Error(t, err)
}

func TestSignAndVerifyPayload(t *testing.T) {
	w, err := NewWallet(testKeyHex)
	require.NoError(t, err)

	payload := []byte(`{"event":"resolve","market_id":3}`)
	sig, err := w.SignPayload(payload)
	require.NoError(t, err)

	ok, err := VerifyPayload(payload, sig, w.Address())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPayload([]byte("tampered"), sig, w.Address())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	blob, err := EncryptKey(testKeyHex, "hunter2")
	require.NoError(t, err)

	got, err := DecryptKey(blob, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = DecryptKey(blob, "wrong")
	assert.Error(t, err)
}

func TestLoadKeyPrefersRaw(t *testing.T) {
	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + testKeyHex})
	require.NoError(t, err)
	assert.Equal(t, testKeyHex, got)

	_, err = LoadKey(KeyConfig{})
	assert.Error(t, err)
}
