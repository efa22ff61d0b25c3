package types

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
)

func signTx(t *testing.T, tx *CanonicalTx, key []byte) {
	t.Helper()
	priv, err := crypto.ToECDSA(key)
	if err != nil {
		t.Fatal(err)
	}
	hash := tx.SigningHash()
	sig, err := crypto.Sign(hash[:], priv)
	if err != nil {
		t.Fatal(err)
	}
	tx.R = new(big.Int).SetBytes(sig[0:32])
	tx.S = new(big.Int).SetBytes(sig[32:64])
	recoveryID := uint64(sig[64])
	if tx.IsDynamicFee() || tx.Kind == KindEip2930 {
		tx.V = new(big.Int).SetUint64(recoveryID)
	} else if tx.ChainID != 0 {
		tx.V = new(big.Int).SetUint64(tx.ChainID*2 + 35 + recoveryID)
	} else {
		tx.V = new(big.Int).SetUint64(27 + recoveryID)
	}
}

func testKey() []byte {
	b := make([]byte, 32)
	b[31] = 0x01
	return b
}

func expectedAddress(t *testing.T, key []byte) Address {
	t.Helper()
	priv, err := crypto.ToECDSA(key)
	if err != nil {
		t.Fatal(err)
	}
	return crypto.PubkeyToAddress(priv.PublicKey)
}

func TestRecoverEip1559RoundTrip(t *testing.T) {
	key := testKey()
	tx := &CanonicalTx{
		Kind: KindEip1559, ChainID: 404, Nonce: 3,
		GasTipCap: big.NewInt(1), GasFeeCap: big.NewInt(1000), Gas: 21000,
		Value: big.NewInt(0), Data: nil,
	}
	signTx(t, tx, key)

	signer, err := tx.Recover()
	if err != nil {
		t.Fatal(err)
	}
	if signer != expectedAddress(t, key) {
		t.Fatalf("recovered %x, want %x", signer, expectedAddress(t, key))
	}
}

func TestRecoverLegacyEip155RoundTrip(t *testing.T) {
	key := testKey()
	tx := &CanonicalTx{
		Kind: KindLegacy, ChainID: 404, Nonce: 0,
		GasPrice: big.NewInt(1000), Gas: 21000, Value: big.NewInt(0),
	}
	signTx(t, tx, key)

	signer, err := tx.Recover()
	if err != nil {
		t.Fatal(err)
	}
	if signer != expectedAddress(t, key) {
		t.Fatalf("recovered %x, want %x", signer, expectedAddress(t, key))
	}
}

func TestRecoverRejectsMissingSignature(t *testing.T) {
	tx := &CanonicalTx{Kind: KindEip1559, ChainID: 404}
	if _, err := tx.Recover(); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
