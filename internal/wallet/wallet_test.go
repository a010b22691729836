package wallet

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestSignAndVerify(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	address := PubKeyAddress(key.PubKey())
	msg := SigningMessage(address, time.Now())

	sig := signMessage(key, []byte(msg))
	if !strings.HasPrefix(sig, "0x") || len(sig) != 2+130 {
		t.Fatalf("signature = %q, want 0x-prefixed 65-byte hex", sig)
	}

	if !VerifySignature(address, msg, sig) {
		t.Error("VerifySignature() = false for a valid signature")
	}
	if VerifySignature(address, msg+"x", sig) {
		t.Error("VerifySignature() = true for a tampered message")
	}

	other, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	if VerifySignature(PubKeyAddress(other.PubKey()), msg, sig) {
		t.Error("VerifySignature() = true for the wrong address")
	}
}

func TestVerifySignature_ZeroBasedRecoveryID(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	address := PubKeyAddress(key.PubKey())
	msg := "hello"

	sig := signMessage(key, []byte(msg))

	// Rewrite the trailing v byte from the 27/28 convention to 0/1; some
	// signers emit the zero-based form and both must verify.
	raw, err := hex.DecodeString(strings.TrimPrefix(sig, "0x"))
	if err != nil {
		t.Fatalf("decode signature: %v", err)
	}
	raw[64] -= 27
	zeroBased := "0x" + hex.EncodeToString(raw)

	if !VerifySignature(address, msg, zeroBased) {
		t.Error("VerifySignature() = false for zero-based recovery id")
	}
}

func TestVerifySignature_Malformed(t *testing.T) {
	if VerifySignature("0xabc", "msg", "0x1234") {
		t.Error("VerifySignature() = true for a truncated signature")
	}
	if VerifySignature("0xabc", "msg", "not-hex") {
		t.Error("VerifySignature() = true for non-hex input")
	}
}

func TestPubKeyAddress_Shape(t *testing.T) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey() error = %v", err)
	}
	addr := PubKeyAddress(key.PubKey())
	if !strings.HasPrefix(addr, "0x") || len(addr) != 42 {
		t.Errorf("address = %q, want 0x-prefixed 20-byte hex", addr)
	}
}

func TestSigningMessage_Format(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := SigningMessage("0xAA", ts)

	if !strings.Contains(msg, "Wallet: 0xAA") {
		t.Errorf("message missing wallet line: %q", msg)
	}
	if !strings.Contains(msg, "Timestamp: 2024-01-02T03:04:05") {
		t.Errorf("message missing timestamp line: %q", msg)
	}
	if !strings.HasPrefix(msg, "ChainFund Lite Authentication") {
		t.Errorf("message missing header: %q", msg)
	}
}

func TestKeystore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keystore.json")

	address, err := CreateKeystore(path, "hunter2")
	if err != nil {
		t.Fatalf("CreateKeystore() error = %v", err)
	}

	p := NewKeystoreProvider(path, "hunter2")
	if !p.Available() {
		t.Fatal("Available() = false after CreateKeystore")
	}

	got, err := p.RequestAccounts(ctx)
	if err != nil {
		t.Fatalf("RequestAccounts() error = %v", err)
	}
	if got != address {
		t.Errorf("RequestAccounts() = %q, want %q", got, address)
	}
	if p.Address() != address {
		t.Errorf("Address() = %q, want %q", p.Address(), address)
	}

	sig, err := p.SignMessage(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("SignMessage() error = %v", err)
	}
	if !VerifySignature(address, "hello", sig) {
		t.Error("keystore signature does not verify against its own address")
	}
}

func TestKeystore_WrongPassphrase(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "keystore.json")

	if _, err := CreateKeystore(path, "correct"); err != nil {
		t.Fatalf("CreateKeystore() error = %v", err)
	}

	p := NewKeystoreProvider(path, "wrong")
	if _, err := p.RequestAccounts(ctx); err == nil {
		t.Error("RequestAccounts() with wrong passphrase succeeded")
	}
}

func TestKeystore_RefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keystore.json")

	if _, err := CreateKeystore(path, "pw"); err != nil {
		t.Fatalf("CreateKeystore() error = %v", err)
	}
	if _, err := CreateKeystore(path, "pw"); err == nil {
		t.Error("CreateKeystore() overwrote an existing keystore")
	}
}

func TestKeystore_LockedAndMissing(t *testing.T) {
	ctx := context.Background()

	missing := NewKeystoreProvider(filepath.Join(t.TempDir(), "nope.json"), "pw")
	if missing.Available() {
		t.Error("Available() = true for a missing key file")
	}
	if _, err := missing.RequestAccounts(ctx); err != ErrUnavailable {
		t.Errorf("RequestAccounts() error = %v, want ErrUnavailable", err)
	}

	path := filepath.Join(t.TempDir(), "keystore.json")
	if _, err := CreateKeystore(path, "pw"); err != nil {
		t.Fatalf("CreateKeystore() error = %v", err)
	}
	locked := NewKeystoreProvider(path, "pw")
	if _, err := locked.SignMessage(ctx, []byte("x")); err != ErrLocked {
		t.Errorf("SignMessage() before unlock error = %v, want ErrLocked", err)
	}
}
