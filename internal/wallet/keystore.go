package wallet

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for the keystore KDF.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// keystoreFile is the on-disk format: the secp256k1 private key sealed with
// a passphrase-derived secretbox key.
type keystoreFile struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// KeystoreProvider implements Provider with a local encrypted key file. It is
// the headless counterpart of a browser extension wallet: RequestAccounts
// unlocks the keystore in place of a user approval dialog.
type KeystoreProvider struct {
	mu         sync.Mutex
	path       string
	passphrase string
	key        *secp256k1.PrivateKey
	address    string
}

// NewKeystoreProvider wires a provider to the key file at path. No I/O
// happens until RequestAccounts.
func NewKeystoreProvider(path, passphrase string) *KeystoreProvider {
	return &KeystoreProvider{path: path, passphrase: passphrase}
}

// Available reports whether the key file exists.
func (p *KeystoreProvider) Available() bool {
	if p == nil || p.path == "" {
		return false
	}
	_, err := os.Stat(p.path)
	return err == nil
}

// RequestAccounts unlocks the keystore and returns the account address.
func (p *KeystoreProvider) RequestAccounts(ctx context.Context) (string, error) {
	if !p.Available() {
		return "", ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil {
		return p.address, nil
	}

	raw, err := os.ReadFile(p.path)
	if err != nil {
		return "", fmt.Errorf("wallet: read keystore: %w", err)
	}
	var file keystoreFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return "", fmt.Errorf("wallet: parse keystore: %w", err)
	}

	key, err := unseal(&file, p.passphrase)
	if err != nil {
		return "", err
	}

	p.key = key
	p.address = PubKeyAddress(key.PubKey())
	return p.address, nil
}

// Address returns the unlocked account address, or "".
func (p *KeystoreProvider) Address() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.address
}

// SignMessage signs msg with the unlocked key.
func (p *KeystoreProvider) SignMessage(ctx context.Context, msg []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key == nil {
		return "", ErrLocked
	}
	return signMessage(p.key, msg), nil
}

// Lock forgets the decrypted key; the next RequestAccounts unlocks again.
func (p *KeystoreProvider) Lock() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.key = nil
	p.address = ""
}

// CreateKeystore generates a fresh key, seals it under passphrase, and writes
// the key file. It refuses to overwrite an existing keystore.
func CreateKeystore(path, passphrase string) (string, error) {
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("wallet: keystore already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("wallet: create dir: %w", err)
	}

	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return "", fmt.Errorf("wallet: generate key: %w", err)
	}

	file, err := seal(key, passphrase)
	if err != nil {
		return "", err
	}

	raw, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("wallet: encode keystore: %w", err)
	}
	if err := os.WriteFile(path, raw, 0o600); err != nil {
		return "", fmt.Errorf("wallet: write keystore: %w", err)
	}
	return file.Address, nil
}

func seal(key *secp256k1.PrivateKey, passphrase string) (*keystoreFile, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("wallet: salt: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, fmt.Errorf("wallet: nonce: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive key: %w", err)
	}
	var boxKey [32]byte
	copy(boxKey[:], derived)

	ciphertext := secretbox.Seal(nil, key.Serialize(), &nonce, &boxKey)

	return &keystoreFile{
		Version:    1,
		Address:    PubKeyAddress(key.PubKey()),
		Salt:       hex.EncodeToString(salt),
		Nonce:      hex.EncodeToString(nonce[:]),
		Ciphertext: hex.EncodeToString(ciphertext),
	}, nil
}

func unseal(file *keystoreFile, passphrase string) (*secp256k1.PrivateKey, error) {
	salt, err := hex.DecodeString(file.Salt)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode salt: %w", err)
	}
	nonceRaw, err := hex.DecodeString(file.Nonce)
	if err != nil || len(nonceRaw) != 24 {
		return nil, fmt.Errorf("wallet: invalid keystore nonce")
	}
	ciphertext, err := hex.DecodeString(file.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode ciphertext: %w", err)
	}

	derived, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("wallet: derive key: %w", err)
	}
	var boxKey [32]byte
	copy(boxKey[:], derived)
	var nonce [24]byte
	copy(nonce[:], nonceRaw)

	plain, ok := secretbox.Open(nil, ciphertext, &nonce, &boxKey)
	if !ok {
		return nil, fmt.Errorf("wallet: wrong passphrase or corrupt keystore")
	}

	return secp256k1.PrivKeyFromBytes(plain), nil
}
