package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"golang.org/x/crypto/sha3"
)

const personalSignPrefix = "\x19Ethereum Signed Message:\n"

// hashPersonalMessage computes the personal_sign digest: the keccak256 of the
// length-prefixed message, matching what MetaMask signs and what the backend
// recovers against.
func hashPersonalMessage(msg []byte) []byte {
	h := sha3.NewLegacyKeccak256()
	fmt.Fprintf(h, "%s%d", personalSignPrefix, len(msg))
	h.Write(msg)
	return h.Sum(nil)
}

// PubKeyAddress derives the 0x-prefixed hex account address from a public
// key: the last 20 bytes of keccak256 over the uncompressed key body.
func PubKeyAddress(pub *secp256k1.PublicKey) string {
	uncompressed := pub.SerializeUncompressed()
	h := sha3.NewLegacyKeccak256()
	h.Write(uncompressed[1:])
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[12:])
}

// signMessage produces the 0x-prefixed r||s||v signature over msg.
func signMessage(key *secp256k1.PrivateKey, msg []byte) string {
	// SignCompact lays the signature out as header||r||s with the recovery
	// id folded into the header byte; rearrange to the Ethereum r||s||v wire
	// order.
	compact := secpecdsa.SignCompact(key, hashPersonalMessage(msg), false)
	sig := make([]byte, 65)
	copy(sig, compact[1:])
	sig[64] = compact[0]
	return "0x" + hex.EncodeToString(sig)
}

// VerifySignature recovers the signer of msg from a 0x-prefixed r||s||v
// signature and compares it to address (case-insensitive). The trailing v
// byte may use either the 27/28 or the 0/1 convention.
func VerifySignature(address, msg, sigHex string) bool {
	raw, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil || len(raw) != 65 {
		return false
	}

	v := raw[64]
	if v < 27 {
		v += 27
	}
	compact := make([]byte, 65)
	compact[0] = v
	copy(compact[1:], raw[:64])

	pub, _, err := secpecdsa.RecoverCompact(compact, hashPersonalMessage([]byte(msg)))
	if err != nil {
		return false
	}
	return strings.EqualFold(PubKeyAddress(pub), address)
}
