package wallet

import (
	"fmt"
	"time"
)

// SigningMessage builds the human-readable authentication message presented
// to the wallet for signing. The backend recovers the signer from exactly
// this text, so the same string must be sent alongside the signature.
func SigningMessage(address string, now time.Time) string {
	return fmt.Sprintf(
		"ChainFund Lite Authentication\nWallet: %s\nTimestamp: %s\n\nPlease sign this message to authenticate with ChainFund Lite.",
		address, now.UTC().Format("2006-01-02T15:04:05"),
	)
}
