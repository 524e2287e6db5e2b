// Package wallet validates Solana wallet addresses.
//
// A Solana address is the base58 encoding (Bitcoin alphabet) of a 32-byte
// ed25519 public key. Decoding the string and checking the length is exactly
// the check solana's own SDKs perform when constructing a PublicKey, and it
// is all the core needs — whether the key corresponds to a funded account is
// a chain concern, not an address-grammar one.
package wallet

import "github.com/mr-tron/base58"

// publicKeyLength is the byte length of an ed25519 public key.
const publicKeyLength = 32

// IsValidAddress reports whether s is a well-formed Solana address.
func IsValidAddress(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == publicKeyLength
}
