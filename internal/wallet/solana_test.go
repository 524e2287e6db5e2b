package wallet

import "testing"

func TestIsValidAddress(t *testing.T) {
	cases := []struct {
		name    string
		address string
		want    bool
	}{
		// Well-known mainnet addresses.
		{"wrapped SOL mint", "So11111111111111111111111111111111111111112", true},
		{"USDC mint", "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", true},
		{"system program", "11111111111111111111111111111111", true},

		{"empty string", "", false},
		{"not base58 at all", "not-base58!!", false},
		{"contains zero digit", "0Nd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", false},
		{"contains uppercase O", "ONd1mBQtrMJVYVfKf2PJy9NZUZdTAsp7D4xWLs4gDB4T", false},
		{"too short", "abc", false},
		// 33 leading base58 '1's decode to 33 zero bytes — one too many.
		{"valid base58 but 33 bytes", "111111111111111111111111111111111", false},
		{"ethereum address", "0x1f9090aaE28b8a3dCeaDf281B0F12828e676c326", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsValidAddress(tc.address); got != tc.want {
				t.Errorf("IsValidAddress(%q) = %v, want %v", tc.address, got, tc.want)
			}
		})
	}
}
