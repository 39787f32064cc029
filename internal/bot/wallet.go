package bot

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// NormalizeWallet checks that s is a 20-byte hex address and returns it in
// EIP-55 checksum form. The zero address is refused.
func NormalizeWallet(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return "", false
	}

	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return "", false
	}
	return addr.Hex(), true
}
