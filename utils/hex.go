package utils

import (
	"encoding/hex"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// NumToHex encodes n as an Ethereum QUANTITY: 0x prefixed, lowercase, no leading zeros.
func NumToHex(n uint64) string {
	return hexutil.EncodeUint64(n)
}

// BigToHex is NumToHex for arbitrary precision values. A nil value encodes as 0x0.
func BigToHex(n *big.Int) string {
	if n == nil {
		return "0x0"
	}
	return hexutil.EncodeBig(n)
}

// BytesToHex encodes b as lowercase hex without a 0x prefix.
func BytesToHex(b []byte) string {
	return hex.EncodeToString(b)
}

func HexPrefix(s string) string {
	return "0x" + s
}

// StripHexPrefix removes a leading 0x or 0X, if any.
func StripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}

// IsHex reports whether s is made only of hex digits, in either case.
func IsHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F') {
			return false
		}
	}
	return true
}
