package discovery

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

const addressLength = 42

// ParseToken validates a token address without touching the network.
// The input must be 0x followed by exactly 40 hex digits.
func ParseToken(input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if len(input) != addressLength {
		return common.Address{}, fmt.Errorf("%w: %q has length %d, want %d", ErrInvalidAddress, input, len(input), addressLength)
	}
	if !strings.HasPrefix(input, "0x") && !strings.HasPrefix(input, "0X") {
		return common.Address{}, fmt.Errorf("%w: %q lacks 0x prefix", ErrInvalidAddress, input)
	}
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("%w: %q is not hex", ErrInvalidAddress, input)
	}
	return common.HexToAddress(input), nil
}
