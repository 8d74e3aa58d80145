package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

const revertPrefix = "execution reverted"

// RevertError reports a transaction that was mined with a failed status.
type RevertError struct {
	TxHash  common.Hash
	GasUsed uint64
	Reason  string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("tx %s reverted", e.TxHash.Hex())
	}
	return fmt.Sprintf("tx %s reverted: %s", e.TxHash.Hex(), e.Reason)
}

// RevertReason extracts a readable reason from a call or send error.
// Error(string) payloads carried as rpc error data are decoded.
func RevertReason(err error) string {
	if err == nil {
		return ""
	}

	var revert *RevertError
	if errors.As(err, &revert) {
		if revert.Reason != "" {
			return revert.Reason
		}
		return revertPrefix
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if reason, ok := decodeRevertData(dataErr.ErrorData()); ok {
			return reason
		}
	}

	msg := err.Error()
	if i := strings.Index(msg, revertPrefix); i >= 0 {
		return msg[i:]
	}
	return msg
}

func decodeRevertData(data interface{}) (string, bool) {
	text, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(text)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}
