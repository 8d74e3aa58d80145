package chain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
)

type dataError struct {
	msg  string
	data interface{}
}

func (e dataError) Error() string          { return e.msg }
func (e dataError) ErrorData() interface{} { return e.data }

// errorPayload builds Error(string) revert data for reason.
func errorPayload(reason string) string {
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	offset := common.LeftPadBytes([]byte{0x20}, 32)
	length := common.LeftPadBytes([]byte{byte(len(reason))}, 32)
	body := common.RightPadBytes([]byte(reason), (len(reason)+31)/32*32)

	payload := append([]byte{}, selector...)
	payload = append(payload, offset...)
	payload = append(payload, length...)
	payload = append(payload, body...)
	return hexutil.Encode(payload)
}

func TestRevertReasonDecodesData(t *testing.T) {
	err := fmt.Errorf("call swap: %w", dataError{
		msg:  "execution reverted",
		data: errorPayload("TransferHelper: TRANSFER_FROM_FAILED"),
	})
	assert.Equal(t, "TransferHelper: TRANSFER_FROM_FAILED", RevertReason(err))
}

func TestRevertReasonFromMessage(t *testing.T) {
	err := errors.New("rpc error: execution reverted: UniswapV2: K")
	assert.Equal(t, "execution reverted: UniswapV2: K", RevertReason(err))
}

func TestRevertReasonFromRevertError(t *testing.T) {
	err := fmt.Errorf("send: %w", &RevertError{Reason: "Pancake: TRANSFER_FAILED"})
	assert.Equal(t, "Pancake: TRANSFER_FAILED", RevertReason(err))

	assert.Equal(t, "execution reverted", RevertReason(&RevertError{}))
	assert.Equal(t, "", RevertReason(nil))
}

func TestRevertReasonPlainError(t *testing.T) {
	assert.Equal(t, "connection refused", RevertReason(errors.New("connection refused")))
}
