package model

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeResultBuyThenSell(t *testing.T) {
	r := NewProbeResult()
	require.Equal(t, StagePending, r.Stage)

	require.NoError(t, r.BuySucceeded(big.NewInt(42)))
	require.NoError(t, r.SellSucceeded())

	assert.Equal(t, StageSellSucceeded, r.Stage)
	assert.True(t, r.Stage.Terminal())
	assert.False(t, r.Honeypot())
	assert.Equal(t, int64(42), r.Balance.Int64())
}

func TestProbeResultSellFailedIsHoneypot(t *testing.T) {
	r := NewProbeResult()
	require.NoError(t, r.BuySucceeded(big.NewInt(1)))
	require.NoError(t, r.SellFailed("TRANSFER_FAILED"))

	assert.True(t, r.Honeypot())
	assert.Equal(t, "TRANSFER_FAILED", r.Reason)
}

func TestProbeResultRejectsSellWithoutBuy(t *testing.T) {
	r := NewProbeResult()
	assert.Error(t, r.SellSucceeded())
	assert.Error(t, r.SellFailed("x"))
	assert.Equal(t, StagePending, r.Stage)

	require.NoError(t, r.BuyFailed("K"))
	assert.Error(t, r.SellSucceeded())
	assert.Error(t, r.BuySucceeded(big.NewInt(1)))
	assert.Equal(t, StageBuyFailed, r.Stage)
	assert.Equal(t, "K", r.Reason)
}

func TestProbeResultTransitionsOnce(t *testing.T) {
	r := NewProbeResult()
	require.NoError(t, r.BuySucceeded(big.NewInt(1)))
	assert.Error(t, r.BuySucceeded(big.NewInt(2)))
	require.NoError(t, r.SellSucceeded())
	assert.Error(t, r.SellFailed("late"))
	assert.Equal(t, StageSellSucceeded, r.Stage)
}

func TestProbeResultTerminalStagesRejectEveryMove(t *testing.T) {
	for _, stage := range []ProbeStage{StageBuyFailed, StageSellSucceeded, StageSellFailed} {
		r := &ProbeResult{Stage: stage, Reason: "kept"}
		require.True(t, stage.Terminal())
		err := r.BuyFailed("late")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already finished")
		assert.Equal(t, stage, r.Stage)
		assert.Equal(t, "kept", r.Reason)
	}
	assert.False(t, StagePending.Terminal())
	assert.False(t, StageBuySucceeded.Terminal())
}

func TestProbeStageJSON(t *testing.T) {
	r := NewProbeResult()
	require.NoError(t, r.BuyFailed("reverted"))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "buy_failed", decoded["stage"])
	assert.Equal(t, "reverted", decoded["reason"])
}
