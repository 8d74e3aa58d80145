package fork

import (
	"context"
	"errors"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"honeypotScope/internal/chain"
)

// fakeNode is a minimal JSON-RPC fork node: it mines every transaction
// instantly and reverts calls to contracts listed in reverts.
type fakeNode struct {
	mu        sync.Mutex
	chainID   int64
	block     uint64
	resets    []map[string]interface{}
	balances  map[common.Address]*big.Int
	gasLimit  uint64
	nonces    map[common.Address]uint64
	receipts  map[common.Hash]*types.Receipt
	sent      []*types.Transaction
	reverts   map[common.Address]string
	snapshots int
	restored  []string
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		chainID:  1,
		block:    19_000_000,
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
		reverts:  make(map[common.Address]string),
	}
}

type revertError struct{ reason string }

func (e *revertError) Error() string  { return "execution reverted" }
func (e *revertError) ErrorCode() int { return 3 }
func (e *revertError) ErrorData() interface{} {
	selector := crypto.Keccak256([]byte("Error(string)"))[:4]
	payload := append([]byte{}, selector...)
	payload = append(payload, common.LeftPadBytes([]byte{0x20}, 32)...)
	payload = append(payload, common.LeftPadBytes([]byte{byte(len(e.reason))}, 32)...)
	payload = append(payload, common.RightPadBytes([]byte(e.reason), (len(e.reason)+31)/32*32)...)
	return hexutil.Encode(payload)
}

type ethAPI struct{ n *fakeNode }

func (a *ethAPI) ChainId() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(a.n.chainID))
}

func (a *ethAPI) BlockNumber() hexutil.Uint64 {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	return hexutil.Uint64(a.n.block)
}

func (a *ethAPI) GetBlockByNumber(_ string, _ bool) *types.Header {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	return &types.Header{
		Number:     new(big.Int).SetUint64(a.n.block),
		Time:       1_700_000_000,
		Difficulty: big.NewInt(0),
		GasLimit:   a.n.gasLimit,
	}
}

func (a *ethAPI) GetTransactionCount(addr common.Address, _ string) hexutil.Uint64 {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	return hexutil.Uint64(a.n.nonces[addr])
}

func (a *ethAPI) GasPrice() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(1_000_000_000))
}

func (a *ethAPI) GetCode(_ common.Address, _ string) hexutil.Bytes {
	return hexutil.Bytes{0x60}
}

func (a *ethAPI) SendRawTransaction(input hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(input); err != nil {
		return common.Hash{}, err
	}
	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(a.n.chainID)), tx)
	if err != nil {
		return common.Hash{}, err
	}

	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	if tx.Nonce() != a.n.nonces[from] {
		return common.Hash{}, errors.New("nonce too low")
	}
	a.n.nonces[from]++
	a.n.block++
	a.n.sent = append(a.n.sent, tx)

	status := types.ReceiptStatusSuccessful
	if _, ok := a.n.reverts[*tx.To()]; ok {
		status = types.ReceiptStatusFailed
	}
	a.n.receipts[tx.Hash()] = &types.Receipt{
		Status:            status,
		CumulativeGasUsed: 50_000,
		GasUsed:           50_000,
		TxHash:            tx.Hash(),
		BlockNumber:       new(big.Int).SetUint64(a.n.block),
		Logs:              []*types.Log{},
	}
	return tx.Hash(), nil
}

func (a *ethAPI) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	return a.n.receipts[hash]
}

type callArgs struct {
	To    *common.Address `json:"to"`
	Input hexutil.Bytes   `json:"input"`
	Data  hexutil.Bytes   `json:"data"`
}

func (a *ethAPI) Call(args callArgs, _ string) (hexutil.Bytes, error) {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	if args.To != nil {
		if reason, ok := a.n.reverts[*args.To]; ok {
			return nil, &revertError{reason: reason}
		}
	}
	return hexutil.Bytes{}, nil
}

type anvilAPI struct{ n *fakeNode }

func (a *anvilAPI) Reset(params map[string]interface{}) error {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.resets = append(a.n.resets, params)
	return nil
}

func (a *anvilAPI) SetBalance(addr common.Address, balance hexutil.Big) error {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.balances[addr] = balance.ToInt()
	return nil
}

type evmAPI struct{ n *fakeNode }

func (a *evmAPI) SetBlockGasLimit(limit hexutil.Uint64) bool {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.gasLimit = uint64(limit)
	return true
}

func (a *evmAPI) Snapshot() string {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.snapshots++
	return hexutil.EncodeUint64(uint64(a.n.snapshots))
}

func (a *evmAPI) Revert(id string) bool {
	a.n.mu.Lock()
	defer a.n.mu.Unlock()
	a.n.restored = append(a.n.restored, id)
	return true
}

func serveNode(t *testing.T, n *fakeNode) string {
	t.Helper()
	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", &ethAPI{n: n}))
	require.NoError(t, server.RegisterName("anvil", &anvilAPI{n: n}))
	require.NoError(t, server.RegisterName("evm", &evmAPI{n: n}))

	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	return httpServer.URL
}

func startSession(t *testing.T, n *fakeNode) *Session {
	t.Helper()
	url := serveNode(t, n)
	session, err := NewProvider(Config{UpstreamURL: url, ForkURL: url}, nil).Start(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestStartInitializesFork(t *testing.T) {
	n := newFakeNode()
	session := startSession(t, n)

	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(DefaultSeed)))
	require.NoError(t, err)
	want := crypto.PubkeyToAddress(key.PublicKey)

	assert.Equal(t, want, session.Sender())
	assert.Equal(t, uint64(19_000_000), session.ForkBlock())

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.resets, 1)
	forking, ok := n.resets[0]["forking"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(19_000_000), forking["blockNumber"])
	assert.NotEmpty(t, forking["jsonRpcUrl"])
	assert.Equal(t, 0, n.balances[want].Cmp(DefaultBalance), "balance %s", n.balances[want])
	assert.Equal(t, DefaultGasLimit, n.gasLimit)
}

func TestStartFailsWithoutUpstream(t *testing.T) {
	_, err := NewProvider(Config{ForkURL: "http://127.0.0.1:1"}, nil).Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSimulationInit))
}

func TestStartFailsOnUnreachableUpstream(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider := NewProvider(Config{
		UpstreamURL: "http://127.0.0.1:1",
		ForkURL:     "http://127.0.0.1:1",
		InitRetries: 1,
		InitBackoff: time.Millisecond,
	}, nil)
	_, err := provider.Start(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSimulationInit))
}

func TestSendSuccess(t *testing.T) {
	n := newFakeNode()
	session := startSession(t, n)

	to := common.HexToAddress("0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	receipt, err := session.Send(context.Background(), to, big.NewInt(5), []byte{0x01, 0x02})
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	receipt, err = session.Send(context.Background(), to, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)

	n.mu.Lock()
	defer n.mu.Unlock()
	require.Len(t, n.sent, 2)
	assert.Equal(t, uint64(0), n.sent[0].Nonce())
	assert.Equal(t, uint64(1), n.sent[1].Nonce())
	assert.Equal(t, int64(5), n.sent[0].Value().Int64())
	assert.Equal(t, DefaultTxGas, n.sent[0].Gas())
}

func TestSendRevertCarriesReason(t *testing.T) {
	n := newFakeNode()
	honeypot := common.HexToAddress("0x1111111111111111111111111111111111111111")
	n.reverts[honeypot] = "TransferHelper: TRANSFER_FROM_FAILED"
	session := startSession(t, n)

	receipt, err := session.Send(context.Background(), honeypot, nil, []byte{0xaa})
	require.Error(t, err)
	require.NotNil(t, receipt)
	assert.Equal(t, types.ReceiptStatusFailed, receipt.Status)

	var revert *chain.RevertError
	require.True(t, errors.As(err, &revert))
	assert.Equal(t, "TransferHelper: TRANSFER_FROM_FAILED", revert.Reason)
	assert.Equal(t, receipt.TxHash, revert.TxHash)
	assert.Equal(t, "TransferHelper: TRANSFER_FROM_FAILED", chain.RevertReason(err))
}

func TestIsolateRevertsSnapshot(t *testing.T) {
	n := newFakeNode()
	session := startSession(t, n)

	ran := false
	err := session.Isolate(context.Background(), func(context.Context) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	probeErr := errors.New("probe failed")
	err = session.Isolate(context.Background(), func(context.Context) error { return probeErr })
	assert.ErrorIs(t, err, probeErr)

	n.mu.Lock()
	defer n.mu.Unlock()
	assert.Equal(t, 2, n.snapshots)
	assert.Equal(t, []string{"0x1", "0x2"}, n.restored)
}

func TestAnvilArgs(t *testing.T) {
	got := anvilArgs("https://eth.example", 123, 1_000_000_000, 8545)
	assert.Equal(t, []string{
		"--fork-url", "https://eth.example",
		"--fork-block-number", "123",
		"--gas-limit", "1000000000",
		"--port", "8545",
		"--silent",
	}, got)
}

func TestLaunchAnvilRequiresPath(t *testing.T) {
	_, _, err := launchAnvil("", "https://eth.example", 1, 1, 8545, nil)
	assert.Error(t, err)
}

func TestWithRetry(t *testing.T) {
	attempts := 0
	retried := 0
	err := withRetry(context.Background(), 3, time.Millisecond, func(int, error) { retried++ }, func(context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("not ready")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, 2, retried)

	attempts = 0
	err = withRetry(context.Background(), 1, time.Millisecond, nil, func(context.Context) error {
		attempts++
		return errors.New("down")
	})
	assert.EqualError(t, err, "down")
	assert.Equal(t, 2, attempts)
}

func TestWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withRetry(ctx, 5, time.Hour, nil, func(context.Context) error { return errors.New("down") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAccountKeyHashesSeedWithoutMnemonicDerivation(t *testing.T) {
	key, sender, err := accountKey(DefaultSeed)
	require.NoError(t, err)

	want, err := crypto.ToECDSA(crypto.Keccak256([]byte(DefaultSeed)))
	require.NoError(t, err)
	assert.Equal(t, crypto.FromECDSA(want), crypto.FromECDSA(key))
	assert.Equal(t, crypto.PubkeyToAddress(want.PublicKey), sender)

	_, again, err := accountKey(DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, sender, again)

	_, other, err := accountKey("another seed")
	require.NoError(t, err)
	assert.NotEqual(t, sender, other)

	_, _, err = accountKey("")
	assert.Error(t, err)
}
