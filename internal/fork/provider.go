package fork

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"os/exec"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"honeypotScope/internal/chain"
)

// ErrSimulationInit marks any failure to stand up the fork. It is fatal to the workflow.
var ErrSimulationInit = errors.New("simulation init failed")

// DefaultSeed is hashed into the simulated account key by accountKey. It is not
// run through BIP-39/BIP-44, so wallets importing it as a mnemonic derive a
// different account.
const DefaultSeed = "derive often other athlete fashion essay tree afraid spin utility ceiling guide"

const (
	DefaultGasLimit = uint64(1_000_000_000)
	DefaultTxGas    = uint64(8_000_000)
	DefaultDialect  = "anvil"
)

// DefaultBalance is the native balance given to the simulated account (100 ETH).
var DefaultBalance = new(big.Int).Mul(big.NewInt(100), big.NewInt(1e18))

// Funding swaps native coin into an ERC20 right after the fork is ready.
type Funding struct {
	Router common.Address
	WETH   common.Address
	Token  common.Address
	Spend  *big.Int
}

// Config controls how the fork is created.
type Config struct {
	UpstreamURL string
	// ForkURL points at a running fork node. When empty and AnvilPath is set,
	// an anvil process is launched on AnvilPort.
	ForkURL   string
	AnvilPath string
	AnvilPort int
	// Dialect is the node-control namespace prefix: "anvil" or "hardhat".
	Dialect string
	// Seed is any string; the account key is keccak256(Seed).
	Seed        string
	GasLimit    uint64
	TxGas       uint64
	Balance     *big.Int
	InitRetries int
	InitBackoff time.Duration
	Funding     *Funding
}

func (c Config) withDefaults() Config {
	if c.Dialect == "" {
		c.Dialect = DefaultDialect
	}
	if c.Seed == "" {
		c.Seed = DefaultSeed
	}
	if c.GasLimit == 0 {
		c.GasLimit = DefaultGasLimit
	}
	if c.TxGas == 0 {
		c.TxGas = DefaultTxGas
	}
	if c.Balance == nil {
		c.Balance = DefaultBalance
	}
	if c.InitBackoff <= 0 {
		c.InitBackoff = 250 * time.Millisecond
	}
	return c
}

// Provider stands up disposable forks of a live chain.
type Provider struct {
	cfg    Config
	logger *zap.Logger
}

func NewProvider(cfg Config, logger *zap.Logger) *Provider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{cfg: cfg.withDefaults(), logger: logger}
}

// Start forks the upstream chain at its latest block and returns a funded session.
func (p *Provider) Start(ctx context.Context) (*Session, error) {
	session, err := p.start(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSimulationInit, err)
	}
	return session, nil
}

func (p *Provider) start(ctx context.Context) (*Session, error) {
	cfg := p.cfg
	if cfg.UpstreamURL == "" {
		return nil, fmt.Errorf("upstream rpc url is required")
	}
	if cfg.ForkURL == "" && cfg.AnvilPath == "" {
		return nil, fmt.Errorf("fork rpc url or anvil path is required")
	}

	pinned, err := p.latestUpstreamBlock(ctx)
	if err != nil {
		return nil, err
	}

	forkURL := cfg.ForkURL
	var proc *exec.Cmd
	if forkURL == "" {
		proc, forkURL, err = launchAnvil(cfg.AnvilPath, cfg.UpstreamURL, pinned, cfg.GasLimit, cfg.AnvilPort, p.logger)
		if err != nil {
			return nil, err
		}
	}

	session, err := p.open(ctx, forkURL, pinned, proc != nil)
	if err != nil {
		_ = stopProcess(proc)
		return nil, err
	}
	session.proc = proc
	return session, nil
}

func (p *Provider) latestUpstreamBlock(ctx context.Context) (uint64, error) {
	upstream, err := chain.NewClient(ctx, p.cfg.UpstreamURL)
	if err != nil {
		return 0, fmt.Errorf("connect upstream: %w", err)
	}
	defer upstream.Close()

	var pinned uint64
	err = withRetry(ctx, p.cfg.InitRetries, p.cfg.InitBackoff, p.logRetry("upstream block"), func(ctx context.Context) error {
		var err error
		pinned, err = upstream.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("get upstream block: %w", err)
	}
	return pinned, nil
}

func (p *Provider) open(ctx context.Context, forkURL string, pinned uint64, launched bool) (*Session, error) {
	cfg := p.cfg

	client, err := chain.NewClient(ctx, forkURL)
	if err != nil {
		return nil, fmt.Errorf("connect fork: %w", err)
	}

	var chainID *big.Int
	err = withRetry(ctx, cfg.InitRetries, cfg.InitBackoff, p.logRetry("fork ready"), func(ctx context.Context) error {
		var err error
		chainID, err = client.GetChainID(ctx)
		return err
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("wait for fork: %w", err)
	}

	if !launched {
		forking := map[string]interface{}{
			"forking": map[string]interface{}{
				"jsonRpcUrl":  cfg.UpstreamURL,
				"blockNumber": pinned,
			},
		}
		if err := client.RawCall(ctx, nil, cfg.Dialect+"_reset", forking); err != nil {
			client.Close()
			return nil, fmt.Errorf("reset fork: %w", err)
		}
	}

	key, sender, err := accountKey(cfg.Seed)
	if err != nil {
		client.Close()
		return nil, err
	}

	if err := client.RawCall(ctx, nil, cfg.Dialect+"_setBalance", sender, hexutil.EncodeBig(cfg.Balance)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set balance: %w", err)
	}
	if err := client.RawCall(ctx, nil, "evm_setBlockGasLimit", hexutil.EncodeUint64(cfg.GasLimit)); err != nil {
		client.Close()
		return nil, fmt.Errorf("set block gas limit: %w", err)
	}

	session := &Session{
		client:    client,
		key:       key,
		sender:    sender,
		chainID:   chainID,
		txGas:     cfg.TxGas,
		forkBlock: pinned,
		logger:    p.logger,
	}

	if cfg.Funding != nil {
		if err := session.fund(ctx, *cfg.Funding); err != nil {
			client.Close()
			return nil, fmt.Errorf("fund account: %w", err)
		}
	}

	p.logger.Info("fork ready",
		zap.String("fork_rpc", forkURL),
		zap.Uint64("fork_block", pinned),
		zap.String("chain_id", chainID.String()),
		zap.String("account", sender.Hex()),
	)
	return session, nil
}

// accountKey derives the simulated account as keccak256(seed). No mnemonic
// derivation path is applied.
func accountKey(seed string) (*ecdsa.PrivateKey, common.Address, error) {
	if seed == "" {
		return nil, common.Address{}, fmt.Errorf("derive account: empty seed")
	}
	key, err := crypto.ToECDSA(crypto.Keccak256([]byte(seed)))
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("derive account: %w", err)
	}
	return key, crypto.PubkeyToAddress(key.PublicKey), nil
}

func (p *Provider) logRetry(step string) func(int, error) {
	return func(attempt int, err error) {
		p.logger.Warn("fork init retry", zap.String("step", step), zap.Int("attempt", attempt), zap.Error(err))
	}
}
