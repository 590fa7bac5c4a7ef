package ledger

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

// registryABI is the fragment of the certificate registry contract this
// client speaks: storeHash writes an anchor, verifyHash checks one.
const registryABI = `[
	{"name":"storeHash","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"certId","type":"string"},{"name":"hash","type":"string"},{"name":"issuer","type":"string"}],
	 "outputs":[]},
	{"name":"verifyHash","type":"function","stateMutability":"view",
	 "inputs":[{"name":"certId","type":"string"},{"name":"hash","type":"string"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

// EthereumClient anchors and verifies digests directly against the registry
// contract over JSON-RPC, without a bridge service in between.
type EthereumClient struct {
	rpcClient *rpc.Client
	eth       *ethclient.Client
	contract  common.Address
	parsedABI abi.ABI
	key       *ecdsa.PrivateKey
	from      common.Address
	chainID   *big.Int

	verifyTimeout time.Duration
	anchorTimeout time.Duration
	logger        *slog.Logger
}

// NewEthereumClient dials the RPC endpoint and resolves the chain ID once at
// startup. The private key is only required when anchoring; a verify-only
// deployment may omit it.
func NewEthereumClient(ctx context.Context, rpcURL, contractAddress, privateKeyHex string, verifyTimeout, anchorTimeout time.Duration, logger *slog.Logger) (*EthereumClient, error) {
	rpcClient, err := rpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial ledger rpc: %w", err)
	}
	eth := ethclient.NewClient(rpcClient)

	parsed, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("parse registry abi: %w", err)
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		rpcClient.Close()
		return nil, fmt.Errorf("resolve chain id: %w", err)
	}

	c := &EthereumClient{
		rpcClient:     rpcClient,
		eth:           eth,
		contract:      common.HexToAddress(contractAddress),
		parsedABI:     parsed,
		chainID:       chainID,
		verifyTimeout: verifyTimeout,
		anchorTimeout: anchorTimeout,
		logger:        logger,
	}
	if c.verifyTimeout <= 0 {
		c.verifyTimeout = 10 * time.Second
	}
	if c.anchorTimeout <= 0 {
		c.anchorTimeout = 10 * time.Second
	}

	if privateKeyHex != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
		if err != nil {
			rpcClient.Close()
			return nil, fmt.Errorf("parse ledger private key: %w", err)
		}
		c.key = key
		c.from = crypto.PubkeyToAddress(key.PublicKey)
	}
	return c, nil
}

// Close closes the underlying RPC client.
func (c *EthereumClient) Close() {
	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}

func (c *EthereumClient) Anchor(ctx context.Context, req AnchorRequest) (AnchorResult, error) {
	if c.key == nil {
		return AnchorResult{}, fmt.Errorf("anchor %s: no signing key configured", req.RollNumber)
	}

	ctx, cancel := context.WithTimeout(ctx, c.anchorTimeout)
	defer cancel()

	data, err := c.parsedABI.Pack("storeHash", req.RollNumber, req.Hash, req.Issuer)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("pack storeHash: %w", err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("pending nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("suggest gas price: %w", err)
	}
	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.contract,
		Data: data,
	})
	if err != nil {
		return AnchorResult{}, fmt.Errorf("estimate gas: %w", err)
	}

	tx := types.NewTransaction(nonce, c.contract, big.NewInt(0), gasLimit, gasPrice, data)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.key)
	if err != nil {
		return AnchorResult{}, fmt.Errorf("sign storeHash tx: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return AnchorResult{}, fmt.Errorf("send storeHash tx: %w", err)
	}
	return AnchorResult{TxRef: signed.Hash().Hex()}, nil
}

func (c *EthereumClient) Verify(ctx context.Context, rollNumber, hash string) VerifyOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.verifyTimeout)
	defer cancel()

	data, err := c.parsedABI.Pack("verifyHash", rollNumber, hash)
	if err != nil {
		c.logger.ErrorContext(ctx, "pack verifyHash failed", "error", err)
		return OutcomeUnknown
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: data}, nil)
	if err != nil {
		c.logger.WarnContext(ctx, "ledger verify unavailable", "roll_number", rollNumber, "error", err)
		return OutcomeUnknown
	}

	results, err := c.parsedABI.Unpack("verifyHash", out)
	if err != nil || len(results) != 1 {
		c.logger.ErrorContext(ctx, "unpack verifyHash failed", "error", err)
		return OutcomeUnknown
	}
	verified, ok := results[0].(bool)
	if !ok {
		return OutcomeUnknown
	}
	if verified {
		return OutcomeVerified
	}
	return OutcomeMismatch
}
