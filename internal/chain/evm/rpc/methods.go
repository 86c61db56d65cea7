package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const blockTagLatest = "latest"

func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.call(ctx, "eth_blockNumber", []interface{}{})
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber: %w", err)
	}
	n, err := decodeQuantity(result)
	if err != nil {
		return 0, fmt.Errorf("parse block number: %w", err)
	}
	return n, nil
}

// Call executes a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	msg := CallMsg{To: to.Hex(), Data: hexutil.Encode(data)}
	result, err := c.call(ctx, "eth_call", []interface{}{msg, blockTagLatest})
	if err != nil {
		return nil, fmt.Errorf("eth_call(%s): %w", to.Hex(), err)
	}
	out, err := decodeData(result)
	if err != nil {
		return nil, fmt.Errorf("decode eth_call result: %w", err)
	}
	return out, nil
}

// GetCode returns the deployed bytecode; an externally owned account yields an empty slice.
func (c *Client) GetCode(ctx context.Context, addr common.Address) ([]byte, error) {
	result, err := c.call(ctx, "eth_getCode", []interface{}{addr.Hex(), blockTagLatest})
	if err != nil {
		return nil, fmt.Errorf("eth_getCode(%s): %w", addr.Hex(), err)
	}
	code, err := decodeData(result)
	if err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	return code, nil
}

func (c *Client) GetBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	result, err := c.call(ctx, "eth_getBalance", []interface{}{addr.Hex(), blockTagLatest})
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance(%s): %w", addr.Hex(), err)
	}
	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal balance: %w", err)
	}
	balance, err := hexutil.DecodeBig(raw)
	if err != nil {
		return nil, fmt.Errorf("parse balance %q: %w", raw, err)
	}
	return balance, nil
}

func (c *Client) GetTransactionCount(ctx context.Context, addr common.Address) (uint64, error) {
	result, err := c.call(ctx, "eth_getTransactionCount", []interface{}{addr.Hex(), blockTagLatest})
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount(%s): %w", addr.Hex(), err)
	}
	n, err := decodeQuantity(result)
	if err != nil {
		return 0, fmt.Errorf("parse transaction count: %w", err)
	}
	return n, nil
}

func decodeQuantity(result json.RawMessage) (uint64, error) {
	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return 0, fmt.Errorf("unmarshal quantity: %w", err)
	}
	return hexutil.DecodeUint64(raw)
}

func decodeData(result json.RawMessage) ([]byte, error) {
	var raw string
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal data: %w", err)
	}
	if raw == "" || raw == "0x" {
		return []byte{}, nil
	}
	return hexutil.Decode(raw)
}
