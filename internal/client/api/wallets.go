package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Wallet is a backend-held wallet. The client never sees key material after connect.
type Wallet struct {
	Address    string          `json:"address"`
	Name       string          `json:"name"`
	WalletType string          `json:"wallet_type"`
	ETHBalance decimal.Decimal `json:"eth_balance"`
	USDValue   decimal.Decimal `json:"usd_value"`
}

// ConnectWalletInput is submitted once; the private key goes to the backend only.
type ConnectWalletInput struct {
	PrivateKey string `json:"private_key"`
	Name       string `json:"name"`
	WalletType string `json:"wallet_type"`
}

type SendInput struct {
	ToAddress string          `json:"to_address"`
	Amount    decimal.Decimal `json:"amount"`
}

type SendResult struct {
	TxHash string `json:"tx_hash"`
	Status string `json:"status"`
}

func (c *Client) Wallets(ctx context.Context) ([]Wallet, error) {
	body, err := c.raw(ctx, http.MethodGet, "/wallets/", nil)
	if err != nil {
		return nil, err
	}
	return decodeWallets(payload(body))
}

// decodeWallets accepts a bare list or an object holding "wallets".
func decodeWallets(data []byte) ([]Wallet, error) {
	var list []Wallet
	if err := json.Unmarshal(data, &list); err == nil {
		return list, nil
	}
	var wrapped struct {
		Wallets []Wallet `json:"wallets"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("decode wallets: %w", err)
	}
	return wrapped.Wallets, nil
}

func (c *Client) ConnectWallet(ctx context.Context, in ConnectWalletInput) (*Wallet, error) {
	var w Wallet
	if err := c.post(ctx, "/wallets/connect/", in, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (c *Client) SendETH(ctx context.Context, in SendInput) (*SendResult, error) {
	var out SendResult
	if err := c.post(ctx, "/eth/send/", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
