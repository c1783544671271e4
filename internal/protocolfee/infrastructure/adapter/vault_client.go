// Package adapter 对接外部结算金库服务
package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
)

// vaultClient 通过 HTTP 调用结算金库服务完成实际的资产划转
type vaultClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewVaultClient 创建金库客户端，endpoint 为结算金库服务地址
func NewVaultClient(endpoint string) domain.SettlementVault {
	return &vaultClient{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type transferRequest struct {
	Asset     string `json:"asset"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient"`
}

// Transfer 请求金库向 recipient 划转 amount 数量的 asset
func (c *vaultClient) Transfer(ctx context.Context, asset domain.AssetID, amount uint64, recipient domain.Address) error {
	body, err := json.Marshal(transferRequest{
		Asset:     string(asset),
		Amount:    amount,
		Recipient: string(recipient),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal transfer request: %w", err)
	}

	url := c.endpoint + "/api/v1/vault/transfers"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vault transfer failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("vault transfer rejected: status %d", resp.StatusCode)
	}

	return nil
}
