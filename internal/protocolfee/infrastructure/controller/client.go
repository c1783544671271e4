// Package controller 实现对外部费率控制器的受限查询。
// 控制器是不可信的基础设施：单次调用的资源消耗与响应大小都有硬上限，
// 除预算不足外的一切失败统一折算为"无结果"，绝不外传、绝不重试。
package controller

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/pkg/logger"
)

const (
	// feePayloadSize 控制器响应的固定长度：一个大端 256 位无符号整数
	feePayloadSize = 32
	// budgetDivisor 子预算为总预算的 1%
	budgetDivisor = 100
)

// Client 受预算约束的费率控制器客户端
type Client struct {
	httpClient *http.Client
	budget     time.Duration
}

// NewClient 创建客户端，budget 为单次费率拉取操作允许的总资源预算
func NewClient(budget time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{},
		budget:     budget,
	}
}

// FetchFee 向控制器发起一次只读查询。
// 子预算固定为总预算的 1%；若调用方剩余预算低于子预算，
// 返回 ErrBudgetExhausted 硬失败——继续调用可能导致调用资源不可预期地不足。
// 其余失败（传输错误、非 200、超时、响应长度不是 32 字节、数值超出 24 位费率域）
// 一律返回 ok=false 且无错误。
func (c *Client) FetchFee(ctx context.Context, controller domain.Address, key domain.PoolKey) (uint32, bool, error) {
	subBudget := c.budget / budgetDivisor

	remaining := c.budget
	if deadline, ok := ctx.Deadline(); ok {
		remaining = time.Until(deadline)
	}
	if remaining < subBudget {
		return 0, false, domain.ErrBudgetExhausted
	}

	callCtx, cancel := context.WithTimeout(ctx, subBudget)
	defer cancel()

	endpoint, err := url.Parse(string(controller))
	if err != nil {
		logger.Warn(ctx, "malformed fee controller address", "controller", controller)
		return 0, false, nil
	}
	endpoint = endpoint.JoinPath("fee")

	query := endpoint.Query()
	query.Set("currency0", string(key.Currency0))
	query.Set("currency1", string(key.Currency1))
	query.Set("swap_fee", strconv.FormatUint(uint64(key.SwapFee), 10))
	query.Set("tick_spacing", strconv.FormatInt(int64(key.TickSpacing), 10))
	query.Set("hooks", string(key.Hooks))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(callCtx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, false, nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Debug(ctx, "fee controller call failed", "controller", controller, "error", err)
		return 0, false, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, false, nil
	}

	// 最多读 33 字节即可判定响应长度是否恰为 32 字节
	payload, err := io.ReadAll(io.LimitReader(resp.Body, feePayloadSize+1))
	if err != nil || len(payload) != feePayloadSize {
		return 0, false, nil
	}

	// 数值必须落在 24 位费率域内：高 29 字节必须全为零
	for _, b := range payload[:feePayloadSize-3] {
		if b != 0 {
			return 0, false, nil
		}
	}

	rate := uint32(payload[29])<<16 | uint32(payload[30])<<8 | uint32(payload[31])
	return rate, true, nil
}
