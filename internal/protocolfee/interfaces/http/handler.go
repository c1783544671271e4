// Package http 协议费服务的 HTTP 接口层
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/application"
	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/pkg/logger"
)

// 费率单位为百分之一基点，除以 10000 得到百分数
var feeUnitsPerPercent = decimal.NewFromInt(10000)

// ProtocolFeeHandler HTTP 处理器
type ProtocolFeeHandler struct {
	app *application.ProtocolFeeService
}

// NewProtocolFeeHandler 创建 HTTP 处理器实例
func NewProtocolFeeHandler(app *application.ProtocolFeeService) *ProtocolFeeHandler {
	return &ProtocolFeeHandler{app: app}
}

// RegisterRoutes 注册路由
func (h *ProtocolFeeHandler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/protocolfees")
	{
		api.PUT("/controller", h.SetController)
		api.PUT("/pools/fee", h.SetProtocolFee)
		api.POST("/pools/init-fee", h.FetchInitFee)
		api.GET("/pools/:id/fee", h.GetPoolFee)
		api.POST("/accrue", h.Accrue)
		api.POST("/collect", h.Collect)
		api.GET("/accrued", h.ListAccrued)
		api.GET("/accrued/:asset", h.GetAccrued)
	}
}

// PoolKeyRequest 池键请求体
type PoolKeyRequest struct {
	Currency0   string `json:"currency0" binding:"required"`
	Currency1   string `json:"currency1" binding:"required"`
	SwapFee     uint32 `json:"swap_fee"`
	TickSpacing int32  `json:"tick_spacing"`
	Hooks       string `json:"hooks"`
}

func (r PoolKeyRequest) toDomain() domain.PoolKey {
	return domain.PoolKey{
		Currency0:   domain.AssetID(r.Currency0),
		Currency1:   domain.AssetID(r.Currency1),
		SwapFee:     r.SwapFee,
		TickSpacing: r.TickSpacing,
		Hooks:       domain.Address(r.Hooks),
	}
}

// SetControllerRequest 设置控制器请求体
type SetControllerRequest struct {
	Caller     string `json:"caller" binding:"required"`
	Controller string `json:"controller"`
}

// SetController 替换费率控制器
func (h *ProtocolFeeHandler) SetController(c *gin.Context) {
	var req SetControllerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.app.SetController(c.Request.Context(), domain.Address(req.Caller), domain.Address(req.Controller))
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"controller": req.Controller})
}

// SetProtocolFeeRequest 推送池费率请求体
type SetProtocolFeeRequest struct {
	Caller  string         `json:"caller" binding:"required"`
	PoolKey PoolKeyRequest `json:"pool_key" binding:"required"`
	Fee     uint32         `json:"fee"`
}

// SetProtocolFee 控制器显式推送池费率
func (h *ProtocolFeeHandler) SetProtocolFee(c *gin.Context) {
	var req SetProtocolFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	poolID, err := h.app.SetProtocolFee(c.Request.Context(), domain.Address(req.Caller), req.PoolKey.toDomain(), req.Fee)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, feeResponse(string(poolID), req.Fee))
}

// FetchInitFeeRequest 池初始化费率请求体
type FetchInitFeeRequest struct {
	PoolKey PoolKeyRequest `json:"pool_key" binding:"required"`
}

// FetchInitFee 池创建时拉取协议费率，任何失败都回落为零费率
func (h *ProtocolFeeHandler) FetchInitFee(c *gin.Context) {
	var req FetchInitFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	key := req.PoolKey.toDomain()
	rate := h.app.FetchProtocolFeeForInit(c.Request.Context(), key)
	c.JSON(http.StatusOK, feeResponse(string(h.app.DerivePoolID(key)), rate))
}

// GetPoolFee 查询池的协议费率
func (h *ProtocolFeeHandler) GetPoolFee(c *gin.Context) {
	poolID := domain.PoolID(c.Param("id"))
	fee, err := h.app.PoolFee(c.Request.Context(), poolID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pool fee not found"})
		return
	}

	c.JSON(http.StatusOK, feeResponse(string(poolID), fee))
}

// AccrueRequest 入账请求体，由结算服务调用
type AccrueRequest struct {
	Asset  string `json:"asset" binding:"required"`
	Amount uint64 `json:"amount" binding:"required"`
}

// Accrue 结算方路由协议费收入
func (h *ProtocolFeeHandler) Accrue(c *gin.Context) {
	var req AccrueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.app.AccrueFees(c.Request.Context(), domain.AssetID(req.Asset), req.Amount); err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to accrue fees", "asset", req.Asset, "error", err)
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, balanceResponse(req.Asset, h.app.AccruedBalance(domain.AssetID(req.Asset))))
}

// CollectRequest 提取请求体，amount 为 0 表示全额提取
type CollectRequest struct {
	Caller    string `json:"caller" binding:"required"`
	Asset     string `json:"asset" binding:"required"`
	Amount    uint64 `json:"amount"`
	Recipient string `json:"recipient" binding:"required"`
}

// Collect 提取累计协议费
func (h *ProtocolFeeHandler) Collect(c *gin.Context) {
	var req CollectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	collected, err := h.app.CollectFees(
		c.Request.Context(),
		domain.Address(req.Caller),
		domain.AssetID(req.Asset),
		req.Amount,
		domain.Address(req.Recipient),
	)
	if err != nil {
		logger.WithContext(c.Request.Context()).Error("failed to collect fees", "asset", req.Asset, "error", err)
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":     req.Asset,
		"collected": decimal.NewFromUint64(collected).String(),
		"balance":   decimal.NewFromUint64(h.app.AccruedBalance(domain.AssetID(req.Asset))).String(),
	})
}

// ListAccrued 列出全部待提取余额
func (h *ProtocolFeeHandler) ListAccrued(c *gin.Context) {
	balances := h.app.AccruedBalances()
	out := make([]gin.H, 0, len(balances))
	for asset, balance := range balances {
		out = append(out, balanceResponse(string(asset), balance))
	}
	c.JSON(http.StatusOK, gin.H{"balances": out})
}

// GetAccrued 查询单个资产的待提取余额
func (h *ProtocolFeeHandler) GetAccrued(c *gin.Context) {
	asset := c.Param("asset")
	c.JSON(http.StatusOK, balanceResponse(asset, h.app.AccruedBalance(domain.AssetID(asset))))
}

// writeError 将领域错误映射为 HTTP 状态码，保证授权与校验失败可区分
func (h *ProtocolFeeHandler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrFeeTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientAccrued):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBudgetExhausted):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func feeResponse(poolID string, fee uint32) gin.H {
	decoded := domain.DecodeProtocolFee(fee)
	return gin.H{
		"pool_id":              poolID,
		"fee":                  fee,
		"zero_for_one":         decoded.ZeroForOne,
		"one_for_zero":         decoded.OneForZero,
		"zero_for_one_percent": decimal.NewFromInt(int64(decoded.ZeroForOne)).Div(feeUnitsPerPercent).String(),
		"one_for_zero_percent": decimal.NewFromInt(int64(decoded.OneForZero)).Div(feeUnitsPerPercent).String(),
	}
}

func balanceResponse(asset string, balance uint64) gin.H {
	return gin.H{
		"asset":   asset,
		"balance": decimal.NewFromUint64(balance).String(),
	}
}
