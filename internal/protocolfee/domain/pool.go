package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Address 链上地址形式的不透明标识
type Address string

// AssetID 标识一种同质化资产，是累计协议费账本的键
type AssetID string

// PoolID 池的稳定标识，由池键派生
type PoolID string

// PoolKey 流动性池的完整键
type PoolKey struct {
	Currency0   AssetID `json:"currency0"`
	Currency1   AssetID `json:"currency1"`
	SwapFee     uint32  `json:"swap_fee"`
	TickSpacing int32   `json:"tick_spacing"`
	Hooks       Address `json:"hooks"`
}

// PoolIDDeriver 从池键派生稳定标识的纯函数接口
type PoolIDDeriver interface {
	DeriveID(key PoolKey) PoolID
}

// SHA256Deriver 基于 SHA-256 的默认派生实现
type SHA256Deriver struct{}

// DeriveID 对池键的规范化编码求哈希
func (SHA256Deriver) DeriveID(key PoolKey) PoolID {
	canonical := fmt.Sprintf("%s|%s|%d|%d|%s",
		key.Currency0, key.Currency1, key.SwapFee, key.TickSpacing, key.Hooks)
	sum := sha256.Sum256([]byte(canonical))
	return PoolID(hex.EncodeToString(sum[:]))
}
