package domain

import "math"

// FeeLedger 累计协议费账本，资产 → 待提取余额（原生最小单位）。
// 账本独占该映射，任何其他组件不得直接修改。
// 执行模型为单线程、每次调用原子完成，因此不持锁；
// 可重入安全依赖调用方先落账再发起外部转账的顺序约束。
type FeeLedger struct {
	balances map[AssetID]uint64
}

// NewFeeLedger 创建账本，initial 可为 nil（从持久层恢复时传入已有余额）
func NewFeeLedger(initial map[AssetID]uint64) *FeeLedger {
	balances := make(map[AssetID]uint64, len(initial))
	for asset, amount := range initial {
		balances[asset] = amount
	}
	return &FeeLedger{balances: balances}
}

// Accrue 入账。加法溢出返回 ErrArithmeticOverflow，绝不静默饱和。
func (l *FeeLedger) Accrue(asset AssetID, amount uint64) (uint64, error) {
	current := l.balances[asset]
	if amount > math.MaxUint64-current {
		return current, ErrArithmeticOverflow
	}
	l.balances[asset] = current + amount
	return l.balances[asset], nil
}

// Collect 出账。amount 为 0 时提取全部余额；
// 超出余额返回 ErrInsufficientAccrued 且余额不变。
// 返回实际提取金额与剩余余额。
func (l *FeeLedger) Collect(asset AssetID, amount uint64) (collected uint64, remaining uint64, err error) {
	current := l.balances[asset]

	collected = amount
	if collected == 0 {
		collected = current
	}
	if collected > current {
		return 0, current, ErrInsufficientAccrued
	}

	remaining = current - collected
	l.balances[asset] = remaining
	return collected, remaining, nil
}

// Deduct 精确扣减指定金额，不带 0 即全额的提取语义，供失败入账的回滚使用。
// 超出余额返回 ErrInsufficientAccrued 且余额不变。
func (l *FeeLedger) Deduct(asset AssetID, amount uint64) error {
	current := l.balances[asset]
	if amount > current {
		return ErrInsufficientAccrued
	}
	l.balances[asset] = current - amount
	return nil
}

// Restore 将失败的外部转账对应的出账金额还回账本
func (l *FeeLedger) Restore(asset AssetID, amount uint64) (uint64, error) {
	return l.Accrue(asset, amount)
}

// Balance 查询单个资产的待提取余额
func (l *FeeLedger) Balance(asset AssetID) uint64 {
	return l.balances[asset]
}

// Balances 返回全部余额的副本
func (l *FeeLedger) Balances() map[AssetID]uint64 {
	out := make(map[AssetID]uint64, len(l.balances))
	for asset, amount := range l.balances {
		out[asset] = amount
	}
	return out
}
