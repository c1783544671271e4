package domain

import (
	"context"
	"time"
)

// SettlementVault 结算金库接口，实际托管与划转资产的外部协作方
type SettlementVault interface {
	Transfer(ctx context.Context, asset AssetID, amount uint64, recipient Address) error
}

// FeeControllerClient 费率控制器查询接口。
// 实现方必须限定单次调用可消耗的资源与可读取的响应大小，
// 并把除预算不足之外的所有失败统一折算为 ok=false，绝不向外传播。
// 预算不足时返回 ErrBudgetExhausted，这是硬失败。
type FeeControllerClient interface {
	FetchFee(ctx context.Context, controller Address, key PoolKey) (rate uint32, ok bool, err error)
}

// FeeUpdatedEvent 池费率更新通知
type FeeUpdatedEvent struct {
	PoolID     PoolID    `json:"pool_id"`
	Fee        uint32    `json:"fee"`
	ZeroForOne uint32    `json:"zero_for_one"`
	OneForZero uint32    `json:"one_for_zero"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ControllerUpdatedEvent 费率控制器变更通知
type ControllerUpdatedEvent struct {
	Controller Address   `json:"controller"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// EventPublisher 领域事件发布接口，尽力送达
type EventPublisher interface {
	PublishFeeUpdated(ctx context.Context, event FeeUpdatedEvent) error
	PublishControllerUpdated(ctx context.Context, event ControllerUpdatedEvent) error
}

// CollectionStatus 提取明细的生命周期状态
type CollectionStatus string

const (
	// CollectionPending 余额已落账，等待金库划转结果
	CollectionPending CollectionStatus = "pending"
	// CollectionCompleted 金库划转成功
	CollectionCompleted CollectionStatus = "completed"
	// CollectionFailed 金库划转失败，余额已还回账本
	CollectionFailed CollectionStatus = "failed"
)

// CollectionRecord 一次协议费提取的审计明细
type CollectionRecord struct {
	Asset     AssetID
	Amount    uint64
	Recipient Address
	Caller    Address
	CreatedAt time.Time
}

// FeeRepository 协议费持久化接口
type FeeRepository interface {
	// SaveAccrued 写入资产的最新待提取余额
	SaveAccrued(ctx context.Context, asset AssetID, balance uint64) error
	// SaveCollection 在同一事务内写入余额并记录 pending 状态的提取明细，返回明细标识
	SaveCollection(ctx context.Context, asset AssetID, balance uint64, record CollectionRecord) (uint64, error)
	// UpdateCollectionStatus 更新提取明细的生命周期状态
	UpdateCollectionStatus(ctx context.Context, id uint64, status CollectionStatus) error
	// LoadAccrued 加载全部待提取余额
	LoadAccrued(ctx context.Context) (map[AssetID]uint64, error)
	// SavePoolFee 写入池的协议费率
	SavePoolFee(ctx context.Context, id PoolID, fee uint32) error
	// GetPoolFee 读取池的协议费率
	GetPoolFee(ctx context.Context, id PoolID) (uint32, error)
	// SaveController 写入当前控制器身份
	SaveController(ctx context.Context, controller Address) error
	// LoadController 读取当前控制器身份，未设置时返回空地址
	LoadController(ctx context.Context) (Address, error)
}
