package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/pkg/metrics"
)

// ProtocolFeeService 协议费协调器。
// 校验调用身份，驱动账本与控制器注册表，并在状态落账之后才发起
// 任何可能重入的外部调用（金库划转、事件通知）。
type ProtocolFeeService struct {
	owner    domain.Address
	ledger   *domain.FeeLedger
	registry *domain.ControllerRegistry

	repo      domain.FeeRepository
	fetcher   domain.FeeControllerClient
	vault     domain.SettlementVault
	publisher domain.EventPublisher
	deriver   domain.PoolIDDeriver

	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewProtocolFeeService 创建协议费协调器
func NewProtocolFeeService(
	owner domain.Address,
	repo domain.FeeRepository,
	fetcher domain.FeeControllerClient,
	vault domain.SettlementVault,
	publisher domain.EventPublisher,
	deriver domain.PoolIDDeriver,
	m *metrics.Metrics,
	logger *slog.Logger,
) *ProtocolFeeService {
	return &ProtocolFeeService{
		owner:     owner,
		ledger:    domain.NewFeeLedger(nil),
		registry:  domain.NewControllerRegistry(""),
		repo:      repo,
		fetcher:   fetcher,
		vault:     vault,
		publisher: publisher,
		deriver:   deriver,
		metrics:   m,
		logger:    logger.With("service", "protocolfee_application"),
	}
}

// Load 从持久层恢复账本余额与控制器身份，服务启动时调用一次
func (s *ProtocolFeeService) Load(ctx context.Context) error {
	balances, err := s.repo.LoadAccrued(ctx)
	if err != nil {
		return fmt.Errorf("failed to load accrued balances: %w", err)
	}
	s.ledger = domain.NewFeeLedger(balances)
	for asset, balance := range balances {
		s.metrics.AccruedBalance.WithLabelValues(string(asset)).Set(float64(balance))
	}

	controller, err := s.repo.LoadController(ctx)
	if err != nil {
		return fmt.Errorf("failed to load controller: %w", err)
	}
	s.registry.Set(controller)

	s.logger.InfoContext(ctx, "protocol fee state loaded",
		"assets", len(balances), "controller", string(controller))
	return nil
}

// SetController 替换费率控制器身份，仅所有者可调用；传空地址即为清除
func (s *ProtocolFeeService) SetController(ctx context.Context, caller, controller domain.Address) error {
	if caller != s.owner {
		return domain.ErrUnauthorized
	}

	if err := s.repo.SaveController(ctx, controller); err != nil {
		return fmt.Errorf("failed to persist controller: %w", err)
	}
	s.registry.Set(controller)

	// 通知尽力送达，失败不回滚已生效的变更
	event := domain.ControllerUpdatedEvent{Controller: controller, UpdatedAt: time.Now()}
	if err := s.publisher.PublishControllerUpdated(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish controller update", "error", err)
	}

	s.logger.InfoContext(ctx, "fee controller updated", "controller", string(controller))
	return nil
}

// SetProtocolFee 由当前控制器显式推送某个池的协议费率。
// 这是特权操作：任何失败都向调用方暴露，不做静默回落。
func (s *ProtocolFeeService) SetProtocolFee(ctx context.Context, caller domain.Address, key domain.PoolKey, rate uint32) (domain.PoolID, error) {
	if !s.registry.Is(caller) {
		return "", domain.ErrUnauthorized
	}
	if !domain.ValidFeeValue(rate) {
		return "", domain.ErrFeeTooLarge
	}

	poolID := s.deriver.DeriveID(key)
	if err := s.repo.SavePoolFee(ctx, poolID, rate); err != nil {
		return "", fmt.Errorf("failed to persist pool fee: %w", err)
	}

	fee := domain.DecodeProtocolFee(rate)
	event := domain.FeeUpdatedEvent{
		PoolID:     poolID,
		Fee:        rate,
		ZeroForOne: fee.ZeroForOne,
		OneForZero: fee.OneForZero,
		UpdatedAt:  time.Now(),
	}
	if err := s.publisher.PublishFeeUpdated(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish fee update", "pool_id", poolID, "error", err)
	}

	s.logger.InfoContext(ctx, "protocol fee updated", "pool_id", poolID, "fee", rate)
	return poolID, nil
}

// FetchProtocolFeeForInit 在池创建时向控制器拉取协议费率。
// 任何失败——控制器未设置、调用失败、响应非法、预算不足——都回落为零费率，
// 此路径绝不失败：不可靠或恶意的控制器不能阻断池的创建。
// 回落是静默的运行特征，通过日志与指标对外可见。
func (s *ProtocolFeeService) FetchProtocolFeeForInit(ctx context.Context, key domain.PoolKey) uint32 {
	controller, ok := s.registry.Current()
	if !ok {
		return 0
	}

	rate, ok, err := s.fetcher.FetchFee(ctx, controller, key)
	if err != nil {
		s.metrics.ControllerFetchTotal.WithLabelValues("budget_exhausted").Inc()
		s.metrics.ZeroFeeFallbackTotal.Inc()
		s.logger.WarnContext(ctx, "fee fetch budget exhausted, defaulting to zero fee", "controller", string(controller))
		return 0
	}
	if !ok {
		s.metrics.ControllerFetchTotal.WithLabelValues("failed").Inc()
		s.metrics.ZeroFeeFallbackTotal.Inc()
		s.logger.WarnContext(ctx, "fee controller call failed, defaulting to zero fee", "controller", string(controller))
		return 0
	}
	if !domain.ValidFeeValue(rate) {
		s.metrics.ControllerFetchTotal.WithLabelValues("invalid").Inc()
		s.metrics.ZeroFeeFallbackTotal.Inc()
		s.logger.WarnContext(ctx, "fee controller returned invalid rate, defaulting to zero fee",
			"controller", string(controller), "rate", rate)
		return 0
	}
	s.metrics.ControllerFetchTotal.WithLabelValues("ok").Inc()

	poolID := s.deriver.DeriveID(key)
	if err := s.repo.SavePoolFee(ctx, poolID, rate); err != nil {
		// 初始化路径不允许失败，费率仍然生效，留待控制器后续显式推送修正
		s.logger.ErrorContext(ctx, "failed to persist initial pool fee", "pool_id", poolID, "error", err)
	}

	return rate
}

// AccrueFees 结算方路由协议费收入时调用，入账指定资产
func (s *ProtocolFeeService) AccrueFees(ctx context.Context, asset domain.AssetID, amount uint64) error {
	balance, err := s.ledger.Accrue(asset, amount)
	if err != nil {
		return err
	}

	if err := s.repo.SaveAccrued(ctx, asset, balance); err != nil {
		// 持久化失败时撤销内存入账，保证操作整体原子
		_ = s.ledger.Deduct(asset, amount)
		return fmt.Errorf("failed to persist accrued balance: %w", err)
	}

	s.metrics.FeesAccruedTotal.WithLabelValues(string(asset)).Add(float64(amount))
	s.metrics.AccruedBalance.WithLabelValues(string(asset)).Set(float64(balance))
	s.logger.InfoContext(ctx, "protocol fees accrued",
		"asset", string(asset), "amount", amount, "balance", balance)
	return nil
}

// CollectFees 提取累计协议费到 recipient。
// 仅所有者或当前控制器可调用；amount 为 0 表示全额提取。
// 账本扣减在请求金库划转之前完成并持久化，重入的提取请求只能看到扣减后的余额。
func (s *ProtocolFeeService) CollectFees(ctx context.Context, caller domain.Address, asset domain.AssetID, amount uint64, recipient domain.Address) (uint64, error) {
	if caller != s.owner && !s.registry.Is(caller) {
		return 0, domain.ErrUnauthorized
	}

	collected, remaining, err := s.ledger.Collect(asset, amount)
	if err != nil {
		return 0, err
	}

	record := domain.CollectionRecord{
		Asset:     asset,
		Amount:    collected,
		Recipient: recipient,
		Caller:    caller,
		CreatedAt: time.Now(),
	}
	collectionID, err := s.repo.SaveCollection(ctx, asset, remaining, record)
	if err != nil {
		_, _ = s.ledger.Restore(asset, collected)
		return 0, fmt.Errorf("failed to persist collection: %w", err)
	}

	if err := s.vault.Transfer(ctx, asset, collected, recipient); err != nil {
		s.rollbackCollection(ctx, asset, collected, collectionID)
		return 0, fmt.Errorf("vault transfer failed: %w", err)
	}

	if err := s.repo.UpdateCollectionStatus(ctx, collectionID, domain.CollectionCompleted); err != nil {
		s.logger.WarnContext(ctx, "failed to mark collection completed",
			"collection_id", collectionID, "error", err)
	}

	s.metrics.FeesCollectedTotal.WithLabelValues(string(asset)).Add(float64(collected))
	s.metrics.AccruedBalance.WithLabelValues(string(asset)).Set(float64(remaining))
	s.logger.InfoContext(ctx, "protocol fees collected",
		"asset", string(asset), "amount", collected, "recipient", string(recipient), "balance", remaining)
	return collected, nil
}

// rollbackCollection 撤销一次已落账但金库划转失败的提取：
// 余额还回账本并重新持久化，审计明细标记为失败。
func (s *ProtocolFeeService) rollbackCollection(ctx context.Context, asset domain.AssetID, collected uint64, collectionID uint64) {
	restored, restoreErr := s.ledger.Restore(asset, collected)
	if restoreErr != nil {
		// 还账失败（划转期间的重入入账可能已把余额推到上限），金额无法自动找回
		s.logger.ErrorContext(ctx, "failed to restore collected amount after transfer failure",
			"asset", string(asset), "unrestored_amount", collected, "error", restoreErr)
	} else if saveErr := s.repo.SaveAccrued(ctx, asset, restored); saveErr != nil {
		s.logger.ErrorContext(ctx, "failed to persist restored balance after transfer failure",
			"asset", string(asset), "error", saveErr)
	}

	if err := s.repo.UpdateCollectionStatus(ctx, collectionID, domain.CollectionFailed); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark collection failed",
			"collection_id", collectionID, "error", err)
	}
}

// AccruedBalance 查询单个资产的待提取余额
func (s *ProtocolFeeService) AccruedBalance(asset domain.AssetID) uint64 {
	return s.ledger.Balance(asset)
}

// AccruedBalances 查询全部待提取余额
func (s *ProtocolFeeService) AccruedBalances() map[domain.AssetID]uint64 {
	return s.ledger.Balances()
}

// Controller 返回当前费率控制器身份
func (s *ProtocolFeeService) Controller() (domain.Address, bool) {
	return s.registry.Current()
}

// PoolFee 查询某个池已存储的协议费率
func (s *ProtocolFeeService) PoolFee(ctx context.Context, id domain.PoolID) (uint32, error) {
	return s.repo.GetPoolFee(ctx, id)
}

// DerivePoolID 从池键派生稳定标识
func (s *ProtocolFeeService) DerivePoolID(key domain.PoolKey) domain.PoolID {
	return s.deriver.DeriveID(key)
}
