package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/pkg/db"
)

// AccruedFeeModel 资产累计协议费余额 GORM 模型
type AccruedFeeModel struct {
	gorm.Model
	Asset   string `gorm:"column:asset;uniqueIndex;type:varchar(128);not null"`
	Balance uint64 `gorm:"column:balance;type:bigint unsigned;not null"`
}

func (AccruedFeeModel) TableName() string { return "accrued_protocol_fees" }

// PoolFeeModel 池协议费率 GORM 模型
type PoolFeeModel struct {
	gorm.Model
	PoolID string `gorm:"column:pool_id;uniqueIndex;type:varchar(64);not null"`
	Fee    uint32 `gorm:"column:fee;type:int unsigned;not null"`
}

func (PoolFeeModel) TableName() string { return "pool_protocol_fees" }

// ControllerModel 当前费率控制器身份，单行表
type ControllerModel struct {
	gorm.Model
	Slot       uint8  `gorm:"column:slot;uniqueIndex;not null"`
	Controller string `gorm:"column:controller;type:varchar(256)"`
}

func (ControllerModel) TableName() string { return "protocol_fee_controller" }

// CollectionModel 协议费提取审计明细 GORM 模型
type CollectionModel struct {
	gorm.Model
	Asset     string `gorm:"column:asset;index;type:varchar(128);not null"`
	Amount    uint64 `gorm:"column:amount;type:bigint unsigned;not null"`
	Recipient string `gorm:"column:recipient;type:varchar(256);not null"`
	Caller    string `gorm:"column:caller;type:varchar(256);not null"`
	Status    string `gorm:"column:status;index;type:varchar(16);not null"`
}

func (CollectionModel) TableName() string { return "protocol_fee_collections" }

// controllerSlot 单行表固定主键
const controllerSlot uint8 = 1

type feeRepository struct {
	db *db.DB
}

// NewFeeRepository 创建协议费仓储
func NewFeeRepository(database *db.DB) domain.FeeRepository {
	return &feeRepository{db: database}
}

func (r *feeRepository) SaveAccrued(ctx context.Context, asset domain.AssetID, balance uint64) error {
	m := &AccruedFeeModel{Asset: string(asset), Balance: balance}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "asset"}},
		DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
	}).Create(m).Error
}

func (r *feeRepository) SaveCollection(ctx context.Context, asset domain.AssetID, balance uint64, record domain.CollectionRecord) (uint64, error) {
	collection := &CollectionModel{
		Asset:     string(record.Asset),
		Amount:    record.Amount,
		Recipient: string(record.Recipient),
		Caller:    string(record.Caller),
		Status:    string(domain.CollectionPending),
	}

	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		m := &AccruedFeeModel{Asset: string(asset), Balance: balance}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "asset"}},
			DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
		}).Create(m).Error; err != nil {
			return err
		}

		return tx.Create(collection).Error
	})
	if err != nil {
		return 0, err
	}
	return uint64(collection.ID), nil
}

func (r *feeRepository) UpdateCollectionStatus(ctx context.Context, id uint64, status domain.CollectionStatus) error {
	return r.db.WithContext(ctx).Model(&CollectionModel{}).
		Where("id = ?", id).Update("status", string(status)).Error
}

func (r *feeRepository) LoadAccrued(ctx context.Context) (map[domain.AssetID]uint64, error) {
	var models []AccruedFeeModel
	if err := r.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, err
	}

	balances := make(map[domain.AssetID]uint64, len(models))
	for _, m := range models {
		balances[domain.AssetID(m.Asset)] = m.Balance
	}
	return balances, nil
}

func (r *feeRepository) SavePoolFee(ctx context.Context, id domain.PoolID, fee uint32) error {
	m := &PoolFeeModel{PoolID: string(id), Fee: fee}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pool_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"fee", "updated_at"}),
	}).Create(m).Error
}

func (r *feeRepository) GetPoolFee(ctx context.Context, id domain.PoolID) (uint32, error) {
	var m PoolFeeModel
	if err := r.db.WithContext(ctx).Where("pool_id = ?", string(id)).First(&m).Error; err != nil {
		return 0, err
	}
	return m.Fee, nil
}

func (r *feeRepository) SaveController(ctx context.Context, controller domain.Address) error {
	m := &ControllerModel{Slot: controllerSlot, Controller: string(controller)}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slot"}},
		DoUpdates: clause.AssignmentColumns([]string{"controller", "updated_at"}),
	}).Create(m).Error
}

func (r *feeRepository) LoadController(ctx context.Context) (domain.Address, error) {
	var m ControllerModel
	err := r.db.WithContext(ctx).Where("slot = ?", controllerSlot).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return domain.Address(m.Controller), nil
}
