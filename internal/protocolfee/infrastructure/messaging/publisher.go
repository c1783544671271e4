// Package messaging 基于 Kafka 的领域事件发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/poolsettlement/internal/protocolfee/domain"
	"github.com/wyfcoding/poolsettlement/pkg/mq"
)

const (
	// TopicFeeUpdated 池费率更新事件主题
	TopicFeeUpdated = "protocolfee.fee.updated"
	// TopicControllerUpdated 费率控制器变更事件主题
	TopicControllerUpdated = "protocolfee.controller.updated"
)

type kafkaPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaPublisher 创建 Kafka 事件发布者
func NewKafkaPublisher(producer *mq.KafkaProducer) domain.EventPublisher {
	return &kafkaPublisher{producer: producer}
}

func (p *kafkaPublisher) PublishFeeUpdated(ctx context.Context, event domain.FeeUpdatedEvent) error {
	return p.producer.SendMessage(ctx, TopicFeeUpdated, string(event.PoolID), event)
}

func (p *kafkaPublisher) PublishControllerUpdated(ctx context.Context, event domain.ControllerUpdatedEvent) error {
	return p.producer.SendMessage(ctx, TopicControllerUpdated, string(event.Controller), event)
}
