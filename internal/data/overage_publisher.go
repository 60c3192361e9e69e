package data

import (
	"context"
	"encoding/json"

	"sms-service/internal/biz"
	"sms-service/internal/constants"

	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// overageChargePublisher 超量计费事件发布（实现 biz.OverageChargePublisher）
// 下游账务系统消费 sms_overage_charges topic 完成实际扣款。
type overageChargePublisher struct {
	data *Data
	log  *log.Helper
}

// NewOverageChargePublisher 创建超量计费事件发布器
func NewOverageChargePublisher(data *Data, logger log.Logger) biz.OverageChargePublisher {
	return &overageChargePublisher{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// PublishOverageCharge 发布超量计费事件
// MQ 未启用时只记日志：超量账单走月末对账兜底，不阻塞发送。
func (p *overageChargePublisher) PublishOverageCharge(ctx context.Context, event *biz.OverageChargeEvent) error {
	if p.data.mq == nil {
		p.log.Warnf("RocketMQ disabled, overage charge not published: account=%s, units=%d, amount=%d",
			event.AccountID, event.OverageUnits, event.AmountMinorUnits)
		return nil
	}

	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := primitive.NewMessage(constants.TopicOverageCharges, msgBytes)
	if _, err := p.data.mq.SendSync(ctx, msg); err != nil {
		return err
	}

	p.log.Infof("Overage charge published: account=%s, reservation=%s, units=%d, amount=%d",
		event.AccountID, event.ReservationID, event.OverageUnits, event.AmountMinorUnits)
	return nil
}
