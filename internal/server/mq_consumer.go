package server

import (
	"context"
	"encoding/json"

	"sms-service/internal/biz"
	"sms-service/internal/conf"
	"sms-service/internal/constants"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/go-kratos/kratos/v2/log"
)

// MQConsumerServer 消费 Redis 快速路径提交的账本事件并批量落库
type MQConsumerServer struct {
	c       rocketmq.PushConsumer
	repo    biz.LedgerRepo
	conf    *conf.Data
	log     *log.Helper
	enabled bool
}

// NewMQConsumerServer 创建 RocketMQ 消费者
func NewMQConsumerServer(c *conf.Bootstrap, repo biz.LedgerRepo, logger log.Logger) *MQConsumerServer {
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		return &MQConsumerServer{enabled: false, log: log.NewHelper(logger)}
	}

	r, err := rocketmq.NewPushConsumer(
		consumer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		consumer.WithGroupName(c.Data.Rocketmq.GroupName),
		consumer.WithRetry(int(c.Data.Rocketmq.RetryTimes)),
		consumer.WithConsumeMessageBatchMaxSize(100),
		// 顺序消费：同一队列内回滚事件必须排在对应的预留事件之后落库
		consumer.WithConsumerOrder(true),
	)
	if err != nil {
		log.NewHelper(logger).Errorf("init consumer error: %v", err)
		return &MQConsumerServer{enabled: false, log: log.NewHelper(logger)}
	}

	return &MQConsumerServer{
		c:       r,
		repo:    repo,
		conf:    c.Data,
		log:     log.NewHelper(logger),
		enabled: true,
	}
}

// Start 启动消费者
func (s *MQConsumerServer) Start(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		s.log.Infof("MQConsumerServer is disabled, skipping startup")
		return nil
	}

	s.log.Infof("Starting MQConsumerServer, topic: %s", constants.TopicLedgerEvents)

	err := s.c.Subscribe(constants.TopicLedgerEvents, consumer.MessageSelector{}, s.handler)
	if err != nil {
		s.log.Errorf("Failed to subscribe to topic %s: %v", constants.TopicLedgerEvents, err)
		// 不返回错误，避免导致整个应用启动失败
		return nil
	}

	if err := s.c.Start(); err != nil {
		s.log.Errorf("Failed to start RocketMQ consumer: %v", err)
		return nil
	}
	return nil
}

// Stop 停止消费者
func (s *MQConsumerServer) Stop(ctx context.Context) error {
	if !s.enabled || s.c == nil {
		return nil
	}
	s.log.Info("Stopping MQConsumerServer")
	return s.c.Shutdown()
}

func (s *MQConsumerServer) handler(ctx context.Context, msgs ...*primitive.MessageExt) (consumer.ConsumeResult, error) {
	if len(msgs) == 0 {
		return consumer.ConsumeSuccess, nil
	}

	var events []*biz.LedgerEvent
	for _, msg := range msgs {
		var event biz.LedgerEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			s.log.Errorf("Unmarshal message failed: %v, body: %s", err, string(msg.Body))
			continue
		}
		events = append(events, &event)
	}

	if len(events) > 0 {
		if err := s.repo.BatchApplyLedgerEvents(ctx, events); err != nil {
			s.log.Errorf("BatchApplyLedgerEvents failed: %v", err)
			return consumer.ConsumeRetryLater, nil
		}
	}
	return consumer.ConsumeSuccess, nil
}
