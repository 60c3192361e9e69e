package data

import (
	"fmt"
	"time"

	"sms-service/internal/conf"

	"github.com/apache/rocketmq-client-go/v2"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
	"github.com/google/wire"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewDB,
	NewRedis,
	NewRocketMQProducer,
	NewRedsync,
	NewData,
	NewLedgerRepo,
	NewUsagePeriodRepo,
	NewWalletRepo,
	NewRateLimitRepo,
	NewSendAttemptRepo,
	NewUnitPackOrderRepo,
	NewStatsRepo,
	NewTransportClient,
	NewOverageChargePublisher,
)

// Data 数据层结构体
type Data struct {
	db  *gorm.DB
	rdb *redis.Client
	mq  rocketmq.Producer // 未启用 MQ 时为 nil，账本走 DB 事务降级路径
}

// NewDB 创建数据库连接
func NewDB(c *conf.Bootstrap) (*gorm.DB, error) {
	if c.Data == nil || c.Data.Database == nil {
		return nil, fmt.Errorf("database config is nil")
	}
	db, err := gorm.Open(mysql.Open(c.Data.Database.Source), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// NewRedis 创建 Redis 连接
func NewRedis(c *conf.Bootstrap) (*redis.Client, error) {
	if c.Data == nil || c.Data.Redis == nil {
		return nil, fmt.Errorf("redis config is nil")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         c.Data.Redis.Addr,
		ReadTimeout:  time.Duration(c.Data.Redis.ReadTimeoutMillis) * time.Millisecond,
		WriteTimeout: time.Duration(c.Data.Redis.WriteTimeoutMillis) * time.Millisecond,
	})

	// 测试连接
	if err := rdb.Ping(rdb.Context()).Err(); err != nil {
		return nil, err
	}

	return rdb, nil
}

// NewRocketMQProducer 创建 RocketMQ 生产者
// 未启用时返回 nil，账本扣减自动降级到 DB 事务路径。
func NewRocketMQProducer(c *conf.Bootstrap, logger log.Logger) (rocketmq.Producer, error) {
	logHelper := log.NewHelper(logger)
	if c.Data == nil || c.Data.Rocketmq == nil || !c.Data.Rocketmq.Enabled {
		logHelper.Info("RocketMQ is disabled, ledger writes will use DB transactions")
		return nil, nil
	}

	p, err := rocketmq.NewProducer(
		producer.WithNsResolver(primitive.NewPassthroughResolver(c.Data.Rocketmq.NameServers)),
		producer.WithGroupName(c.Data.Rocketmq.GroupName),
		producer.WithRetry(int(c.Data.Rocketmq.RetryTimes)),
		// 同账户的账本事件按 ShardingKey 落同一队列，预留/回滚按发送顺序消费
		producer.WithQueueSelector(producer.NewHashQueueSelector()),
	)
	if err != nil {
		logHelper.Errorf("init rocketmq producer error: %v", err)
		return nil, nil // 初始化失败降级，不阻塞启动
	}
	if err := p.Start(); err != nil {
		logHelper.Errorf("start rocketmq producer error: %v", err)
		return nil, nil
	}
	return p, nil
}

// NewRedsync 创建分布式锁客户端
func NewRedsync(rdb *redis.Client) *redsync.Redsync {
	pool := goredis.NewPool(rdb)
	return redsync.New(pool)
}

// NewData 创建数据层实例
func NewData(c *conf.Bootstrap, logger log.Logger, db *gorm.DB, rdb *redis.Client, mq rocketmq.Producer) (*Data, func(), error) {
	cleanup := func() {
		log.NewHelper(logger).Info("closing the data resources")
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
		if err := rdb.Close(); err != nil {
			log.NewHelper(logger).Errorf("failed to close redis: %v", err)
		}
		if mq != nil {
			if err := mq.Shutdown(); err != nil {
				log.NewHelper(logger).Errorf("failed to shutdown rocketmq producer: %v", err)
			}
		}
	}

	return &Data{
		db:  db,
		rdb: rdb,
		mq:  mq,
	}, cleanup, nil
}
