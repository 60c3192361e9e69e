package data

import (
	"context"
	"fmt"
	"time"

	"sms-service/internal/biz"
	"sms-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redis/redis/v8"
)

// rateLimitRepo 每日发送量计数（Redis 计数器，零点过期）
type rateLimitRepo struct {
	data *Data
	log  *log.Helper
}

// NewRateLimitRepo 创建限流 repo
func NewRateLimitRepo(data *Data, logger log.Logger) biz.RateLimitRepo {
	return &rateLimitRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

func dailySentKey(accountID, day string) string {
	return fmt.Sprintf("%s%s:%s", constants.RedisKeyDailySent, accountID, day)
}

// UnitsSentToday 读取账户当日已发送的计费单元数
func (r *rateLimitRepo) UnitsSentToday(ctx context.Context, accountID, day string) (int64, error) {
	count, err := r.data.rdb.Get(ctx, dailySentKey(accountID, day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AddUnitsSentToday 累加当日发送量，计数器在 expireAt（本地零点）过期
func (r *rateLimitRepo) AddUnitsSentToday(ctx context.Context, accountID, day string, units int64, expireAt time.Time) error {
	key := dailySentKey(accountID, day)
	pipe := r.data.rdb.TxPipeline()
	pipe.IncrBy(ctx, key, units)
	pipe.ExpireAt(ctx, key, expireAt)
	_, err := pipe.Exec(ctx)
	return err
}
