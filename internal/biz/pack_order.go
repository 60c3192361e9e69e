package biz

import (
	"context"
	"fmt"
	"time"

	"sms-service/internal/constants"
	smsErrors "sms-service/internal/errors"
	"sms-service/internal/metrics"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// UnitPackOrder 短信包购买订单领域对象
// 支付由外部账务系统完成，本服务只负责订单幂等与到账入账。
type UnitPackOrder struct {
	OrderID   string
	AccountID string
	Units     int64 // 购买的短信单元数
	PaymentID string // 外部支付流水号
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// UnitPackOrderRepo 短信包订单数据层接口（定义在 biz 层）
type UnitPackOrderRepo interface {
	CreateUnitPackOrder(ctx context.Context, orderID, accountID string, units int64) error
	GetUnitPackOrderByID(ctx context.Context, orderID string) (*UnitPackOrder, error)
	GetUnitPackOrderByPaymentID(ctx context.Context, paymentID string) (*UnitPackOrder, error)
	// CreditWithIdempotency 标记订单成功并入账钱包（单事务，重复回调不会重复入账）
	CreditWithIdempotency(ctx context.Context, orderID, paymentID string, units int64) error
}

// UnitPackOrderUseCase 短信包订单业务逻辑
type UnitPackOrderUseCase struct {
	repo    UnitPackOrderRepo
	conf    *SmsConfig
	log     *log.Helper
	metrics *metrics.SmsMetrics
}

// NewUnitPackOrderUseCase 创建短信包订单 UseCase
func NewUnitPackOrderUseCase(repo UnitPackOrderRepo, conf *SmsConfig, logger log.Logger) *UnitPackOrderUseCase {
	return &UnitPackOrderUseCase{
		repo:    repo,
		conf:    conf,
		log:     log.NewHelper(logger),
		metrics: metrics.GetMetrics(),
	}
}

// CreatePurchase 创建短信包购买订单（返回订单ID，支付流程由外部账务系统接管）
func (uc *UnitPackOrderUseCase) CreatePurchase(ctx context.Context, accountID string, units int64) (string, error) {
	if units <= 0 {
		return "", pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodeInvalidCreditAmount)
	}

	orderID := fmt.Sprintf("%s%s_%d", constants.OrderIDPrefixUnitPack, accountID, time.Now().Unix())
	if err := uc.repo.CreateUnitPackOrder(ctx, orderID, accountID, units); err != nil {
		uc.log.Errorf("CreateUnitPackOrder failed: %v", err)
		return "", pkgErrors.WrapErrorWithLang(ctx, err, smsErrors.ErrCodePackOrderCreateFailed)
	}

	uc.log.Infof("Unit pack order created: order_id=%s, account=%s, units=%d", orderID, accountID, units)
	return orderID, nil
}

// PaymentCallback 支付回调（支持幂等性）
// 以外部支付流水号作为幂等标识；已处理过的回调直接返回成功。
func (uc *UnitPackOrderUseCase) PaymentCallback(ctx context.Context, orderID, paymentID string) error {
	existingOrder, err := uc.repo.GetUnitPackOrderByPaymentID(ctx, paymentID)
	if err != nil {
		uc.log.Errorf("GetUnitPackOrderByPaymentID failed: %v", err)
		return err
	}

	if existingOrder != nil {
		if existingOrder.Status == constants.OrderStatusSuccess {
			uc.log.Infof("Pack payment already processed: payment_id=%s", paymentID)
			return nil
		}
		orderID = existingOrder.OrderID
	} else {
		existingOrder, err = uc.repo.GetUnitPackOrderByID(ctx, orderID)
		if err != nil {
			uc.log.Errorf("GetUnitPackOrderByID failed: %v", err)
			return err
		}
		if existingOrder == nil {
			return pkgErrors.NewBizErrorWithLang(ctx, smsErrors.ErrCodePackOrderNotFound)
		}
		if existingOrder.Status == constants.OrderStatusSuccess {
			uc.log.Infof("Pack payment already processed: order_id=%s", orderID)
			return nil
		}
	}

	if err := uc.repo.CreditWithIdempotency(ctx, orderID, paymentID, existingOrder.Units); err != nil {
		return err
	}
	if uc.metrics != nil {
		uc.metrics.WalletCreditTotal.WithLabelValues("pack").Inc()
		uc.metrics.WalletCreditUnits.WithLabelValues("pack").Add(float64(existingOrder.Units))
	}
	return nil
}
