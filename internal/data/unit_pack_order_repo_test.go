package data

import (
	"testing"

	"sms-service/internal/data/model"

	"github.com/stretchr/testify/assert"
)

func TestToPackOrderBiz_PaymentID(t *testing.T) {
	// 未支付订单 payment_id 为 NULL，多个未支付订单不会在唯一索引上冲突
	order := toPackOrderBiz(&model.UnitPackOrder{
		OrderID:   "pack_acc1_1",
		AccountID: "acc1",
		Units:     100,
		Status:    model.PackOrderStatusPending,
	})
	assert.Equal(t, "", order.PaymentID)
	assert.Equal(t, model.PackOrderStatusPending, order.Status)

	paymentID := "pay_123"
	order = toPackOrderBiz(&model.UnitPackOrder{
		OrderID:   "pack_acc1_2",
		AccountID: "acc1",
		Units:     100,
		PaymentID: &paymentID,
		Status:    model.PackOrderStatusSuccess,
	})
	assert.Equal(t, "pay_123", order.PaymentID)
}
