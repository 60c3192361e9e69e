package biz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func planWithOverage(price int64) *Plan {
	return &Plan{ID: "business", MonthlyQuota: 1500, OverageEnabled: true, OverageUnitPriceMinorUnits: price}
}

func planNoOverage() *Plan {
	return &Plan{ID: "starter", MonthlyQuota: 50, OverageEnabled: false}
}

func TestSplitReservation_QuotaThenWallet(t *testing.T) {
	// 配额剩 20，钱包 50，请求 70：配额吃满再吃钱包
	split := SplitReservation(70, 20, 50, 1, planNoOverage())
	assert.Equal(t, int64(70), split.GrantedUnits)
	assert.Equal(t, int64(20), split.FromQuota)
	assert.Equal(t, int64(50), split.FromWallet)
	assert.Equal(t, int64(0), split.OverageUnits)
}

func TestSplitReservation_QuotaOnly(t *testing.T) {
	split := SplitReservation(10, 40, 100, 1, planNoOverage())
	assert.Equal(t, int64(10), split.GrantedUnits)
	assert.Equal(t, int64(10), split.FromQuota)
	assert.Equal(t, int64(0), split.FromWallet)
}

func TestSplitReservation_Overage(t *testing.T) {
	// 配额用尽、钱包为空、套餐开启超量单价 9：100 单元全部走超量
	split := SplitReservation(100, 0, 0, 1, planWithOverage(9))
	assert.Equal(t, int64(100), split.GrantedUnits)
	assert.Equal(t, int64(0), split.FromQuota)
	assert.Equal(t, int64(0), split.FromWallet)
	assert.Equal(t, int64(100), split.OverageUnits)
	assert.Equal(t, int64(900), split.OverageChargeMinorUnits)
}

func TestSplitReservation_OverageTopsUpPartial(t *testing.T) {
	split := SplitReservation(100, 30, 20, 1, planWithOverage(9))
	assert.Equal(t, int64(100), split.GrantedUnits)
	assert.Equal(t, int64(30), split.FromQuota)
	assert.Equal(t, int64(20), split.FromWallet)
	assert.Equal(t, int64(50), split.OverageUnits)
	assert.Equal(t, int64(450), split.OverageChargeMinorUnits)
}

func TestSplitReservation_PartialFlooredToWholeMessages(t *testing.T) {
	// 超量不可用、每条 3 单元：可用 10 单元只授予 3 条消息（9 单元）
	split := SplitReservation(30, 4, 6, 3, planNoOverage())
	assert.Equal(t, int64(9), split.GrantedUnits)
	assert.Equal(t, int64(4), split.FromQuota)
	assert.Equal(t, int64(5), split.FromWallet)
	assert.Equal(t, int64(0), split.OverageUnits)
}

func TestSplitReservation_DeniedWhenNothingAvailable(t *testing.T) {
	split := SplitReservation(10, 0, 0, 1, planNoOverage())
	assert.Equal(t, int64(0), split.GrantedUnits)
}

func TestSplitReservation_NegativeInputsClamped(t *testing.T) {
	split := SplitReservation(10, -5, -3, 1, planNoOverage())
	assert.Equal(t, int64(0), split.GrantedUnits)

	split = SplitReservation(0, 100, 100, 1, planNoOverage())
	assert.Equal(t, int64(0), split.GrantedUnits)
}

func TestAllocateMessages_DrawOrder(t *testing.T) {
	split := ReservationSplit{
		RequestedUnits: 9,
		GrantedUnits:   9,
		FromQuota:      4,
		FromWallet:     3,
		OverageUnits:   2,
	}
	fundings := AllocateMessages(split, 3)
	assert.Len(t, fundings, 3)
	// 第一条全配额
	assert.Equal(t, MessageFunding{FromQuota: 3}, fundings[0])
	// 第二条跨来源：1 配额 + 2 钱包
	assert.Equal(t, MessageFunding{FromQuota: 1, FromWallet: 2}, fundings[1])
	// 第三条：1 钱包 + 2 超量
	assert.Equal(t, MessageFunding{FromWallet: 1, OverageUnits: 2}, fundings[2])

	var quota, wallet, overage int64
	for _, f := range fundings {
		quota += f.FromQuota
		wallet += f.FromWallet
		overage += f.OverageUnits
	}
	assert.Equal(t, split.FromQuota, quota)
	assert.Equal(t, split.FromWallet, wallet)
	assert.Equal(t, split.OverageUnits, overage)
}

func TestAllocateMessages_Empty(t *testing.T) {
	assert.Nil(t, AllocateMessages(ReservationSplit{}, 3))
	assert.Nil(t, AllocateMessages(ReservationSplit{GrantedUnits: 6}, 0))
}
