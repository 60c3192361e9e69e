package biz

import (
	"sms-service/internal/conf"
	"sms-service/internal/constants"
)

// Plan 套餐领域对象（只读查找值，订阅变更由外部系统维护映射）
type Plan struct {
	ID                         string
	MonthlyQuota               int64
	OpeningBonusUnits          int64
	OverageEnabled             bool
	OverageUnitPriceMinorUnits int64
}

// SmsConfig 短信计费配置
// 套餐目录、价格与限额由外部配置注入，便于用任意套餐形状做测试
type SmsConfig struct {
	Plans                        map[string]*Plan
	AccountPlans                 map[string]string
	DefaultPlanID                string
	DailyLimit                   int64
	AffiliateUnitPriceMinorUnits int64
	UnitPriceMinorUnits          int64
	QuotaLowPercentThreshold     float64 // 配额低阈值（百分比）
	WalletLowThreshold           int64   // 钱包低阈值（单元数）
}

// NewSmsConfig 从启动配置创建 SmsConfig
func NewSmsConfig(c *conf.Bootstrap) *SmsConfig {
	config := &SmsConfig{
		Plans:                        make(map[string]*Plan),
		AccountPlans:                 make(map[string]string),
		DailyLimit:                   constants.DefaultDailyLimit,
		AffiliateUnitPriceMinorUnits: 7, // 默认值
		UnitPriceMinorUnits:          9, // 默认值
		QuotaLowPercentThreshold:     20.0,
		WalletLowThreshold:           20,
	}
	if c.Sms == nil {
		return config
	}
	for id, p := range c.Sms.Plans {
		config.Plans[id] = &Plan{
			ID:                         id,
			MonthlyQuota:               p.MonthlyQuota,
			OpeningBonusUnits:          p.OpeningBonusUnits,
			OverageEnabled:             p.OverageEnabled,
			OverageUnitPriceMinorUnits: p.OverageUnitPriceMinorUnits,
		}
	}
	for account, planID := range c.Sms.AccountPlans {
		config.AccountPlans[account] = planID
	}
	config.DefaultPlanID = c.Sms.DefaultPlan
	if c.Sms.DailyLimit > 0 {
		config.DailyLimit = c.Sms.DailyLimit
	}
	if c.Sms.AffiliateUnitPriceMinorUnits > 0 {
		config.AffiliateUnitPriceMinorUnits = c.Sms.AffiliateUnitPriceMinorUnits
	}
	if c.Sms.UnitPriceMinorUnits > 0 {
		config.UnitPriceMinorUnits = c.Sms.UnitPriceMinorUnits
	}
	return config
}

// PlanFor 返回账户当前生效的套餐
// 先查账户映射，未配置时回退到默认套餐；找不到返回 nil（调用方转换为 ErrCodeUnknownPlan）
func (c *SmsConfig) PlanFor(accountID string) *Plan {
	if planID, ok := c.AccountPlans[accountID]; ok {
		if p, ok := c.Plans[planID]; ok {
			return p
		}
	}
	return c.Plans[c.DefaultPlanID]
}
