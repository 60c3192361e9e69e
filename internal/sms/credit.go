package sms

// ConvertAffiliateCredit 将推荐返利金额（货币最小单位）兑换为钱包短信单元
// 向下取整；金额或单价非正时返回 0，不报错（返利金额在实践中恒为非负，这里做防御处理）。
func ConvertAffiliateCredit(creditMinorUnits, pricePerUnitMinorUnits int64) int64 {
	if creditMinorUnits <= 0 || pricePerUnitMinorUnits <= 0 {
		return 0
	}
	return creditMinorUnits / pricePerUnitMinorUnits
}
