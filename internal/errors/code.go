package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// SMS Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，SMS 固定为 21
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块（复用 go-pkg 通用错误码）
//   01: 号码/消息模块
//   02: 配额账本模块
//   03: 钱包模块
//   04: 发送模块
//   05: 短信包订单模块
//   06: 统计模块
//   07-99: 预留扩展

// 号码/消息模块错误码 (210100-210199)
const (
	// ErrCodeInvalidPhoneNumber 手机号无法规范化为 E.164 格式
	ErrCodeInvalidPhoneNumber = 210101
	// ErrCodeEmptyMessage 消息内容为空
	ErrCodeEmptyMessage = 210102
	// ErrCodeMessageTooLong 消息超过最大分段数
	ErrCodeMessageTooLong = 210103
	// ErrCodeMissingTemplateVariables 模板变量缺失
	ErrCodeMissingTemplateVariables = 210104
	// ErrCodeInvalidSmsType 无效的短信类型
	ErrCodeInvalidSmsType = 210105
)

// 配额账本模块错误码 (210200-210299)
const (
	// ErrCodeUnknownPlan 未知的套餐
	ErrCodeUnknownPlan = 210201
	// ErrCodeInsufficientFunds 配额与钱包均不足且套餐未开启超量计费
	ErrCodeInsufficientFunds = 210202
	// ErrCodeUsagePeriodCreateFailed 账期记录创建失败
	ErrCodeUsagePeriodCreateFailed = 210203
	// ErrCodeUsagePeriodUpdateFailed 账期记录更新失败
	ErrCodeUsagePeriodUpdateFailed = 210204
	// ErrCodeReservationNotFound 预留不存在
	ErrCodeReservationNotFound = 210205
	// ErrCodeReserveLockFailed 获取预留锁失败
	ErrCodeReserveLockFailed = 210206
)

// 钱包模块错误码 (210300-210399)
const (
	// ErrCodeWalletNotFound 钱包记录不存在
	ErrCodeWalletNotFound = 210301
	// ErrCodeWalletCreateFailed 钱包创建失败
	ErrCodeWalletCreateFailed = 210302
	// ErrCodeWalletUpdateFailed 钱包更新失败
	ErrCodeWalletUpdateFailed = 210303
	// ErrCodeInvalidCreditAmount 无效的充值单元数
	ErrCodeInvalidCreditAmount = 210304
)

// 发送模块错误码 (210400-210499)
const (
	// ErrCodeDailyRateLimitExceeded 超出每日发送量上限
	ErrCodeDailyRateLimitExceeded = 210401
	// ErrCodeTransportRejected 运营商拒绝发送
	ErrCodeTransportRejected = 210402
	// ErrCodeTransportUnavailable 短信运营商不可用
	ErrCodeTransportUnavailable = 210403
	// ErrCodeAttemptNotFound 发送记录不存在
	ErrCodeAttemptNotFound = 210404
	// ErrCodeNoValidRecipients 没有有效的接收人
	ErrCodeNoValidRecipients = 210405
)

// 短信包订单模块错误码 (210500-210599)
const (
	// ErrCodePackOrderNotFound 短信包订单不存在
	ErrCodePackOrderNotFound = 210501
	// ErrCodePackOrderCreateFailed 短信包订单创建失败
	ErrCodePackOrderCreateFailed = 210502
	// ErrCodePackOrderUpdateFailed 短信包订单更新失败
	ErrCodePackOrderUpdateFailed = 210503
)

// 统计模块错误码 (210600-210699)
const (
	// ErrCodeGetAllAccountIDsFailed 获取所有账户ID失败
	ErrCodeGetAllAccountIDsFailed = 210601
	// ErrCodeGetStatsFailed 获取统计失败
	ErrCodeGetStatsFailed = 210602
	// ErrCodeExportFailed 导出发送记录失败
	ErrCodeExportFailed = 210603
)
