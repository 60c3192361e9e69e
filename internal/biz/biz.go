package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSmsConfig,
	NewLedgerUseCase,
	NewUsagePeriodUseCase,
	NewWalletUseCase,
	NewRateLimitUseCase,
	NewSendAttemptUseCase,
	NewUnitPackOrderUseCase,
	NewStatsUseCase,
	NewSendUseCase, // 组合 UseCase
)
