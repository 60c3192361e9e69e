package conf

// Bootstrap 启动配置
// 通过 kratos config 从 configs/config.yaml 扫描得到
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	Sms    *Sms    `json:"sms"`
}

// Server 服务器配置
type Server struct {
	Http *HTTP `json:"http"`
}

// HTTP HTTP 服务器配置
type HTTP struct {
	Network        string `json:"network"`
	Addr           string `json:"addr"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}

// Data 数据层配置
type Data struct {
	Database *Database `json:"database"`
	Redis    *Redis    `json:"redis"`
	Rocketmq *Rocketmq `json:"rocketmq"`
}

// Database 数据库配置
type Database struct {
	Driver string `json:"driver"`
	Source string `json:"source"`
}

// Redis Redis 配置
type Redis struct {
	Addr               string `json:"addr"`
	ReadTimeoutMillis  int64  `json:"read_timeout_millis"`
	WriteTimeoutMillis int64  `json:"write_timeout_millis"`
}

// Rocketmq RocketMQ 配置
type Rocketmq struct {
	Enabled     bool     `json:"enabled"`
	NameServers []string `json:"name_servers"`
	GroupName   string   `json:"group_name"`
	RetryTimes  int32    `json:"retry_times"`
}

// Sms 短信业务配置
// 套餐、价格、限额全部来自配置，不允许写死在代码中
type Sms struct {
	// Plans 套餐目录，key 为套餐ID
	Plans map[string]*Plan `json:"plans"`
	// AccountPlans 账户 -> 套餐ID 映射（订阅变更由外部系统写入）
	AccountPlans map[string]string `json:"account_plans"`
	// DefaultPlan 未配置映射的账户使用的套餐ID
	DefaultPlan string `json:"default_plan"`
	// DailyLimit 每日发送量上限（计费单元），0 表示使用平台默认值
	DailyLimit int64 `json:"daily_limit"`
	// AffiliateUnitPriceMinorUnits 推荐返利兑换短信单元的单价（货币最小单位）
	AffiliateUnitPriceMinorUnits int64 `json:"affiliate_unit_price_minor_units"`
	// UnitPriceMinorUnits 统计口径下每个计费单元折算的货币金额（货币最小单位）
	UnitPriceMinorUnits int64 `json:"unit_price_minor_units"`
	// Transport 短信运营商配置
	Transport *Transport `json:"transport"`
}

// Plan 套餐配置（只读查找值）
type Plan struct {
	// MonthlyQuota 每月免费配额（计费单元）
	MonthlyQuota int64 `json:"monthly_quota"`
	// OpeningBonusUnits 开户一次性赠送的钱包单元数
	OpeningBonusUnits int64 `json:"opening_bonus_units"`
	// OverageEnabled 是否允许超量计费
	OverageEnabled bool `json:"overage_enabled"`
	// OverageUnitPriceMinorUnits 超量单元单价（货币最小单位），仅 OverageEnabled 时有意义
	OverageUnitPriceMinorUnits int64 `json:"overage_unit_price_minor_units"`
}

// Transport 短信运营商客户端配置
type Transport struct {
	Endpoint       string `json:"endpoint"`
	ApiKey         string `json:"api_key"`
	TimeoutSeconds int64  `json:"timeout_seconds"`
}
