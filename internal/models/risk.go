package models

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// RiskMetrics — производные метрики, пересчитываются по запросу.
type RiskMetrics struct {
	TotalBalance     float64
	AvailableBalance float64
	TotalExposure    float64
	MaxDrawdown      float64
	DailyPnl         float64
	DailyTrades      int
	WinRate          float64
	SharpeRatio      float64
	RiskLevel        RiskLevel
}
