package models

import "time"

type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// Position — открытая позиция. Не больше одной на символ.
type Position struct {
	Symbol           string
	Side             PositionSide
	Quantity         float64
	EntryPrice       float64
	CurrentPrice     float64
	EntryTime        time.Time
	UnrealizedPnl    float64
	UnrealizedPnlPct float64
}

// TradeRecord — неизменяемый снимок закрытой позиции.
type TradeRecord struct {
	Symbol     string
	Side       PositionSide
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	Pnl        float64
	PnlPct     float64
}
