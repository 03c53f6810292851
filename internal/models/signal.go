package models

import "time"

type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Signal — результат одной оценки стратегии. Не персистится.
type Signal struct {
	Symbol         string
	Action         Action
	Strength       float64 // [0,1]
	ReferencePrice float64
	Timestamp      time.Time
	Reason         string
}
