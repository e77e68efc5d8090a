package models

type Side string

const (
	SideNone Side = ""
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Signal — решение стратегии по текущему бару.
type Signal struct {
	Side   Side
	Reason string
}

type RunStatus string

const (
	StatusIdle      RunStatus = "idle"
	StatusWarmingUp RunStatus = "warming-up"
	StatusStreaming RunStatus = "streaming"
	StatusError     RunStatus = "error"
)
