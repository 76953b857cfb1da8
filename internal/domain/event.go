package domain

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Stage is a position mint lifecycle stage.
type Stage int

const (
	StageUnallocated Stage = iota
	StageAllocated
	StageFinalized
	StageDelivered
	StageFrozen
	StageThawed
	StageBurned
	StageClosed
)

var stageNames = [...]string{
	StageUnallocated: "unallocated",
	StageAllocated:   "allocated",
	StageFinalized:   "finalized",
	StageDelivered:   "delivered",
	StageFrozen:      "frozen",
	StageThawed:      "thawed",
	StageBurned:      "burned",
	StageClosed:      "closed",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

// Transition records a position mint moving between stages.
type Transition struct {
	Mint      solana.PublicKey `json:"mint"`
	Position  solana.PublicKey `json:"position"`
	From      Stage            `json:"from"`
	To        Stage            `json:"to"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewTransition creates a transition stamped now.
func NewTransition(mint, position solana.PublicKey, from, to Stage) Transition {
	return Transition{
		Mint:      mint,
		Position:  position,
		From:      from,
		To:        to,
		Timestamp: time.Now(),
	}
}
