package syncer

import (
	"fmt"
)

// Strategy is the user-selected policy for reconciling local and remote
// progress. It is a closed set so the coordinator's branch table can match
// exhaustively.
type Strategy string

const (
	// StrategySend pushes local progress but never pulls.
	StrategySend Strategy = "send"
	// StrategyReceive applies remote progress but never pushes.
	StrategyReceive Strategy = "receive"
	// StrategyPrompt raises a conflict for the caller to resolve.
	StrategyPrompt Strategy = "prompt"
	// StrategySilent applies the remote side automatically when it looks newer.
	StrategySilent Strategy = "silent"
	// StrategyDisabled turns sync off entirely.
	StrategyDisabled Strategy = "disabled"
)

// ParseStrategy validates a raw strategy string.
func ParseStrategy(raw string) (Strategy, error) {
	s := Strategy(raw)
	switch s {
	case StrategySend, StrategyReceive, StrategyPrompt, StrategySilent, StrategyDisabled:
		return s, nil
	}
	return "", fmt.Errorf("unknown sync strategy %q", raw)
}
