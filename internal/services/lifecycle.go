package services

import (
	"betting-pool/internal/models"
)

// Operation is an action whose legality depends on the bet status.
type Operation string

const (
	OpParticipate       Operation = "participate"
	OpEditParticipation Operation = "edit participation"
	OpChangeCommission  Operation = "change commission"
	OpUpdate            Operation = "update"
	OpSettle            Operation = "settle"
	OpDelete            Operation = "delete"
)

// lifecycle lists the operations allowed per status. Delete is further
// restricted to bets without participations by the caller.
var lifecycle = map[models.BetStatus]map[Operation]bool{
	models.BetStatusActive: {
		OpParticipate:       true,
		OpEditParticipation: true,
		OpChangeCommission:  true,
		OpUpdate:            true,
		OpSettle:            true,
		OpDelete:            true,
	},
	models.BetStatusLocked: {
		OpChangeCommission: true,
		OpUpdate:           true,
		OpSettle:           true,
		OpDelete:           true,
	},
	models.BetStatusCompleted: {
		OpDelete: true,
	},
}

// CheckOperation returns a *StateError when op is not allowed for bet's status.
func CheckOperation(bet *models.Bet, op Operation) error {
	if lifecycle[bet.Status][op] {
		return nil
	}
	return &StateError{Status: bet.Status, Action: string(op)}
}

// checkStatusTransition validates an admin status edit. Completed is only
// reached through settlement.
func checkStatusTransition(from, to models.BetStatus) error {
	if from == to {
		return nil
	}
	switch {
	case from == models.BetStatusActive && to == models.BetStatusLocked,
		from == models.BetStatusLocked && to == models.BetStatusActive:
		return nil
	}
	return ErrInvalidStatusTransition
}
