package services

import (
	"fmt"

	"github.com/cyclopick/cyclopick-api/models"
)

// Action is a user-facing workflow action on a service order
type Action string

const (
	ActionCancel         Action = "cancel"
	ActionConfirm        Action = "confirm"
	ActionAcceptBike     Action = "acceptBike"
	ActionReadyForPickup Action = "readyForPickup"
	ActionBackToProgress Action = "backToProgress"
	ActionCompleted      Action = "completed"
)

// transitionGraph lists the allowed single-hop status transitions.
// This is the only set of edges the status-update endpoint accepts;
// the holds (WAITING_FOR_PARTS, AWAITING_CLIENT_DECISION) are entered
// through it rather than through a named action.
var transitionGraph = map[models.OrderStatus][]models.OrderStatus{
	models.StatusPendingConfirmation:    {models.StatusConfirmed},
	models.StatusConfirmed:              {models.StatusWaitingForBike, models.StatusInProgress},
	models.StatusWaitingForBike:         {models.StatusInProgress},
	models.StatusInProgress:             {models.StatusReadyForPickup, models.StatusWaitingForParts, models.StatusAwaitingClientDecision},
	models.StatusWaitingForParts:        {models.StatusInProgress, models.StatusReadyForPickup},
	models.StatusAwaitingClientDecision: {models.StatusInProgress, models.StatusReadyForPickup},
	models.StatusReadyForPickup:         {models.StatusCompleted},
	models.StatusCompleted:              {},
}

// CanTransition reports whether from -> to is an allowed single hop
func CanTransition(from, to models.OrderStatus) bool {
	allowed, ok := transitionGraph[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// allowedActions maps a status to the ordered list of actions offered for it
var allowedActions = map[models.OrderStatus][]Action{
	models.StatusPendingConfirmation:    {ActionCancel, ActionConfirm},
	models.StatusConfirmed:              {ActionCancel, ActionAcceptBike},
	models.StatusWaitingForBike:         {ActionCancel, ActionAcceptBike},
	models.StatusInProgress:             {ActionReadyForPickup},
	models.StatusWaitingForParts:        {ActionBackToProgress, ActionReadyForPickup},
	models.StatusAwaitingClientDecision: {ActionBackToProgress, ActionReadyForPickup},
	models.StatusReadyForPickup:         {ActionCompleted},
	models.StatusCompleted:              {},
}

// AllowedActions returns the ordered actions offered for a status
func AllowedActions(status models.OrderStatus) []Action {
	actions := allowedActions[status]
	out := make([]Action, len(actions))
	copy(out, actions)
	return out
}

// IsActionOffered reports whether the action appears in the action list
// for the given status
func IsActionOffered(status models.OrderStatus, action Action) bool {
	for _, a := range allowedActions[status] {
		if a == action {
			return true
		}
	}
	return false
}

// ActionPlan describes what performing an action entails: the sequence of
// single-hop transitions to apply in order, or deletion of the order.
type ActionPlan struct {
	Hops    []models.OrderStatus
	Deletes bool
}

// PlanAction resolves an action against the current status.
//
// The confirm action is a compound operation: from PENDING_CONFIRMATION it
// applies two hops (CONFIRMED then WAITING_FOR_BIKE). It is also accepted
// from CONFIRMED, performing only the remaining hop, so that re-invoking
// confirm after a partial failure completes the operation, and from
// WAITING_FOR_BIKE as a no-op. Every other action is accepted exactly where
// it is offered.
func PlanAction(status models.OrderStatus, action Action) (ActionPlan, error) {
	if action == ActionConfirm {
		switch status {
		case models.StatusPendingConfirmation:
			return ActionPlan{Hops: []models.OrderStatus{models.StatusConfirmed, models.StatusWaitingForBike}}, nil
		case models.StatusConfirmed:
			return ActionPlan{Hops: []models.OrderStatus{models.StatusWaitingForBike}}, nil
		case models.StatusWaitingForBike:
			return ActionPlan{}, nil
		}
		return ActionPlan{}, invalidAction(status, action)
	}

	if !IsActionOffered(status, action) {
		return ActionPlan{}, invalidAction(status, action)
	}

	switch action {
	case ActionCancel:
		return ActionPlan{Deletes: true}, nil
	case ActionAcceptBike:
		return ActionPlan{Hops: []models.OrderStatus{models.StatusInProgress}}, nil
	case ActionReadyForPickup:
		return ActionPlan{Hops: []models.OrderStatus{models.StatusReadyForPickup}}, nil
	case ActionBackToProgress:
		return ActionPlan{Hops: []models.OrderStatus{models.StatusInProgress}}, nil
	case ActionCompleted:
		return ActionPlan{Hops: []models.OrderStatus{models.StatusCompleted}}, nil
	}
	return ActionPlan{}, invalidAction(status, action)
}

func invalidAction(status models.OrderStatus, action Action) error {
	return &ValidationError{
		Code:    "INVALID_ACTION",
		Message: fmt.Sprintf("action %q is not permitted in status %s", action, status),
	}
}
