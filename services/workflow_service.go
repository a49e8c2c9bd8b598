package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/cyclopick/cyclopick-api/models"
)

// TransitionApplier applies one single-hop status transition to a stored
// order. Implementations must re-validate the hop against the currently
// stored status and reject anything outside the transition graph.
type TransitionApplier interface {
	Apply(orderID uint, to models.OrderStatus) error
}

// GormTransitionApplier applies transitions against the database
type GormTransitionApplier struct {
	db *gorm.DB
}

// NewGormTransitionApplier creates a transition applier backed by the given database
func NewGormTransitionApplier(db *gorm.DB) *GormTransitionApplier {
	return &GormTransitionApplier{db: db}
}

// Apply performs a single-hop transition, rejecting invalid hops with a
// distinct INVALID_TRANSITION error
func (a *GormTransitionApplier) Apply(orderID uint, to models.OrderStatus) error {
	var order models.Order
	if err := a.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &NotFoundError{Resource: "order", ID: orderID}
		}
		return fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	if !CanTransition(order.Status, to) {
		return &ValidationError{
			Code:    "INVALID_TRANSITION",
			Message: fmt.Sprintf("cannot transition order %d from %s to %s", orderID, order.Status, to),
		}
	}

	if err := a.db.Model(&order).Update("status", to).Error; err != nil {
		return fmt.Errorf("failed to update order %d status: %w", orderID, err)
	}
	return nil
}

// WorkflowService orchestrates order lifecycle operations: intake,
// user-facing workflow actions and field updates. Compound actions apply
// their hops strictly in sequence, never in parallel.
type WorkflowService struct {
	db          *gorm.DB
	transitions TransitionApplier
}

var workflowServiceInstance *WorkflowService

// InitWorkflowService initializes the workflow service
func InitWorkflowService(db *gorm.DB, transitions TransitionApplier) *WorkflowService {
	workflowServiceInstance = &WorkflowService{db: db, transitions: transitions}
	return workflowServiceInstance
}

// GetWorkflowService returns the initialized workflow service instance
func GetWorkflowService() *WorkflowService {
	return workflowServiceInstance
}

// SetWorkflowService sets the workflow service instance (primarily for testing)
func SetWorkflowService(s *WorkflowService) {
	workflowServiceInstance = s
}

// OrderIntake holds the normalized fields for creating an order
type OrderIntake struct {
	PlannedDate  time.Time
	ServiceNotes string
	Bicycle      models.Bicycle
	Client       models.Client
	TechnicianID *uint
}

// CreateReservation creates a customer-booked order awaiting confirmation
func (s *WorkflowService) CreateReservation(intake OrderIntake) (*models.Order, error) {
	return s.createOrder(intake, models.StatusPendingConfirmation)
}

// CreateWalkIn creates a staff-accepted order that bypasses confirmation
// and starts directly in progress
func (s *WorkflowService) CreateWalkIn(intake OrderIntake) (*models.Order, error) {
	return s.createOrder(intake, models.StatusInProgress)
}

func (s *WorkflowService) createOrder(intake OrderIntake, status models.OrderStatus) (*models.Order, error) {
	order := models.Order{
		Status:       status,
		PlannedDate:  intake.PlannedDate,
		ServiceNotes: intake.ServiceNotes,
		Bicycle:      intake.Bicycle,
		Client:       intake.Client,
		TechnicianID: intake.TechnicianID,
	}
	if err := s.db.Create(&order).Error; err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return &order, nil
}

// GetOrder loads one order with its technician and confirmed images
func (s *WorkflowService) GetOrder(orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.Preload("Technician").
		Preload("Images", "uploaded = ?", true).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	return &order, nil
}

// OrdersForRange loads all orders planned within [from, to), ordered by
// planned date then id
func (s *WorkflowService) OrdersForRange(from, to time.Time) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.Preload("Technician").
		Where("planned_date >= ? AND planned_date < ?", from, to).
		Order("planned_date, id").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return orders, nil
}

// UpdateFields updates the editable order fields. Status is never touched
// here; it changes only through transitions and actions.
func (s *WorkflowService) UpdateFields(orderID uint, intake OrderIntake) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"planned_date":         intake.PlannedDate,
		"service_notes":        intake.ServiceNotes,
		"bicycle_brand":        intake.Bicycle.Brand,
		"bicycle_model":        intake.Bicycle.Model,
		"bicycle_frame_number": intake.Bicycle.FrameNumber,
		"client_name":          intake.Client.Name,
		"client_email":         intake.Client.Email,
		"client_phone":         intake.Client.Phone,
		"technician_id":        intake.TechnicianID,
	}
	if err := s.db.Model(order).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}
	return s.GetOrder(orderID)
}

// TransitionStatus applies one single-hop status transition
func (s *WorkflowService) TransitionStatus(orderID uint, to models.OrderStatus) (*models.Order, error) {
	if !to.IsValid() {
		return nil, &ValidationError{
			Code:    "INVALID_STATUS",
			Message: fmt.Sprintf("unknown status %q", to),
		}
	}
	if err := s.transitions.Apply(orderID, to); err != nil {
		return nil, err
	}
	return s.GetOrder(orderID)
}

// PerformAction executes a user-facing workflow action.
//
// A multi-hop action applies its hops strictly in sequence. When the first
// hop succeeds and a later one fails, the order rests in a valid
// intermediate state, so the operation is still reported as a success with
// a logged warning; re-invoking the action later picks up from the stored
// status and applies only the remaining hops. Returns nil when the action
// deleted the order.
func (s *WorkflowService) PerformAction(orderID uint, action Action) (*models.Order, error) {
	order, err := s.GetOrder(orderID)
	if err != nil {
		return nil, err
	}

	plan, err := PlanAction(order.Status, action)
	if err != nil {
		return nil, err
	}

	if plan.Deletes {
		if err := s.db.Delete(&models.Order{}, orderID).Error; err != nil {
			return nil, fmt.Errorf("failed to cancel order %d: %w", orderID, err)
		}
		return nil, nil
	}

	for i, to := range plan.Hops {
		if err := s.transitions.Apply(orderID, to); err != nil {
			if i == 0 {
				return nil, err
			}
			// Earlier hops succeeded, so the order is in a valid
			// intermediate state. Report success; a later reload
			// shows the true status and the action can be re-invoked
			// to finish the remaining hops.
			log.Printf("warning: action %q on order %d stopped after %d of %d hops: %v",
				action, orderID, i, len(plan.Hops), err)
			break
		}
	}

	return s.GetOrder(orderID)
}

// Cancel removes the order (soft delete)
func (s *WorkflowService) Cancel(orderID uint) error {
	_, err := s.PerformAction(orderID, ActionCancel)
	return err
}

// Confirm runs the compound confirm action (up to two hops)
func (s *WorkflowService) Confirm(orderID uint) (*models.Order, error) {
	return s.PerformAction(orderID, ActionConfirm)
}

// AcceptBike moves a confirmed or awaited bike into progress
func (s *WorkflowService) AcceptBike(orderID uint) (*models.Order, error) {
	return s.PerformAction(orderID, ActionAcceptBike)
}

// MarkReadyForPickup finishes the active work on an order
func (s *WorkflowService) MarkReadyForPickup(orderID uint) (*models.Order, error) {
	return s.PerformAction(orderID, ActionReadyForPickup)
}

// MarkCompleted closes out a picked-up order
func (s *WorkflowService) MarkCompleted(orderID uint) (*models.Order, error) {
	return s.PerformAction(orderID, ActionCompleted)
}

// BackToProgress returns a held order to active work
func (s *WorkflowService) BackToProgress(orderID uint) (*models.Order, error) {
	return s.PerformAction(orderID, ActionBackToProgress)
}
