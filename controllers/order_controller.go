package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cyclopick/cyclopick-api/config"
	"github.com/cyclopick/cyclopick-api/models"
	"github.com/cyclopick/cyclopick-api/services"
	"github.com/gin-gonic/gin"
)

// OrderPayload represents the request body for creating or updating an
// order. Older booking clients send the client and bicycle fields flat,
// newer ones nested; both shapes are accepted and normalized into one
// canonical intake before reaching the services.
type OrderPayload struct {
	PlannedDate  string          `json:"planned_date" binding:"required"`
	ServiceNotes string          `json:"service_notes"`
	TechnicianID *uint           `json:"technician_id"`
	Client       *models.Client  `json:"client"`
	Bicycle      *models.Bicycle `json:"bicycle"`

	// Legacy flat shape
	ClientName      string `json:"clientName"`
	ClientEmail     string `json:"clientEmail"`
	ClientPhone     string `json:"clientPhone"`
	BikeBrand       string `json:"bikeBrand"`
	BikeModel       string `json:"bikeModel"`
	BikeFrameNumber string `json:"bikeFrameNumber"`
}

// Normalize converts either payload shape into the canonical intake
func (p *OrderPayload) Normalize() (services.OrderIntake, error) {
	plannedDate, err := time.Parse("2006-01-02", p.PlannedDate)
	if err != nil {
		return services.OrderIntake{}, &services.ValidationError{
			Code:    "INVALID_DATE",
			Message: "planned_date must be formatted as YYYY-MM-DD",
		}
	}

	intake := services.OrderIntake{
		PlannedDate:  plannedDate,
		ServiceNotes: p.ServiceNotes,
		TechnicianID: p.TechnicianID,
	}

	// The nested shape wins when both are present
	if p.Client != nil {
		intake.Client = *p.Client
	} else {
		intake.Client = models.Client{Name: p.ClientName, Email: p.ClientEmail, Phone: p.ClientPhone}
	}
	if p.Bicycle != nil {
		intake.Bicycle = *p.Bicycle
	} else {
		intake.Bicycle = models.Bicycle{Brand: p.BikeBrand, Model: p.BikeModel, FrameNumber: p.BikeFrameNumber}
	}

	if intake.Client.Name == "" {
		return services.OrderIntake{}, &services.ValidationError{
			Code:    "MISSING_CLIENT_NAME",
			Message: "A client name is required",
		}
	}
	return intake, nil
}

// StatusUpdateRequest represents the request body for a single-hop status change
type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// ActionRequest represents the request body for a workflow action
type ActionRequest struct {
	Action services.Action `json:"action" binding:"required"`
}

// CreateReservation handles POST /api/v1/orders - books a service slot (public)
func CreateReservation(c *gin.Context) {
	var payload OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	intake, err := payload.Normalize()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	order, err := services.GetWorkflowService().CreateReservation(intake)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// CreateWalkIn handles POST /api/v1/orders/walk-in - accepts a bike brought
// in without a prior reservation; the order starts directly in progress
// (staff only)
func CreateWalkIn(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	var payload OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	intake, err := payload.Normalize()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	order, err := services.GetWorkflowService().CreateWalkIn(intake)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    order,
	})
}

// GetOrder handles GET /api/v1/orders/:id - returns the order with the
// workflow actions permitted in its current status
func GetOrder(c *gin.Context) {
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := services.GetWorkflowService().GetOrder(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":           order,
			"allowed_actions": services.AllowedActions(order.Status),
		},
	})
}

// GetWeekOrders handles GET /api/v1/orders?week=YYYY-MM-DD - returns the
// calendar aggregation for the week containing the given date (staff only)
func GetWeekOrders(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	weekParam := c.Query("week")
	if weekParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "The week query parameter is required",
			},
		})
		return
	}

	day, err := time.Parse("2006-01-02", weekParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_DATE",
				"message": "week must be formatted as YYYY-MM-DD",
			},
		})
		return
	}

	// Roll back to the Monday of the requested week
	weekStart := day.AddDate(0, 0, -mondayOffset(day.Weekday()))

	orders, err := services.GetWorkflowService().OrdersForRange(weekStart, weekStart.AddDate(0, 0, 7))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	week := services.BuildWeek(weekStart, orders, config.GetConfig().MaxBikesPerDay)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    week,
	})
}

// UpdateOrder handles PUT /api/v1/orders/:id - updates the editable order
// fields; status is never changed here (staff only)
func UpdateOrder(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var payload OrderPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	intake, err := payload.Normalize()
	if err != nil {
		respondServiceError(c, err)
		return
	}

	order, err := services.GetWorkflowService().UpdateFields(orderID, intake)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status - applies one
// single-hop status transition; invalid hops are rejected with a distinct
// error (staff only)
func UpdateOrderStatus(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req StatusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetWorkflowService().TransitionStatus(orderID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    order,
	})
}

// PerformOrderAction handles POST /api/v1/orders/:id/actions - runs a
// user-facing workflow action, including the compound two-hop confirm
// (staff only)
func PerformOrderAction(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "VALIDATION_ERROR",
				"message": "Invalid request data",
				"details": err.Error(),
			},
		})
		return
	}

	order, err := services.GetWorkflowService().PerformAction(orderID, req.Action)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	if order == nil {
		// The action cancelled the order
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"data":    nil,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"order":           order,
			"allowed_actions": services.AllowedActions(order.Status),
		},
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id - cancels the order
// (staff only)
func DeleteOrder(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	if err := services.GetWorkflowService().Cancel(orderID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    nil,
	})
}

// orderIDParam parses the :id URL parameter, writing the error response
// itself when the parameter is unusable
func orderIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "A numeric order ID is required",
			},
		})
		return 0, false
	}
	return uint(id), true
}

// mondayOffset returns how many days back the Monday of w's week lies
func mondayOffset(w time.Weekday) int {
	if w == time.Sunday {
		return 6
	}
	return int(w) - 1
}

// respondServiceError maps service-layer errors onto the HTTP envelope
func respondServiceError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		status := http.StatusBadRequest
		if validationErr.Code == "INVALID_TRANSITION" || validationErr.Code == "INVALID_ACTION" {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{
			"success": false,
			"error": gin.H{
				"code":    validationErr.Code,
				"message": validationErr.Message,
			},
		})
		return
	}

	var notFoundErr *services.NotFoundError
	if errors.As(err, &notFoundErr) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": notFoundErr.Error(),
			},
		})
		return
	}

	var compressionErr *services.CompressionError
	if errors.As(err, &compressionErr) {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "COMPRESSION_FAILED",
				"message": compressionErr.Error(),
			},
		})
		return
	}

	var timeoutErr *services.TimeoutError
	if errors.As(err, &timeoutErr) {
		c.JSON(http.StatusGatewayTimeout, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_TIMEOUT",
				"message": timeoutErr.Error(),
			},
		})
		return
	}

	var transportErr *services.TransportError
	if errors.As(err, &transportErr) {
		c.JSON(http.StatusBadGateway, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": transportErr.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "Something went wrong",
		},
	})
}
