package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	appConfig "github.com/cyclopick/cyclopick-api/config"
	"github.com/cyclopick/cyclopick-api/models"
	"github.com/cyclopick/cyclopick-api/services"
)

func setupControllerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(&models.Technician{}, &models.Order{}, &models.OrderImage{}); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	appConfig.SetDB(db)
	appConfig.SetConfig(&appConfig.Config{MaxBikesPerDay: 8, GoEnv: "test"})
	services.InitWorkflowService(db, services.NewGormTransitionApplier(db))

	return db
}

func createTestTechnician(t *testing.T, db *gorm.DB) *models.Technician {
	t.Helper()
	technician := models.Technician{
		Auth0ID: "auth0|tech123",
		Name:    "Marek Wrench",
		Email:   "marek@cyclopick.com",
		Active:  true,
	}
	if err := db.Create(&technician).Error; err != nil {
		t.Fatalf("Failed to create test technician: %v", err)
	}
	return &technician
}

// setupOrderRouter registers the order routes with a stub auth middleware
// that injects the given Auth0 subject, mirroring what EnsureValidToken
// does after validating a real token
func setupOrderRouter(auth0ID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	asStaff := func(c *gin.Context) {
		if auth0ID != "" {
			c.Set("user_id", auth0ID)
		}
		c.Next()
	}

	router.POST("/api/v1/orders", CreateReservation)
	router.GET("/api/v1/orders/:id", GetOrder)

	staff := router.Group("/api/v1", asStaff)
	staff.GET("/orders", GetWeekOrders)
	staff.POST("/orders/walk-in", CreateWalkIn)
	staff.PUT("/orders/:id", UpdateOrder)
	staff.PUT("/orders/:id/status", UpdateOrderStatus)
	staff.POST("/orders/:id/actions", PerformOrderAction)
	staff.DELETE("/orders/:id", DeleteOrder)

	return router
}

func doJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
		t.Fatalf("Response should be valid JSON: %v (body: %s)", err, w.Body.String())
	}
	return response
}

func errorCode(response map[string]interface{}) string {
	errObj, ok := response["error"].(map[string]interface{})
	if !ok {
		return ""
	}
	code, _ := errObj["code"].(string)
	return code
}

func TestCreateReservation(t *testing.T) {
	setupControllerTestDB(t)
	router := setupOrderRouter("")

	tests := []struct {
		name           string
		requestBody    map[string]interface{}
		expectedStatus int
		expectedError  string
		checkResponse  func(t *testing.T, response map[string]interface{})
	}{
		{
			name: "Successfully create reservation with nested payload",
			requestBody: map[string]interface{}{
				"planned_date": "2025-04-14",
				"client":       map[string]interface{}{"name": "Anna Kowalska", "email": "anna@example.com", "phone": "+48 600 100 200"},
				"bicycle":      map[string]interface{}{"brand": "Cube", "model": "Attain", "frame_number": "WOW123"},
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				assert.True(t, response["success"].(bool))
				data := response["data"].(map[string]interface{})
				assert.Equal(t, string(models.StatusPendingConfirmation), data["status"])
				client := data["client"].(map[string]interface{})
				assert.Equal(t, "Anna Kowalska", client["name"])
			},
		},
		{
			name: "Successfully create reservation with legacy flat payload",
			requestBody: map[string]interface{}{
				"planned_date": "2025-04-15",
				"clientName":   "Jan Nowak",
				"clientPhone":  "+48 500 000 000",
				"bikeBrand":    "Romet",
				"bikeModel":    "Rambler",
			},
			expectedStatus: http.StatusCreated,
			checkResponse: func(t *testing.T, response map[string]interface{}) {
				data := response["data"].(map[string]interface{})
				client := data["client"].(map[string]interface{})
				assert.Equal(t, "Jan Nowak", client["name"], "flat fields are normalized into the nested shape")
				bicycle := data["bicycle"].(map[string]interface{})
				assert.Equal(t, "Romet", bicycle["brand"])
			},
		},
		{
			name: "Fail with missing planned date",
			requestBody: map[string]interface{}{
				"clientName": "Jan Nowak",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "VALIDATION_ERROR",
		},
		{
			name: "Fail with malformed date",
			requestBody: map[string]interface{}{
				"planned_date": "14.04.2025",
				"clientName":   "Jan Nowak",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "INVALID_DATE",
		},
		{
			name: "Fail with missing client name",
			requestBody: map[string]interface{}{
				"planned_date": "2025-04-14",
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "MISSING_CLIENT_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(router, http.MethodPost, "/api/v1/orders", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, w.Code)

			response := parseResponse(t, w)
			if tt.expectedError != "" {
				assert.False(t, response["success"].(bool))
				assert.Equal(t, tt.expectedError, errorCode(response))
			}
			if tt.checkResponse != nil {
				tt.checkResponse(t, response)
			}
		})
	}
}

func TestCreateWalkInStartsInProgress(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	w := doJSON(router, http.MethodPost, "/api/v1/orders/walk-in", map[string]interface{}{
		"planned_date": "2025-04-14",
		"clientName":   "Drop-in Customer",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	response := parseResponse(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, string(models.StatusInProgress), data["status"], "walk-in bypasses confirmation")
}

func TestStaffEndpointsRejectNonStaff(t *testing.T) {
	setupControllerTestDB(t)
	// No technician row exists for this subject
	router := setupOrderRouter("auth0|stranger")

	w := doJSON(router, http.MethodPost, "/api/v1/orders/walk-in", map[string]interface{}{
		"planned_date": "2025-04-14",
		"clientName":   "Drop-in Customer",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(parseResponse(t, w)))

	// Without any auth context at all
	router = setupOrderRouter("")
	w = doJSON(router, http.MethodGet, "/api/v1/orders?week=2025-04-14", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetOrderIncludesAllowedActions(t *testing.T) {
	db := setupControllerTestDB(t)
	router := setupOrderRouter("")

	order := models.Order{
		Status:      models.StatusPendingConfirmation,
		PlannedDate: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Client:      models.Client{Name: "Anna Kowalska"},
	}
	db.Create(&order)

	w := doJSON(router, http.MethodGet, "/api/v1/orders/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := parseResponse(t, w)
	data := response["data"].(map[string]interface{})
	actions := data["allowed_actions"].([]interface{})
	assert.Equal(t, []interface{}{"cancel", "confirm"}, actions)
}

func TestGetOrderNotFound(t *testing.T) {
	setupControllerTestDB(t)
	router := setupOrderRouter("")

	w := doJSON(router, http.MethodGet, "/api/v1/orders/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", errorCode(parseResponse(t, w)))
}

func TestUpdateOrderStatusSingleHop(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	order := models.Order{
		Status:      models.StatusInProgress,
		PlannedDate: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Client:      models.Client{Name: "Anna Kowalska"},
	}
	db.Create(&order)

	// Valid hop: into the waiting-for-parts hold
	w := doJSON(router, http.MethodPut, "/api/v1/orders/1/status",
		map[string]interface{}{"status": "WAITING_FOR_PARTS"})
	assert.Equal(t, http.StatusOK, w.Code)

	response := parseResponse(t, w)
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "WAITING_FOR_PARTS", data["status"])

	// Invalid hop: rejected with a distinct error
	w = doJSON(router, http.MethodPut, "/api/v1/orders/1/status",
		map[string]interface{}{"status": "COMPLETED"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(parseResponse(t, w)))
}

func TestPerformOrderActionConfirm(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	order := models.Order{
		Status:      models.StatusPendingConfirmation,
		PlannedDate: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Client:      models.Client{Name: "Anna Kowalska"},
	}
	db.Create(&order)

	w := doJSON(router, http.MethodPost, "/api/v1/orders/1/actions",
		map[string]interface{}{"action": "confirm"})
	assert.Equal(t, http.StatusOK, w.Code)

	response := parseResponse(t, w)
	data := response["data"].(map[string]interface{})
	orderData := data["order"].(map[string]interface{})
	assert.Equal(t, "WAITING_FOR_BIKE", orderData["status"],
		"confirm collapses two hops into one action")

	// The action set for the new state is returned for the UI
	actions := data["allowed_actions"].([]interface{})
	assert.Equal(t, []interface{}{"cancel", "acceptBike"}, actions)
}

func TestPerformOrderActionRejected(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	order := models.Order{
		Status:      models.StatusInProgress,
		PlannedDate: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Client:      models.Client{Name: "Anna Kowalska"},
	}
	db.Create(&order)

	w := doJSON(router, http.MethodPost, "/api/v1/orders/1/actions",
		map[string]interface{}{"action": "completed"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_ACTION", errorCode(parseResponse(t, w)))
}

func TestCompleteFromReadyForPickup(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	order := models.Order{
		Status:      models.StatusReadyForPickup,
		PlannedDate: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Client:      models.Client{Name: "Anna Kowalska"},
	}
	db.Create(&order)

	w := doJSON(router, http.MethodPost, "/api/v1/orders/1/actions",
		map[string]interface{}{"action": "completed"})
	assert.Equal(t, http.StatusOK, w.Code)

	response := parseResponse(t, w)
	data := response["data"].(map[string]interface{})
	orderData := data["order"].(map[string]interface{})
	assert.Equal(t, "COMPLETED", orderData["status"])
	assert.Empty(t, data["allowed_actions"], "terminal state offers no actions")
}

func TestDeleteOrderCancels(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	order := models.Order{
		Status:      models.StatusPendingConfirmation,
		PlannedDate: time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC),
		Client:      models.Client{Name: "Anna Kowalska"},
	}
	db.Create(&order)

	w := doJSON(router, http.MethodDelete, "/api/v1/orders/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(router, http.MethodGet, "/api/v1/orders/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetWeekOrdersAggregation(t *testing.T) {
	db := setupControllerTestDB(t)
	technician := createTestTechnician(t, db)
	router := setupOrderRouter(technician.Auth0ID)

	monday := time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		db.Create(&models.Order{
			Status:      models.StatusConfirmed,
			PlannedDate: monday,
			Client:      models.Client{Name: "Anna Kowalska"},
		})
	}
	db.Create(&models.Order{
		Status:      models.StatusConfirmed,
		PlannedDate: monday.AddDate(0, 0, 2),
		Client:      models.Client{Name: "Jan Nowak"},
	})

	// Requesting any day of the week returns the week from its Monday
	w := doJSON(router, http.MethodGet, "/api/v1/orders?week=2025-04-16", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	response := parseResponse(t, w)
	data := response["data"].(map[string]interface{})
	days := data["days"].([]interface{})
	assert.Len(t, days, 7)

	mondayData := days[0].(map[string]interface{})
	assert.Equal(t, float64(4), mondayData["bikes_count"])
	assert.Equal(t, "medium", mondayData["capacity"], "4 of 8 is already medium")

	wednesdayData := days[2].(map[string]interface{})
	assert.Equal(t, float64(1), wednesdayData["bikes_count"])
	assert.Equal(t, "low", wednesdayData["capacity"])

	assert.Equal(t, float64(5), data["total_orders"])

	// Missing week parameter is rejected
	w = doJSON(router, http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
