package controllers

import (
	"net/http"
	"strconv"

	"github.com/cyclopick/cyclopick-api/services"
	"github.com/gin-gonic/gin"
)

// InitiateImageUploadRequest represents the request body for the initiate
// phase of the upload protocol
type InitiateImageUploadRequest struct {
	Filename  string `json:"filename" binding:"required"`
	MimeType  string `json:"mime_type" binding:"required"`
	Width     int    `json:"width" binding:"required,gt=0"`
	Height    int    `json:"height" binding:"required,gt=0"`
	SizeBytes int64  `json:"size_bytes" binding:"required,gt=0"`
}

// InitiateImageUpload handles POST /api/v1/orders/:id/images - creates a
// pending image record and returns a single-use presigned write URL
// (staff only)
func InitiateImageUpload(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req InitiateImageUploadRequest
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

	result, err := services.GetImageUploadService().Initiate(
		orderID, req.Filename, req.MimeType, req.Width, req.Height, req.SizeBytes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"image_id":   result.Image.ID,
			"upload_url": result.UploadURL,
			"path":       result.Image.StorageKey,
		},
	})
}

// ConfirmImageUpload handles POST /api/v1/orders/:id/images/:imageId/confirm
// - marks a transferred image as materialized so it appears in reads
// (staff only)
func ConfirmImageUpload(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	image, err := services.GetImageUploadService().Confirm(orderID, imageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    image,
	})
}

// ListOrderImages handles GET /api/v1/orders/:id/images - lists confirmed
// images with presigned read URLs (staff only)
func ListOrderImages(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	images, err := services.GetImageUploadService().List(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    images,
	})
}

// DeleteOrderImage handles DELETE /api/v1/orders/:id/images/:imageId -
// removes the image record and its stored object (staff only)
func DeleteOrderImage(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	imageID, ok := imageIDParam(c)
	if !ok {
		return
	}

	if err := services.GetImageUploadService().Delete(orderID, imageID); err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    nil,
	})
}

// imageIDParam parses the :imageId URL parameter, writing the error
// response itself when the parameter is unusable
func imageIDParam(c *gin.Context) (uint, bool) {
	raw := c.Param("imageId")
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "A numeric image ID is required",
			},
		})
		return 0, false
	}
	return uint(id), true
}
