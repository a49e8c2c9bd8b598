package controllers

import (
	"log"
	"net/http"

	"github.com/cyclopick/cyclopick-api/services"
	"github.com/cyclopick/cyclopick-api/utils"
	"github.com/gin-gonic/gin"
)

// UploadOrderImages handles POST /api/v1/orders/:id/images/upload - accepts
// multipart photos and runs the full pipeline server-side for each file in
// sequence: compress, initiate, transfer to the object store, confirm.
//
// A failure on file N aborts the batch: files before N stay uploaded and
// files after N are not attempted. The response reports how many files
// made it so the client can resume with the remainder. (staff only)
func UploadOrderImages(c *gin.Context) {
	if _, ok := requireTechnician(c); !ok {
		return
	}

	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Expected a multipart form",
			},
		})
		return
	}

	fileHeaders := form.File["images"]
	if len(fileHeaders) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NO_FILES",
				"message": "At least one image file is required",
			},
		})
		return
	}

	files := make([]services.UploadFile, 0, len(fileHeaders))
	for _, fh := range fileHeaders {
		if err := utils.ValidateImageFile(fh); err != nil {
			respondUploadValidationError(c, err)
			return
		}

		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_REQUEST",
					"message": "Could not read uploaded file",
				},
			})
			return
		}
		defer f.Close()

		files = append(files, services.UploadFile{Filename: fh.Filename, Reader: f})
	}

	uploaded, err := services.GetImageUploadService().UploadBatch(
		c.Request.Context(), orderID, files,
		func(progress float64) {
			log.Printf("order %d upload progress: %.0f%%", orderID, progress*100)
		})
	if err != nil {
		// Partial batch completion is the expected degraded outcome:
		// report what made it alongside the failure.
		respondBatchError(c, err, uploaded, len(files))
		return
	}

	images, err := services.GetImageUploadService().List(orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"uploaded": uploaded,
			"total":    len(files),
			"images":   images,
		},
	})
}

// respondUploadValidationError maps file validation failures onto the envelope
func respondUploadValidationError(c *gin.Context, err error) {
	if uploadErr, ok := err.(*utils.FileValidationError); ok {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    uploadErr.Code,
				"message": uploadErr.Message,
			},
		})
		return
	}
	respondServiceError(c, err)
}

// respondBatchError reports a failed batch together with the number of
// files that were fully uploaded before the failure
func respondBatchError(c *gin.Context, err error, uploaded, total int) {
	status := http.StatusBadGateway
	code := "UPLOAD_FAILED"

	switch err.(type) {
	case *services.CompressionError:
		status, code = http.StatusUnprocessableEntity, "COMPRESSION_FAILED"
	case *services.TimeoutError:
		status, code = http.StatusGatewayTimeout, "UPLOAD_TIMEOUT"
	case *services.ValidationError:
		status, code = http.StatusConflict, "UPLOAD_NOT_ALLOWED"
	}

	c.JSON(status, gin.H{
		"success": false,
		"error": gin.H{
			"code":     code,
			"message":  err.Error(),
			"uploaded": uploaded,
			"total":    total,
		},
	})
}
