package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cyclopick/cyclopick-api/models"
)

// ImageUploadService owns the three-phase image upload protocol:
// initiate (pending record + presigned write URL), transfer (direct PUT to
// the object store) and confirm (mark the record materialized). It also
// runs the full compress-and-upload pipeline for server-side batch uploads.
type ImageUploadService struct {
	db          *gorm.DB
	s3          S3Interface
	uploader    *Uploader
	compression CompressionOptions
}

var imageUploadServiceInstance *ImageUploadService

// InitImageUploadService initializes the image upload service
func InitImageUploadService(db *gorm.DB, s3 S3Interface, uploader *Uploader, compression CompressionOptions) *ImageUploadService {
	imageUploadServiceInstance = &ImageUploadService{
		db:          db,
		s3:          s3,
		uploader:    uploader,
		compression: compression,
	}
	return imageUploadServiceInstance
}

// GetImageUploadService returns the initialized image upload service instance
func GetImageUploadService() *ImageUploadService {
	return imageUploadServiceInstance
}

// SetImageUploadService sets the image upload service instance (primarily for testing)
func SetImageUploadService(s *ImageUploadService) {
	imageUploadServiceInstance = s
}

// InitiateResult is the response of the initiate phase
type InitiateResult struct {
	Image     *models.OrderImage
	UploadURL string
}

// Initiate creates a pending image record and a presigned write URL.
// Uploads are only permitted while the order is in an active-work status.
func (s *ImageUploadService) Initiate(orderID uint, filename, mimeType string, width, height int, sizeBytes int64) (*InitiateResult, error) {
	var order models.Order
	if err := s.db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "order", ID: orderID}
		}
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}

	if !order.Status.IsActiveWork() {
		return nil, &ValidationError{
			Code:    "UPLOAD_NOT_ALLOWED",
			Message: fmt.Sprintf("images can only be uploaded while the bike is in the workshop, order is %s", order.Status),
		}
	}

	key := fmt.Sprintf("orders/%d/%s%s", orderID, uuid.NewString(), filepath.Ext(filename))

	image := models.OrderImage{
		OrderID:    orderID,
		StorageKey: key,
		MimeType:   mimeType,
		Width:      width,
		Height:     height,
		SizeBytes:  sizeBytes,
		Uploaded:   false,
	}
	if err := s.db.Create(&image).Error; err != nil {
		return nil, fmt.Errorf("failed to create image record: %w", err)
	}

	uploadURL, err := s.s3.PresignPutURL(key, mimeType)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}

	return &InitiateResult{Image: &image, UploadURL: uploadURL}, nil
}

// Confirm marks an initiated image as materialized so it becomes visible
// in subsequent reads
func (s *ImageUploadService) Confirm(orderID, imageID uint) (*models.OrderImage, error) {
	image, err := s.findImage(orderID, imageID)
	if err != nil {
		return nil, err
	}

	if !image.Uploaded {
		if err := s.db.Model(image).Update("uploaded", true).Error; err != nil {
			return nil, fmt.Errorf("failed to confirm image %d: %w", imageID, err)
		}
		image.Uploaded = true
	}
	return image, nil
}

// List returns the confirmed images of an order with presigned read URLs.
// Initiated-but-unconfirmed images are never listed.
func (s *ImageUploadService) List(orderID uint) ([]models.OrderImage, error) {
	var images []models.OrderImage
	err := s.db.Where("order_id = ? AND uploaded = ?", orderID, true).
		Order("id").
		Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load images for order %d: %w", orderID, err)
	}

	for i := range images {
		url, err := s.s3.PresignGetURL(images[i].StorageKey)
		if err != nil {
			return nil, fmt.Errorf("failed to presign image %d: %w", images[i].ID, err)
		}
		images[i].URL = url
	}
	return images, nil
}

// Delete removes an image record and its stored object
func (s *ImageUploadService) Delete(orderID, imageID uint) error {
	image, err := s.findImage(orderID, imageID)
	if err != nil {
		return err
	}

	if err := s.s3.DeleteObject(image.StorageKey); err != nil {
		return fmt.Errorf("failed to delete stored object: %w", err)
	}
	if err := s.db.Delete(image).Error; err != nil {
		return fmt.Errorf("failed to delete image record: %w", err)
	}
	return nil
}

// UploadFile is one raw photo handed to the batch pipeline
type UploadFile struct {
	Filename string
	Reader   io.Reader
}

// ProgressFunc receives the unified batch progress in [0, 1]
type ProgressFunc func(progress float64)

// UploadBatch runs the full pipeline for each file strictly in sequence:
// compress, initiate, transfer to the presigned URL, confirm. Progress is
// reported as (fileIndex + perFileProgress) / total so the caller can show
// one bar across the batch. A failure on file N aborts the batch; files
// before N stay uploaded and files after N are not attempted. Returns the
// number of fully uploaded files alongside any error.
func (s *ImageUploadService) UploadBatch(ctx context.Context, orderID uint, files []UploadFile, progress ProgressFunc) (int, error) {
	if progress == nil {
		progress = func(float64) {}
	}
	total := float64(len(files))

	for i, file := range files {
		report := func(perFile float64) {
			progress((float64(i) + perFile) / total)
		}
		report(0)

		compressed, err := CompressImage(file.Filename, file.Reader, s.compression)
		if err != nil {
			return i, err
		}
		report(0.25)

		initiated, err := s.Initiate(orderID, compressed.Filename, compressed.MimeType,
			compressed.Width, compressed.Height, int64(len(compressed.Data)))
		if err != nil {
			return i, err
		}
		report(0.5)

		if err := s.uploader.Transfer(ctx, initiated.UploadURL, compressed.MimeType, compressed.Data); err != nil {
			return i, err
		}
		report(0.75)

		if _, err := s.Confirm(orderID, initiated.Image.ID); err != nil {
			return i, err
		}
		report(1)
	}

	return len(files), nil
}

func (s *ImageUploadService) findImage(orderID, imageID uint) (*models.OrderImage, error) {
	var image models.OrderImage
	err := s.db.Where("order_id = ?", orderID).First(&image, imageID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "image", ID: imageID}
		}
		return nil, fmt.Errorf("failed to load image %d: %w", imageID, err)
	}
	return &image, nil
}
