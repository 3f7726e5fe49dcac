package receipt

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/receiptradar/receiptradar/internal/extraction"
)

const maxUploadBytes = 5 * 1024 * 1024

// allowedContentTypes are the upload types accepted at intake.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/gif":  true,
}

// ValidationError reports a rejected upload. The receipt is never created.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// Processor turns receipt image bytes into extracted data. An error means
// an unexpected internal failure, not a recognition problem; recognition
// problems degrade inside the processor.
type Processor interface {
	Process(image []byte, filename string) (extraction.ExtractedData, error)
}

// IDGenerator generates unique IDs for receipts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates random UUID strings
type defaultIDGenerator struct{}

func (defaultIDGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// DefaultIDGenerator returns the UUID-based generator used outside tests.
func DefaultIDGenerator() IDGenerator { return defaultIDGenerator{} }

// DefaultTimeSource returns the system clock.
func DefaultTimeSource() TimeSource { return defaultTimeSource{} }

// defaultProcessingDelay spaces intake from extraction so the upload
// response always wins the race against the first status poll.
const defaultProcessingDelay = 1 * time.Second

// Service owns the receipt lifecycle: it validates and records uploads,
// schedules extraction, and applies the single terminal status transition.
type Service struct {
	db              DB
	storage         Storage
	processor       Processor
	idGenerator     IDGenerator
	timeSource      TimeSource
	processingDelay time.Duration
}

// NewService creates a Service with default ID generation, clock and delay
func NewService(db DB, storage Storage, processor Processor) *Service {
	return NewServiceWithDeps(db, storage, processor, defaultIDGenerator{}, defaultTimeSource{}, defaultProcessingDelay)
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, processor Processor, idGen IDGenerator, timeSrc TimeSource, delay time.Duration) *Service {
	return &Service{
		db:              db,
		storage:         storage,
		processor:       processor,
		idGenerator:     idGen,
		timeSource:      timeSrc,
		processingDelay: delay,
	}
}

// sanitizeFilename cleans up a filename by removing special characters and
// truncating length, so phone-generated names store safely
func sanitizeFilename(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)

	reg := regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	base = reg.ReplaceAllString(base, "")

	reg = regexp.MustCompile(`\s+`)
	base = reg.ReplaceAllString(base, " ")

	base = strings.TrimSpace(base)

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}

	if base == "" {
		base = "receipt"
	}

	return base + ext
}

func validateUpload(contentType string, size int) error {
	if !allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return &ValidationError{Reason: "Invalid file type. Please upload a JPEG, PNG, or GIF image."}
	}
	if size > maxUploadBytes {
		return &ValidationError{Reason: "File too large. Please upload an image smaller than 5MB."}
	}
	return nil
}

// Intake validates an upload, records it in processing state, and schedules
// extraction. It returns as soon as the record is durably stored; the
// extraction outcome lands later via exactly one terminal transition.
func (s *Service) Intake(filename string, contentType string, data []byte) (*Receipt, error) {
	if err := validateUpload(contentType, len(data)); err != nil {
		return nil, err
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	storedPath, err := s.storage.Save(fmt.Sprintf("%s_%s", id, sanitizeFilename(filename)), data)
	if err != nil {
		return nil, fmt.Errorf("saving upload: %w", err)
	}

	receipt := &Receipt{
		ID:          id,
		Filename:    filename,
		UploadDate:  now,
		ContentType: contentType,
		StoredPath:  storedPath,
		Status:      StatusProcessing,
	}

	if err := s.db.SaveReceipt(receipt); err != nil {
		s.storage.Delete(storedPath)
		return nil, fmt.Errorf("saving receipt: %w", err)
	}

	// The record is visible now; the task owns the terminal transition.
	go s.runExtraction(id, filename, data)

	return receipt, nil
}

// errTerminalState marks an extraction outcome that arrived after the
// receipt had already left the processing state.
var errTerminalState = errors.New("receipt already in a terminal state")

// runExtraction performs the asynchronous half of the lifecycle: process
// the image, then move the receipt to completed or error.
func (s *Service) runExtraction(id string, filename string, image []byte) {
	if s.processingDelay > 0 {
		time.Sleep(s.processingDelay)
	}

	data, err := s.processor.Process(image, filename)
	if err != nil {
		slog.Error("Extraction failed", "id", id, "filename", filename, "error", err)
	}

	// Check and write in one store operation. A delete that lands while
	// processing must stay deleted, not get resurrected by this save.
	updateErr := s.db.UpdateReceipt(id, func(receipt *Receipt) error {
		if receipt.Status != StatusProcessing {
			return errTerminalState
		}
		if err != nil {
			receipt.Status = StatusError
		} else {
			receipt.ExtractedData = data
			receipt.Status = StatusCompleted
		}
		return nil
	})
	switch {
	case updateErr == nil:
	case errors.Is(updateErr, ErrNotFound):
		// deleted while processing
		slog.Warn("Receipt gone before extraction finished", "id", id)
	case errors.Is(updateErr, errTerminalState):
		slog.Warn("Receipt already in a terminal state, dropping extraction result", "id", id)
	default:
		slog.Error("Failed to record extraction outcome", "id", id, "error", updateErr)
	}
}

// GetReceipt retrieves a receipt by ID
func (s *Service) GetReceipt(id string) (*Receipt, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, fmt.Errorf("getting receipt: %w", err)
	}
	return receipt, nil
}

// ListReceipts returns all receipts, newest upload first
func (s *Service) ListReceipts() ([]*Receipt, error) {
	receipts, err := s.db.ListReceipts()
	if err != nil {
		return nil, fmt.Errorf("listing receipts: %w", err)
	}
	slices.SortFunc(receipts, func(a, b *Receipt) int {
		return b.UploadDate.Compare(a.UploadDate)
	})
	return receipts, nil
}

// DeleteReceipt removes a receipt and its stored image
func (s *Service) DeleteReceipt(id string) error {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return fmt.Errorf("getting receipt for deletion: %w", err)
	}

	if receipt.StoredPath != "" {
		if err := s.storage.Delete(receipt.StoredPath); err != nil {
			// Log and continue; the record is what matters
			slog.Warn("Failed to delete stored image", "path", receipt.StoredPath, "error", err)
		}
	}

	if err := s.db.DeleteReceipt(id); err != nil {
		return fmt.Errorf("deleting receipt: %w", err)
	}
	return nil
}

// GetReceiptFile retrieves the stored image for a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	receipt, err := s.db.GetReceipt(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt: %w", err)
	}

	data, err := s.storage.Get(receipt.StoredPath)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}

	return data, receipt.ContentType, nil
}
