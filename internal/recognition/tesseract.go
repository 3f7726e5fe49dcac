package recognition

import (
	"context"
	"fmt"
	"sync"

	"github.com/otiai10/gosseract/v2"
)

// receiptCharWhitelist restricts recognition to the characters that appear
// on printed receipts, which cuts down on garbage reads.
const receiptCharWhitelist = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz .,/$-:"

// Tesseract implements the Engine interface with a local Tesseract install.
type Tesseract struct {
	language string

	mu     sync.Mutex // gosseract clients are not safe for concurrent use
	client *gosseract.Client
}

// NewTesseract creates a new Tesseract Engine instance
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{language: language}
}

// Init creates and configures the underlying Tesseract client.
func (t *Tesseract) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client := gosseract.NewClient()
	if err := client.SetLanguage(t.language); err != nil {
		client.Close()
		return fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetWhitelist(receiptCharWhitelist); err != nil {
		client.Close()
		return fmt.Errorf("setting whitelist: %w", err)
	}
	// Receipts are a single uniform block of text.
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return fmt.Errorf("setting page segmentation mode: %w", err)
	}

	t.mu.Lock()
	t.client = client
	t.mu.Unlock()
	return nil
}

// Recognize runs Tesseract over the prepared image and returns the raw text.
func (t *Tesseract) Recognize(ctx context.Context, image []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	prepared, err := prepareImage(image)
	if err != nil {
		return "", err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return "", fmt.Errorf("tesseract client is not initialized")
	}
	if err := t.client.SetImageFromBytes(prepared); err != nil {
		return "", fmt.Errorf("loading image: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognizing text: %w", err)
	}
	return text, nil
}

// Close releases the Tesseract client.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}
