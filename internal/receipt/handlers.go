package receipt

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON encodes a response body with CORS headers set
func writeJSON(w http.ResponseWriter, code int, body any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// jsonError writes an {"error": ...} response
func jsonError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

// handleListReceipts returns all receipts, newest first
func (s *Server) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	receipts, err := s.service.ListReceipts()
	if err != nil {
		slog.Error("Error listing receipts", "error", err)
		jsonError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	// Always an array, never null
	if receipts == nil {
		receipts = []*Receipt{}
	}
	writeJSON(w, http.StatusOK, receipts)
}

// handleUploadReceipt accepts a multipart upload and answers immediately
// with the processing-state record; extraction happens afterwards.
func (s *Server) handleUploadReceipt(w http.ResponseWriter, r *http.Request) {
	// A little headroom over the accepted file size so multipart overhead
	// does not produce confusing parse errors.
	if err := r.ParseMultipartForm(maxUploadBytes + 1024*1024); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		jsonError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("receipt")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file uploaded", http.StatusBadRequest)
		return
	}
	defer f.Close()

	contentType := header.Header.Get("Content-Type")

	// Reject wrong types and oversized files before buffering the upload.
	if err := validateUpload(contentType, int(header.Size)); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			jsonError(w, verr.Reason, http.StatusBadRequest)
			return
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	receipt, err := s.service.Intake(header.Filename, contentType, data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			jsonError(w, verr.Reason, http.StatusBadRequest)
			return
		}
		slog.Error("Error accepting receipt", "filename", header.Filename, "error", err)
		jsonError(w, "Failed to upload receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, receipt)
}

// handleGetReceipt returns a single receipt
func (s *Server) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.service.GetReceipt(r.PathValue("id"))
	if err != nil {
		jsonError(w, "Receipt not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

// handleGetReceiptFile returns the stored image for a receipt
func (s *Server) handleGetReceiptFile(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetReceiptFile(r.PathValue("id"))
	if err != nil {
		jsonError(w, "File not found", http.StatusNotFound)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handleDeleteReceipt deletes a receipt
func (s *Server) handleDeleteReceipt(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteReceipt(r.PathValue("id")); err != nil {
		if errors.Is(err, ErrNotFound) {
			jsonError(w, "Receipt not found", http.StatusNotFound)
			return
		}
		slog.Error("Error deleting receipt", "error", err)
		jsonError(w, "Error deleting receipt", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Receipt deleted successfully"})
}

// handleGetMode reports the current recognition mode
func (s *Server) handleGetMode(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      s.mode.ModeLabel(),
		"isRealOcr": s.mode.IsReal(),
	})
}

// handleSetMode switches the recognition mode for subsequent uploads
func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UseRealOcr *bool `json:"useRealOcr"`
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UseRealOcr == nil {
		jsonError(w, "useRealOcr must be a boolean", http.StatusBadRequest)
		return
	}

	s.mode.SetMode(*req.UseRealOcr)
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":      s.mode.ModeLabel(),
		"isRealOcr": s.mode.IsReal(),
		"message":   "OCR mode switched to " + s.mode.ModeLabel(),
	})
}
