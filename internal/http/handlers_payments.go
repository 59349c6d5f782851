package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"kashela/internal/auth"
	"kashela/internal/payments"
	"kashela/internal/uploads"
)

type payRequest struct {
	PhoneNumber string          `json:"phone_number"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type payResponse struct {
	Message           string `json:"message"`
	TransactionID     string `json:"transaction_id"`
	Status            string `json:"status"`
	MockMessage       string `json:"mock_message,omitempty"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request, u auth.User) {
	var req payRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.PhoneNumber == "" {
		writeServiceError(w, r, badRequest("phone_number is required"))
		return
	}
	p, res, err := s.deps.Payments.Pay(r.Context(), u.ID, payments.PayRequest{
		PhoneNumber: req.PhoneNumber,
		Amount:      req.Amount,
		Description: sanitizeInput(req.Description),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := payResponse{
		Message:           "Payment initiated successfully",
		TransactionID:     p.TransactionID,
		Status:            string(p.Status),
		CheckoutRequestID: p.CheckoutRequestID,
	}
	if p.Mode == "mock" {
		resp.MockMessage = res.Message
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePaymentStatus(w http.ResponseWriter, r *http.Request, u auth.User) {
	id := r.PathValue("id")
	status, err := s.deps.Payments.Status(r.Context(), u.ID, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_id": id,
		"status":         status,
		"mock":           s.deps.Payments.Mode() == "mock",
	})
}

func (s *Server) handleUploadAudio(w http.ResponseWriter, r *http.Request, u auth.User) {
	s.handleUpload(w, r, u, uploads.KindAudio, "Audio uploaded successfully")
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request, u auth.User) {
	s.handleUpload(w, r, u, uploads.KindImage, "Image uploaded successfully")
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request, u auth.User, kind uploads.Kind, message string) {
	up, cleanup, err := readUpload(w, r, s.deps.MaxUploadSize)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	defer cleanup()

	name, _, err := s.deps.Entries.SaveUpload(r.Context(), u.ID, kind, up)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message, "filename": name})
}
