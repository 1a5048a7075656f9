package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"quiz-progression-service/internal/app"
	"quiz-progression-service/internal/domain"
)

// RESTHandler exposes plain JSON endpoints for clients that do not hold a
// websocket open.
type RESTHandler struct {
	service *app.ProgressionService
}

func NewRESTHandler(service *app.ProgressionService) *RESTHandler {
	return &RESTHandler{service: service}
}

type submitRequest struct {
	UserID         string `json:"userId"`
	UserEmail      string `json:"userEmail"`
	QuestionID     int64  `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
	Daily          bool   `json:"daily"`
}

type errorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// SubmitAttempt handles POST /attempts.
func (h *RESTHandler) SubmitAttempt(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body", Reason: "invalid"})
		return
	}
	if req.UserID == "" || req.UserEmail == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "missing userId or userEmail", Reason: "invalid"})
		return
	}

	result, err := h.service.SubmitAttempt(r.Context(), domain.Submission{
		UserID:         req.UserID,
		UserEmail:      req.UserEmail,
		QuestionID:     req.QuestionID,
		SelectedOption: req.SelectedOption,
		IsDaily:        req.Daily,
	})
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Reason: rejectionReason(err)})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DailyQuestion handles GET /daily.
func (h *RESTHandler) DailyQuestion(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.DailyQuestionInfo(r.Context())
	if err != nil {
		writeJSON(w, statusFor(err), errorResponse{Error: err.Error(), Reason: rejectionReason(err)})
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// statusFor maps the error taxonomy to HTTP status codes: validation
// failures are 400s, domain rejections 409s, retryable conflicts 503s and
// everything else a 500.
func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsDomainConflict(err):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNoDailyQuestion):
		return http.StatusNotFound
	case domain.IsTransient(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}
