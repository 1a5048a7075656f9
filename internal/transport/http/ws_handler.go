package http

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"quiz-progression-service/internal/app"
	"quiz-progression-service/internal/domain"
)

// WSHandler streams a user's progression over a websocket: a stats snapshot
// on connect, then a progress event after every recorded submission.
type WSHandler struct {
	service  *app.ProgressionService
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.ProgressionService) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type submitPayload struct {
	QuestionID     int64  `json:"questionId"`
	SelectedOption string `json:"selectedOption"`
	Daily          bool   `json:"daily"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Reason  string `json:"reason"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the
// progression use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	userEmail := r.URL.Query().Get("email")
	if userID == "" || userEmail == "" {
		http.Error(w, "missing userId or email", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	stats, err := h.service.Join(r.Context(), userID, userEmail)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel, err := h.service.Subscribe(r.Context(), userID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()
	defer h.service.Leave(r.Context(), userID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "progress", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "stats", Payload: stats}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "submit":
			var payload submitPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid submit payload"}}
				continue
			}
			result, err := h.service.SubmitAttempt(r.Context(), domain.Submission{
				UserID:         userID,
				UserEmail:      userEmail,
				QuestionID:     payload.QuestionID,
				SelectedOption: payload.SelectedOption,
				IsDaily:        payload.Daily,
			})
			if err != nil {
				send <- outboundMessage[any]{Type: "rejected", Payload: errorPayload{
					Message: err.Error(),
					Reason:  rejectionReason(err),
				}}
				continue
			}
			send <- outboundMessage[any]{Type: "result", Payload: result}
		case "daily":
			info, err := h.service.DailyQuestionInfo(r.Context())
			if err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage[any]{Type: "dailyQuestion", Payload: info}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

// rejectionReason maps the error taxonomy to machine-distinguishable codes
// so clients can tell a rejection from a fault.
func rejectionReason(err error) string {
	switch {
	case domain.IsValidation(err):
		return "invalid"
	case domain.IsDomainConflict(err):
		return "conflict"
	case domain.IsTransient(err):
		return "retry"
	default:
		return "error"
	}
}
