package handlers

import (
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"

	"github.com/eladlevy/leadgate/internal/infra/http/middleware"
	"github.com/eladlevy/leadgate/internal/infra/queue"
)

// PubSubHandler terminates the provider's push channel. Delivery is
// at-least-once: the handler always acknowledges with 200 — a non-ack only
// triggers a redelivery storm, never recovery — and hands the real work to
// the queue without waiting for it.
type PubSubHandler struct {
	Producer queue.NotificationProducerInterface
}

func NewPubSubHandler(producer queue.NotificationProducerInterface) *PubSubHandler {
	return &PubSubHandler{Producer: producer}
}

type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
}

type pushNotification struct {
	EmailAddress string      `json:"emailAddress"`
	HistoryID    json.Number `json:"historyId"`
}

func (h *PubSubHandler) Handle(w http.ResponseWriter, r *http.Request) {
	// Verification handshake: echo the challenge back verbatim.
	if token := r.URL.Query().Get("validationToken"); token != "" {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(token))
		return
	}

	var envelope pushEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		log.Printf("⚠️ [PUSH] bad envelope, acking anyway: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		log.Printf("⚠️ [PUSH] bad base64 payload, acking anyway: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	var notification pushNotification
	if err := json.Unmarshal(decoded, &notification); err != nil || notification.EmailAddress == "" {
		log.Printf("⚠️ [PUSH] bad notification JSON, acking anyway: %v", err)
		w.WriteHeader(http.StatusOK)
		return
	}

	// raw-notification audit line
	log.Printf("🔔 [PUSH] msg=%s account=%s history=%s",
		envelope.Message.MessageID, notification.EmailAddress, notification.HistoryID.String())

	payload := queue.NotificationPayload{
		EmailAddress: notification.EmailAddress,
		HistoryID:    notification.HistoryID.String(),
	}
	if err := h.Producer.PublishNotification(r.Context(), payload); err != nil {
		// Still ack: the provider will redeliver and the ledger makes the
		// replay harmless.
		log.Printf("❌ [PUSH] queue publish failed: %v", err)
		middleware.RecordIntegrationError("rabbitmq")
	}

	w.WriteHeader(http.StatusOK)
}
