package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-processor/internal/resumes"
	"resume-processor/internal/shared/server/respond"
	"resume-processor/internal/shared/telemetry"
)

const subscriptionValidationEventType = "Microsoft.EventGrid.SubscriptionValidationEvent"

// Processor runs the processing pipeline for a still-pending resume.
// Push deliveries carry no claim token, so they must never restart a
// failed or completed record.
type Processor interface {
	RunPending(ctx context.Context, id string) (resumes.ProcessedResume, error)
}

// Event is the envelope delivered by the event subscription. Deliveries
// arrive as a JSON array of these.
type Event struct {
	ID        string          `json:"id"`
	EventType string          `json:"eventType"`
	Subject   string          `json:"subject"`
	EventTime string          `json:"eventTime"`
	Data      json.RawMessage `json:"data"`
}

type validationData struct {
	ValidationCode string `json:"validationCode"`
}

type documentData struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Handler receives push deliveries from the event subscription and
// triggers pipeline runs for the referenced resumes.
type Handler struct {
	Processor Processor
}

func NewHandler(processor Processor) *Handler {
	return &Handler{Processor: processor}
}

// Receive handles a webhook delivery. Subscription validation events are
// answered with the validation code; data events trigger asynchronous
// pipeline runs. The endpoint always returns 200 so the event source
// never retries a delivery we have accepted: redelivered events are
// absorbed by the conditional claim.
func (h *Handler) Receive(c *gin.Context) {
	var events []Event
	if err := c.ShouldBindJSON(&events); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "request body must be a JSON array of events", nil)
		return
	}

	for _, ev := range events {
		if ev.EventType == subscriptionValidationEventType {
			var data validationData
			if err := json.Unmarshal(ev.Data, &data); err != nil || data.ValidationCode == "" {
				respond.Error(c, http.StatusBadRequest, "validation_error", "validation event is missing validationCode", nil)
				return
			}
			telemetry.Info("webhook.subscription_validated", map[string]any{
				"request_id": c.GetString("requestId"),
				"event_id":   ev.ID,
			})
			respond.OK(c, gin.H{"validationResponse": data.ValidationCode})
			return
		}
	}

	requestID := c.GetString("requestId")
	accepted := 0
	for _, ev := range events {
		id := resumeIDFromEvent(ev)
		if id == "" {
			telemetry.Warn("webhook.event_skipped", map[string]any{
				"request_id": requestID,
				"event_id":   ev.ID,
				"event_type": ev.EventType,
				"subject":    ev.Subject,
			})
			continue
		}
		accepted++
		go h.runAsync(requestID, id)
	}

	respond.OK(c, gin.H{"received": len(events), "accepted": accepted})
}

func (h *Handler) runAsync(requestID, id string) {
	ctx := telemetry.WithRequestID(context.Background(), requestID)
	if _, err := h.Processor.RunPending(ctx, id); err != nil {
		if errors.Is(err, resumes.ErrClaimConflict) {
			return
		}
		telemetry.Error("webhook.run_failed", map[string]any{
			"request_id": requestID,
			"resume_id":  id,
			"error":      err.Error(),
		})
	}
}

// resumeIDFromEvent pulls the resume id out of an event. Document events
// carry it in data.id; storage events carry a blob URL or subject path
// whose final segment is "<id>.<ext>".
func resumeIDFromEvent(ev Event) string {
	var data documentData
	if err := json.Unmarshal(ev.Data, &data); err == nil {
		if id := strings.TrimSpace(data.ID); id != "" {
			return id
		}
		if id := idFromPath(data.URL); id != "" {
			return id
		}
	}
	return idFromPath(ev.Subject)
}

func idFromPath(p string) string {
	base := path.Base(strings.TrimSpace(p))
	if base == "." || base == "/" || base == "" {
		return ""
	}
	if ext := path.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
