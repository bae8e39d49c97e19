package routes

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"eventapi/payments"
	"eventapi/services"
)

type createPaymentRequest struct {
	EventID    string `json:"event_id"`
	UserID     string `json:"user_id"`
	EventTitle string `json:"event_title"`
	Price      any    `json:"price"`
}

// POST /api/events/create-payment
func (d *deps) createPayment(c *gin.Context) {
	var req createPaymentRequest
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		badRequest(c, "Could not parse request data.")
		return
	}
	if d.Checkout == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Payments are not configured"})
		return
	}

	sess, err := d.Checkout.Create(c.Request.Context(), services.CheckoutInput{
		EventID:    req.EventID,
		UserID:     req.UserID,
		EventTitle: req.EventTitle,
		Price:      req.Price,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": sess.ID})
}

type updateAttendeesRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// POST /api/events/update-attendees/:event_id
func (d *deps) updateAttendees(c *gin.Context) {
	var req updateAttendeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Could not parse request data.")
		return
	}

	reg, err := d.Reconciler.Register(c.Request.Context(), c.Param("event_id"), req.UserID, req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	msg := "Attendee registered successfully"
	if !reg.Applied {
		msg = "User already registered"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":            msg,
		"attendee_count":     reg.AttendeeCount,
		"attendees":          reg.Attendees,
		"already_registered": !reg.Applied,
	})
}

// POST /api/events/webhook
func (d *deps) webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, payments.MaxBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Payload too large"})
		return
	}
	if d.Webhooks == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": payments.ErrVerificationNotConfigured.Error()})
		return
	}

	ev, err := d.Webhooks.Parse(payload, c.GetHeader(payments.SignatureHeader))
	switch {
	case errors.Is(err, payments.ErrVerificationNotConfigured):
		log.Printf("webhook: rejected delivery: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("webhook: rejected delivery: %v", err)
		badRequest(c, "Invalid payload or signature")
		return
	}

	done, ok, err := payments.CompletionFrom(ev)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}
	if err != nil {
		log.Printf("webhook: %s: %v", ev.ID, err)
		badRequest(c, "Missing checkout metadata")
		return
	}

	reg, err := d.Reconciler.ConfirmPayment(c.Request.Context(), done.EventID, done.UserID, done.SessionID)
	if err != nil {
		switch services.KindOf(err) {
		case services.KindInvalidInput:
			log.Printf("webhook: %s: session %s: %v", ev.ID, done.SessionID, err)
			badRequest(c, services.Message(err))
		case services.KindNotFound:
			log.Printf("webhook: %s: session %s not applied: %v", ev.ID, done.SessionID, err)
			c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
		default:
			// non-2xx makes the provider redeliver
			log.Printf("webhook: %s: confirm session %s: %v", ev.ID, done.SessionID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": services.Message(err)})
		}
		return
	}

	if reg.Applied {
		log.Printf("webhook: %s: session %s registered user %s for event %s", ev.ID, done.SessionID, done.UserID, done.EventID)
	} else {
		log.Printf("webhook: %s: session %s already reconciled", ev.ID, done.SessionID)
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "applied": reg.Applied, "attendee_count": reg.AttendeeCount})
}
