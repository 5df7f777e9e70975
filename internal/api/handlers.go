package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/nuwe/site-forms/internal/domain"
	"github.com/nuwe/site-forms/internal/notify"
	"github.com/nuwe/site-forms/internal/pkg/httputil"
	"github.com/nuwe/site-forms/internal/submission"
)

// maxBodyBytes caps form payloads.
const maxBodyBytes = 64 << 10

// ContactSubmitter stores a contact message and reports the notification.
type ContactSubmitter interface {
	Submit(ctx context.Context, c *domain.ContactSubmission) (notify.Result, error)
}

// Subscriber stores a newsletter subscription.
type Subscriber interface {
	Subscribe(ctx context.Context, s *domain.NewsletterSubscription) error
}

// Handlers serves the two form endpoints.
type Handlers struct {
	contacts   ContactSubmitter
	newsletter Subscriber
	metrics    *Metrics
}

// NewHandlers creates form handlers. metrics may be nil.
func NewHandlers(contacts ContactSubmitter, newsletter Subscriber, metrics *Metrics) *Handlers {
	return &Handlers{contacts: contacts, newsletter: newsletter, metrics: metrics}
}

// HandleContact accepts a contact form.
//
//	POST /contact
func (h *Handlers) HandleContact(w http.ResponseWriter, r *http.Request) {
	const flow = "contact"
	if r.Method != http.MethodPost {
		httputil.Fail(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		h.metrics.observeSubmission(flow, outcomeMethodNotAllowed)
		return
	}

	c, err := submission.ParseContact(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.observeSubmission(flow, respondError(w, r, flow, err))
		return
	}

	res, err := h.contacts.Submit(r.Context(), &c)
	if err != nil {
		h.metrics.observeSubmission(flow, respondError(w, r, flow, err))
		return
	}
	h.metrics.observeNotification(res.Status)

	httputil.Created(w, r, msgContactCreated)
	h.metrics.observeSubmission(flow, outcomeCreated)
}

// HandleNewsletter accepts a newsletter subscription.
//
//	POST /newsletter
func (h *Handlers) HandleNewsletter(w http.ResponseWriter, r *http.Request) {
	const flow = "newsletter"
	if r.Method != http.MethodPost {
		httputil.Fail(w, r, http.StatusMethodNotAllowed, msgMethodNotAllowed)
		h.metrics.observeSubmission(flow, outcomeMethodNotAllowed)
		return
	}

	s, err := submission.ParseNewsletter(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.metrics.observeSubmission(flow, respondError(w, r, flow, err))
		return
	}

	if err := h.newsletter.Subscribe(r.Context(), &s); err != nil {
		h.metrics.observeSubmission(flow, respondError(w, r, flow, err))
		return
	}

	httputil.Created(w, r, msgNewsletterCreated)
	h.metrics.observeSubmission(flow, outcomeCreated)
}

func requestID(r *http.Request) string {
	return middleware.GetReqID(r.Context())
}
