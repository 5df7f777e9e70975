package api

import (
	"errors"
	"net/http"

	"github.com/nuwe/site-forms/internal/pkg/httputil"
	"github.com/nuwe/site-forms/internal/pkg/logger"
	"github.com/nuwe/site-forms/internal/submission"
)

// Public messages. Internal error detail never reaches the client; it is
// logged server-side instead.
const (
	msgMethodNotAllowed  = "Method not allowed"
	msgDuplicate         = "此 Email 已經訂閱過囉！"
	msgInternal          = "系統錯誤，請稍後再試。"
	msgRateLimited       = "請求過於頻繁，請稍後再試。"
	msgContactCreated    = "訊息已成功送出！我們會盡快與您聯繫。"
	msgNewsletterCreated = "訂閱成功！感謝您加入 NUWE 家族。"
)

// Submission outcomes, used as the metrics outcome label.
const (
	outcomeCreated          = "created"
	outcomeInvalid          = "invalid"
	outcomeDuplicate        = "duplicate"
	outcomeError            = "error"
	outcomeMethodNotAllowed = "method_not_allowed"
	outcomeRateLimited      = "rate_limited"
)

// respondError maps a submission error onto the envelope and returns the
// outcome it reported. Anything that is not a validation or duplicate error
// becomes a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, flow string, err error) string {
	var ve *submission.ValidationError
	switch {
	case errors.As(err, &ve):
		msg := ve.Message
		if msg == "" {
			msg = submission.DefaultValidationMessage
		}
		httputil.Fail(w, r, http.StatusBadRequest, msg)
		return outcomeInvalid

	case errors.Is(err, submission.ErrDuplicate):
		httputil.Fail(w, r, http.StatusBadRequest, msgDuplicate)
		return outcomeDuplicate

	default:
		respondInternal(w, r, flow, err)
		return outcomeError
	}
}

// respondInternal logs the full error and writes the generic 500 envelope.
func respondInternal(w http.ResponseWriter, r *http.Request, flow string, err error) {
	logger.Error("submission failed",
		"flow", flow,
		"path", r.URL.Path,
		"request_id", requestID(r),
		"error", err,
	)
	httputil.Fail(w, r, http.StatusInternalServerError, msgInternal)
}
