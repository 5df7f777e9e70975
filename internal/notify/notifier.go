// Package notify sends the operator notification for new contact messages.
//
// Delivery is best-effort: NotifyContact never returns an error. Callers get
// a Result describing what happened and decide what to log.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/nuwe/site-forms/internal/config"
	"github.com/nuwe/site-forms/internal/domain"
)

// Status is the outcome of one notification attempt.
type Status int

const (
	StatusSent Status = iota
	StatusSkipped
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusSkipped:
		return "skipped"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes a notification attempt. Reason is set for Skipped and Failed.
type Result struct {
	Status    Status
	MessageID string
	Reason    string
}

// EmailAPI is the subset of the SES v2 client the notifier uses.
type EmailAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier emails the site operator about new contact submissions.
type Notifier struct {
	client   EmailAPI
	from     string
	to       string
	timeout  time.Duration
	template *Template
}

// New creates a Notifier from mail configuration. Without SES credentials the
// notifier has no client and every attempt is skipped.
func New(ctx context.Context, cfg config.MailConfig) (*Notifier, error) {
	var client EmailAPI
	if cfg.Enabled() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		)
		if err != nil {
			return nil, fmt.Errorf("loading AWS config: %w", err)
		}
		client = sesv2.NewFromConfig(awsCfg)
	}
	return NewWithClient(client, cfg), nil
}

// NewWithClient creates a Notifier around an existing client, which may be nil.
func NewWithClient(client EmailAPI, cfg config.MailConfig) *Notifier {
	return &Notifier{
		client:   client,
		from:     cfg.From,
		to:       cfg.To,
		timeout:  cfg.Timeout(),
		template: NewTemplate(),
	}
}

// NotifyContact sends the contact notification. It must only be called once
// the submission has been stored.
func (n *Notifier) NotifyContact(ctx context.Context, sub domain.ContactSubmission) Result {
	if n == nil || n.client == nil {
		return Result{Status: StatusSkipped, Reason: "mail provider not configured"}
	}

	body, err := n.template.RenderContact(sub)
	if err != nil {
		return Result{Status: StatusFailed, Reason: err.Error()}
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	out, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination:      &types.Destination{ToAddresses: []string{n.to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(ContactSubject(sub)), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
				},
			},
		},
		ReplyToAddresses: []string{sub.Email},
	})
	if err != nil {
		return Result{Status: StatusFailed, Reason: err.Error()}
	}

	return Result{Status: StatusSent, MessageID: aws.ToString(out.MessageId)}
}

// ContactSubject is the subject line of the operator notification.
func ContactSubject(sub domain.ContactSubmission) string {
	return "[NUWE 網站] 新訊息：" + sub.Subject
}
