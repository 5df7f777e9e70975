package submission

import (
	"context"
	"errors"
	"time"

	"github.com/nuwe/site-forms/internal/domain"
	"github.com/nuwe/site-forms/internal/notify"
	"github.com/nuwe/site-forms/internal/pkg/logger"
)

// ContactService stores contact messages and notifies the operator.
// It is safe for concurrent use.
type ContactService struct {
	repo     ContactRepository
	notifier Notifier
}

// NewContactService creates a contact service. notifier may be nil, in which
// case every notification is reported as skipped.
func NewContactService(repo ContactRepository, notifier Notifier) *ContactService {
	return &ContactService{repo: repo, notifier: notifier}
}

// Submit persists c and then attempts the notification. The returned error is
// nil or a *StoreError; the notification result never changes it.
func (s *ContactService) Submit(ctx context.Context, c *domain.ContactSubmission) (notify.Result, error) {
	if err := s.repo.InsertContact(ctx, c); err != nil {
		return notify.Result{}, &StoreError{Op: "insert contact message", Err: err}
	}

	res := notify.Result{Status: notify.StatusSkipped, Reason: "no notifier"}
	if s.notifier != nil {
		res = s.notifier.NotifyContact(ctx, *c)
	}

	switch res.Status {
	case notify.StatusSent:
		logger.Info("contact notification sent", "contact_id", c.ID, "message_id", res.MessageID)
	case notify.StatusSkipped:
		logger.Info("contact notification skipped", "contact_id", c.ID, "reason", res.Reason)
	default:
		logger.Warn("contact notification failed", "contact_id", c.ID, "reason", res.Reason)
	}
	return res, nil
}

// Lock wait defaults for NewsletterService.
const (
	DefaultLockWait  = 2 * time.Second
	lockPollInterval = 50 * time.Millisecond
)

// NewsletterService subscribes addresses to the newsletter, rejecting
// addresses that are already subscribed. It is safe for concurrent use.
type NewsletterService struct {
	repo     NewsletterRepository
	locker   KeyLocker
	lockWait time.Duration
}

// NewNewsletterService creates a newsletter service. locker may be nil; the
// store's unique constraint still rejects concurrent duplicates.
func NewNewsletterService(repo NewsletterRepository, locker KeyLocker) *NewsletterService {
	return &NewsletterService{repo: repo, locker: locker, lockWait: DefaultLockWait}
}

// WithLockWait sets how long Subscribe waits for another request holding the
// same address before going ahead without the lock.
func (svc *NewsletterService) WithLockWait(d time.Duration) *NewsletterService {
	svc.lockWait = d
	return svc
}

// Subscribe stores s unless its address is already subscribed. It returns
// nil, ErrDuplicate, or a *StoreError. A held lock never decides the outcome
// on its own: the store is always consulted, since the holder may still fail.
func (svc *NewsletterService) Subscribe(ctx context.Context, s *domain.NewsletterSubscription) error {
	if svc.locker != nil {
		release, err := svc.acquire(ctx, "newsletter:"+s.Email)
		switch {
		case err != nil && ctx.Err() != nil:
			return &StoreError{Op: "wait for subscription lock", Err: err}
		case err != nil:
			logger.Warn("newsletter lock unavailable, relying on unique constraint", "email", s.Email, "error", err)
		case release == nil:
			logger.Warn("newsletter lock still held, relying on unique constraint", "email", s.Email, "waited", svc.lockWait)
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					logger.Warn("newsletter lock release failed", "email", s.Email, "error", err)
				}
			}()
		}
	}

	exists, err := svc.repo.SubscriptionExists(ctx, s.Email)
	if err != nil {
		return &StoreError{Op: "check subscription", Err: err}
	}
	if exists {
		return ErrDuplicate
	}

	if err := svc.repo.InsertSubscription(ctx, s); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return ErrDuplicate
		}
		return &StoreError{Op: "insert subscription", Err: err}
	}
	return nil
}

// acquire polls for key until it is taken or lockWait elapses. A nil release
// with a nil error means the lock stayed held for the whole wait.
func (svc *NewsletterService) acquire(ctx context.Context, key string) (func(context.Context) error, error) {
	deadline := time.Now().Add(svc.lockWait)
	for {
		release, ok, err := svc.locker.TryLock(ctx, key)
		if err != nil {
			return nil, err
		}
		if ok {
			return release, nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}
		t := time.NewTimer(lockPollInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil, ctx.Err()
		case <-t.C:
		}
	}
}
