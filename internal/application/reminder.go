package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// SchedulerConfig carries the timing knobs of the reminder scheduler.
type SchedulerConfig struct {
	// SweepInterval is the pause between sweeps.
	SweepInterval time.Duration
	// ReminderHour is the UTC hour at which day-granular reminders fire.
	ReminderHour int
	// OverdueCooldown is the minimum gap between overdue notices for the
	// same reservation.
	OverdueCooldown time.Duration
	// EscalationDelay is how long past the end an overdue reservation is
	// escalated to the oversight channel.
	EscalationDelay time.Duration
}

// Scheduler periodically sweeps active reservations and sends due reminders,
// overdue notices and escalations. Every send is claimed in the same
// transaction that delivers it, so a reminder that reached its recipient is
// never repeated and a failed delivery is retried on the next sweep.
type Scheduler struct {
	store         Store
	notifier      Notifier
	waitlists     WaitlistServer
	now           func() time.Time
	logger        *slog.Logger
	notifyTimeout time.Duration
	config        SchedulerConfig
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	store Store,
	notifier Notifier,
	waitlists WaitlistServer,
	now func() time.Time,
	logger *slog.Logger,
	notifyTimeout time.Duration,
	config SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		store:         store,
		notifier:      notifier,
		waitlists:     waitlists,
		now:           now,
		logger:        logger,
		notifyTimeout: notifyTimeout,
		config:        config,
	}
}

// Run sweeps immediately and then on every tick until the context is
// cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	logger := loggerFromContext(ctx, s.logger)
	logger.Info("reminder scheduler started",
		slog.Duration("sweep_interval", s.config.SweepInterval))

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		if err := s.Sweep(ctx); err != nil {
			logger.Error("sweep failed", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			logger.Info("reminder scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep walks every active reservation once. Per-reservation failures are
// logged and do not stop the walk; only listing failures abort the sweep.
func (s *Scheduler) Sweep(ctx context.Context) error {
	logger := loggerFromContext(ctx, s.logger)

	reservations, err := s.store.ListActiveReservations(ctx)
	if err != nil {
		return fmt.Errorf("list active reservations: %w", err)
	}

	now := s.now().UTC()
	for _, reservation := range reservations {
		if err := s.sweepReservation(ctx, reservation, now); err != nil {
			logger.Warn("reservation sweep step failed",
				slog.String("reservation_id", reservation.ID),
				slog.String("error_kind", ErrorKind(err)),
				slog.String("error", err.Error()))
		}
	}

	s.reconcileWaitlists(ctx)
	return nil
}

func (s *Scheduler) sweepReservation(ctx context.Context, reservation persistence.Reservation, now time.Time) error {
	class, err := ParseDurationClass(reservation.Duration)
	if err != nil {
		return fmt.Errorf("%w: reservation %s has unknown duration %q",
			ErrIntegrityViolation, reservation.ID, reservation.Duration)
	}

	for _, due := range dueMilestones(class, reservation.Start, reservation.End, now, s.config.ReminderHour) {
		if err := s.sendMilestone(ctx, reservation, due, now); err != nil {
			return err
		}
	}

	if now.After(reservation.End) {
		if err := s.sendOverdueNotice(ctx, reservation, now); err != nil {
			return err
		}
		if !reservation.OverdueEscalated && !now.Before(reservation.End.Add(s.config.EscalationDelay)) {
			if err := s.sendEscalation(ctx, reservation, now); err != nil {
				return err
			}
		}
	}
	return nil
}

// sendMilestone claims the milestone and delivers the reminder in one
// transaction. A lost claim means another sweep already sent it.
func (s *Scheduler) sendMilestone(ctx context.Context, reservation persistence.Reservation, due milestone, now time.Time) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		claimed, err := s.store.ClaimMilestone(ctx, reservation.ID, due.Key, now)
		if err != nil {
			return fmt.Errorf("claim milestone %s: %w", due.Key, err)
		}
		if !claimed {
			return nil
		}

		notification := Notification{
			Recipient:   HolderRecipient(reservation.HolderID),
			Text:        fmt.Sprintf("Reminder: %q is %s.", reservation.Title, due.Text),
			Affordances: reminderAffordances(reservation),
		}
		if err := s.notify(ctx, notification); err != nil {
			return fmt.Errorf("%w: milestone %s for reservation %s: %v",
				ErrReminderDeliveryFailed, due.Key, reservation.ID, err)
		}

		loggerFromContext(ctx, s.logger).Info("reminder sent",
			slog.String("reservation_id", reservation.ID),
			slog.String("milestone", due.Key))
		return nil
	})
}

// sendOverdueNotice repeats while the reservation stays overdue, but never
// more often than the cooldown allows.
func (s *Scheduler) sendOverdueNotice(ctx context.Context, reservation persistence.Reservation, now time.Time) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		claimed, err := s.store.ClaimOverdueNotice(ctx, reservation.ID, now, s.config.OverdueCooldown)
		if err != nil {
			return fmt.Errorf("claim overdue notice: %w", err)
		}
		if !claimed {
			return nil
		}

		notification := Notification{
			Recipient: HolderRecipient(reservation.HolderID),
			Text: fmt.Sprintf("%q was due back on %s. Please return it.",
				reservation.Title, reservation.End.Format("2006-01-02 15:04 MST")),
			Affordances: reminderAffordances(reservation),
		}
		if err := s.notify(ctx, notification); err != nil {
			return fmt.Errorf("%w: overdue notice for reservation %s: %v",
				ErrReminderDeliveryFailed, reservation.ID, err)
		}

		loggerFromContext(ctx, s.logger).Info("overdue notice sent",
			slog.String("reservation_id", reservation.ID))
		return nil
	})
}

// sendEscalation happens at most once per reservation.
func (s *Scheduler) sendEscalation(ctx context.Context, reservation persistence.Reservation, now time.Time) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		claimed, err := s.store.ClaimEscalation(ctx, reservation.ID)
		if err != nil {
			return fmt.Errorf("claim escalation: %w", err)
		}
		if !claimed {
			return nil
		}

		notification := Notification{
			Recipient: OversightRecipient(),
			Text: fmt.Sprintf("Overdue: %s has not returned %q (copy %d), due %s.",
				reservation.HolderID, reservation.Title, reservation.CopyID,
				reservation.End.Format("2006-01-02 15:04 MST")),
		}
		if err := s.notify(ctx, notification); err != nil {
			return fmt.Errorf("%w: escalation for reservation %s: %v",
				ErrReminderDeliveryFailed, reservation.ID, err)
		}

		loggerFromContext(ctx, s.logger).Info("overdue escalation sent",
			slog.String("reservation_id", reservation.ID),
			slog.String("holder_id", reservation.HolderID))
		return nil
	})
}

// reconcileWaitlists catches waiters whose offer was missed, for example
// when a copy was freed while the process was down.
func (s *Scheduler) reconcileWaitlists(ctx context.Context) {
	logger := loggerFromContext(ctx, s.logger)

	queues, err := s.store.QueuesWithWaiters(ctx)
	if err != nil {
		logger.Warn("waitlist reconciliation failed", slog.String("error", err.Error()))
		return
	}
	for _, queue := range queues {
		if _, err := s.waitlists.ServeWaitlist(ctx, queue.Title, queue.Location); err != nil {
			logger.Warn("waitlist reconciliation offer failed",
				slog.String("title", queue.Title),
				slog.String("location", queue.Location),
				slog.String("error_kind", ErrorKind(err)))
		}
	}
}

func (s *Scheduler) notify(ctx context.Context, notification Notification) error {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	return s.notifier.Notify(notifyCtx, notification)
}

func reminderAffordances(reservation persistence.Reservation) []Affordance {
	affordances := []Affordance{{
		Action:        AffordanceReturn,
		ReservationID: reservation.ID,
		Title:         reservation.Title,
		Location:      reservation.Location,
	}}
	if !reservation.ExtensionUsed {
		affordances = append(affordances, Affordance{
			Action:        AffordanceExtend,
			ReservationID: reservation.ID,
			Title:         reservation.Title,
			Location:      reservation.Location,
		})
	}
	return affordances
}

type milestone struct {
	Key  string
	Text string
}

// dueMilestones returns the reminder milestones due right now for a
// reservation of the given class. Sub-day classes use a window before the
// end; day-granular classes fire on their anchor day once the reminder hour
// has passed. A milestone never comes due again on a later day, so one left
// unclaimed by an outage is skipped rather than sent late.
func dueMilestones(class DurationClass, start, end, now time.Time, reminderHour int) []milestone {
	var due []milestone
	onDay := func(anchor time.Time) bool {
		return sameDay(now, anchor) && now.Hour() >= reminderHour
	}

	switch class {
	case OneHour:
		if !now.Before(end.Add(-15*time.Minute)) && now.Before(end) {
			due = append(due, milestone{Key: "due_15m", Text: "due in 15 minutes"})
		}
	case OneWeek:
		if onDay(start.AddDate(0, 0, 5)) {
			due = append(due, milestone{Key: "due_1d", Text: "due tomorrow"})
		}
		if onDay(start.AddDate(0, 0, 6)) {
			due = append(due, milestone{Key: "due_0d", Text: "due today"})
		}
	case OneMonth:
		if onDay(start.AddDate(0, 0, 21)) {
			due = append(due, milestone{Key: "due_7d", Text: "due in a week"})
		}
		if onDay(start.AddDate(0, 0, 27)) {
			due = append(due, milestone{Key: "due_0d", Text: "due today"})
		}
	case ThreeMonths:
		if onDay(end.AddDate(0, 0, -7)) {
			due = append(due, milestone{Key: "due_7d", Text: "due in a week"})
		}
		if onDay(end.AddDate(0, 0, -1)) {
			due = append(due, milestone{Key: "due_1d", Text: "due tomorrow"})
		}
	case SixMonths:
		if onDay(end.AddDate(0, 0, -30)) {
			due = append(due, milestone{Key: "due_30d", Text: "due in a month"})
		}
		if onDay(end.AddDate(0, 0, -7)) {
			due = append(due, milestone{Key: "due_7d", Text: "due in a week"})
		}
		if onDay(end.AddDate(0, 0, -1)) {
			due = append(due, milestone{Key: "due_1d", Text: "due tomorrow"})
		}
	}
	return due
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
