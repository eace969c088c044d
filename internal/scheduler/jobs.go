package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
	"eventplanner-backend/pkg/email"
	"eventplanner-backend/pkg/logger"
)

// Deadline reminder windows
const (
	ReminderLookahead = 24 * time.Hour
	ReminderCooldown  = 12 * time.Hour
)

// TaskSource supplies the reminder queries
type TaskSource interface {
	ListDueReminders(ctx context.Context, now time.Time, lookahead, cooldown time.Duration) ([]*postgres.ReminderRow, error)
	MarkReminded(ctx context.Context, taskIDs []int64, now time.Time) error
}

// PollSource supplies the closing-notification queries
type PollSource interface {
	ListClosingUnnotified(ctx context.Context, now time.Time) ([]*domain.Poll, error)
	OptionsWithVotes(ctx context.Context, pollID int64) ([]*domain.PollOptionResponse, error)
	MarkClosingNotified(ctx context.Context, pollID int64, now time.Time) error
}

// EventSource resolves events for notification context
type EventSource interface {
	GetByID(ctx context.Context, eventID int64) (*domain.Event, error)
}

// ParticipantSource lists the members of an event
type ParticipantSource interface {
	ListUserIDs(ctx context.Context, eventID int64) ([]int64, error)
}

// UserSource resolves recipients
type UserSource interface {
	GetByID(ctx context.Context, userID int64) (*domain.User, error)
}

// Jobs bundles the periodic tasks over the store
type Jobs struct {
	tasks        TaskSource
	polls        PollSource
	events       EventSource
	participants ParticipantSource
	users        UserSource
	mailer       email.Sender
	now          func() time.Time
}

// NewJobs creates the job bundle
func NewJobs(tasks TaskSource, polls PollSource, events EventSource, participants ParticipantSource, users UserSource, mailer email.Sender) *Jobs {
	return &Jobs{
		tasks:        tasks,
		polls:        polls,
		events:       events,
		participants: participants,
		users:        users,
		mailer:       mailer,
		now:          time.Now,
	}
}

// notifiable loads a user and checks the notification opt-in gate
func (j *Jobs) notifiable(ctx context.Context, userID int64) *domain.User {
	user, err := j.users.GetByID(ctx, userID)
	if err != nil || !user.CanNotify() {
		return nil
	}
	return user
}

// SendDeadlineReminders emails everyone whose open tasks come due within the
// next 24 hours. One email per recipient bundles all their tasks. The
// idempotency pair (sent_at, for_due_at) keeps repeated runs quiet.
func (j *Jobs) SendDeadlineReminders(ctx context.Context) (int, error) {
	now := j.now()
	rows, err := j.tasks.ListDueReminders(ctx, now, ReminderLookahead, ReminderCooldown)
	if err != nil {
		return 0, err
	}

	type bundle struct {
		user  *domain.User
		tasks []email.ReminderTask
	}
	byRecipient := make(map[int64]*bundle)
	remindedIDs := make([]int64, 0, len(rows))

	for _, row := range rows {
		recipients := make([]*domain.User, 0, 2)
		if row.AssigneeUserID != nil {
			if user := j.notifiable(ctx, *row.AssigneeUserID); user != nil {
				recipients = append(recipients, user)
			}
		}
		if owner := j.notifiable(ctx, row.OwnerUserID); owner != nil {
			duplicate := false
			for _, existing := range recipients {
				if existing.ID == owner.ID {
					duplicate = true
					break
				}
			}
			if !duplicate {
				recipients = append(recipients, owner)
			}
		}
		if len(recipients) == 0 {
			continue
		}

		remindedIDs = append(remindedIDs, row.TaskID)
		task := email.ReminderTask{
			Title:      row.Title,
			DueAt:      row.DueAt,
			EventTitle: row.EventTitle,
			ListTitle:  row.ListTitle,
		}
		for _, user := range recipients {
			entry, ok := byRecipient[user.ID]
			if !ok {
				entry = &bundle{user: user}
				byRecipient[user.ID] = entry
			}
			entry.tasks = append(entry.tasks, task)
		}
	}

	if err := j.tasks.MarkReminded(ctx, remindedIDs, now); err != nil {
		return 0, err
	}

	sent := 0
	for _, entry := range byRecipient {
		if err := j.mailer.SendDeadlineReminder(ctx, entry.user.Email, entry.user.DisplayName(), entry.tasks); err != nil {
			logger.Warn("Failed to send deadline reminder",
				zap.Int64("user_id", entry.user.ID),
				zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// SendPollClosingNotifications emails a results summary for every poll whose
// voting has closed and was not yet announced for its current end_at.
func (j *Jobs) SendPollClosingNotifications(ctx context.Context) (int, error) {
	now := j.now()
	polls, err := j.polls.ListClosingUnnotified(ctx, now)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, poll := range polls {
		event, err := j.events.GetByID(ctx, poll.EventID)
		if err != nil {
			logger.Warn("Skipping poll with missing event",
				zap.Int64("poll_id", poll.ID),
				zap.Error(err))
			continue
		}

		recipients := make(map[int64]*domain.User)
		if owner := j.notifiable(ctx, event.OwnerID); owner != nil {
			recipients[owner.ID] = owner
		}
		userIDs, err := j.participants.ListUserIDs(ctx, poll.EventID)
		if err != nil {
			return sent, err
		}
		for _, userID := range userIDs {
			if _, ok := recipients[userID]; ok {
				continue
			}
			if user := j.notifiable(ctx, userID); user != nil {
				recipients[user.ID] = user
			}
		}
		if len(recipients) == 0 {
			continue
		}

		options, err := j.polls.OptionsWithVotes(ctx, poll.ID)
		if err != nil {
			return sent, err
		}
		summary := &email.PollSummaryData{
			Question:   poll.Question,
			EventTitle: event.Title,
			TotalVotes: domain.TotalVotes(options),
		}
		for _, option := range options {
			summary.Options = append(summary.Options, email.PollSummaryOption{
				Label: option.DisplayLabel(),
				Votes: option.VotesCount,
			})
		}

		for _, user := range recipients {
			if err := j.mailer.SendPollSummary(ctx, user.Email, user.DisplayName(), summary); err != nil {
				logger.Warn("Failed to send poll summary",
					zap.Int64("poll_id", poll.ID),
					zap.Int64("user_id", user.ID),
					zap.Error(err))
				continue
			}
			sent++
		}

		if err := j.polls.MarkClosingNotified(ctx, poll.ID, now); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// SendDailyDigest is the optional daily digest job. It sends no email and
// always reports zero messages dispatched.
func (j *Jobs) SendDailyDigest(ctx context.Context) (int, error) {
	return 0, nil
}
