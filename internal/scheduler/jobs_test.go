package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventplanner-backend/internal/domain"
	"eventplanner-backend/internal/repository/postgres"
	"eventplanner-backend/pkg/email"
	"eventplanner-backend/pkg/logger"
)

func init() {
	logger.InitDefault()
}

// Fakes

type fakeTaskSource struct {
	rows     []*postgres.ReminderRow
	reminded []int64
}

func (f *fakeTaskSource) ListDueReminders(_ context.Context, _ time.Time, _, _ time.Duration) ([]*postgres.ReminderRow, error) {
	return f.rows, nil
}
func (f *fakeTaskSource) MarkReminded(_ context.Context, taskIDs []int64, _ time.Time) error {
	f.reminded = append(f.reminded, taskIDs...)
	return nil
}

type fakePollSource struct {
	polls    []*domain.Poll
	options  map[int64][]*domain.PollOptionResponse
	notified []int64
}

func (f *fakePollSource) ListClosingUnnotified(_ context.Context, _ time.Time) ([]*domain.Poll, error) {
	return f.polls, nil
}
func (f *fakePollSource) OptionsWithVotes(_ context.Context, pollID int64) ([]*domain.PollOptionResponse, error) {
	return f.options[pollID], nil
}
func (f *fakePollSource) MarkClosingNotified(_ context.Context, pollID int64, _ time.Time) error {
	f.notified = append(f.notified, pollID)
	return nil
}

type fakeEventSource struct {
	events map[int64]*domain.Event
}

func (f *fakeEventSource) GetByID(_ context.Context, eventID int64) (*domain.Event, error) {
	event, ok := f.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return event, nil
}

type fakeParticipantSource struct {
	members map[int64][]int64
}

func (f *fakeParticipantSource) ListUserIDs(_ context.Context, eventID int64) ([]int64, error) {
	return f.members[eventID], nil
}

type fakeUserSource struct {
	users map[int64]*domain.User
}

func (f *fakeUserSource) GetByID(_ context.Context, userID int64) (*domain.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

type sentMail struct {
	to   string
	kind string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(_ context.Context, e *email.Email) error {
	m.sent = append(m.sent, sentMail{e.To, "raw"})
	return nil
}
func (m *recordingMailer) SendConfirmation(_ context.Context, to string, _ *email.ConfirmationData) error {
	m.sent = append(m.sent, sentMail{to, "confirmation"})
	return nil
}
func (m *recordingMailer) SendDeadlineReminder(_ context.Context, to string, _ string, _ []email.ReminderTask) error {
	m.sent = append(m.sent, sentMail{to, "reminder"})
	return nil
}
func (m *recordingMailer) SendPollSummary(_ context.Context, to string, _ string, _ *email.PollSummaryData) error {
	m.sent = append(m.sent, sentMail{to, "poll_summary"})
	return nil
}

func activeUser(id int64, addr string) *domain.User {
	return &domain.User{
		ID: id, Email: addr, IsActive: true,
		EmailNotificationsEnabled: true,
	}
}

func TestSendDeadlineRemindersBundlesPerRecipient(t *testing.T) {
	owner := activeUser(1, "owner@example.com")
	assignee := activeUser(2, "assignee@example.com")
	assigneeID := assignee.ID

	tasks := &fakeTaskSource{rows: []*postgres.ReminderRow{
		{TaskID: 11, Title: "Book venue", DueAt: time.Now().Add(3 * time.Hour), EventTitle: "Launch", ListTitle: "Todo", OwnerUserID: 1, AssigneeUserID: &assigneeID},
		{TaskID: 12, Title: "Send schedule", DueAt: time.Now().Add(5 * time.Hour), EventTitle: "Launch", ListTitle: "Todo", OwnerUserID: 1},
	}}
	users := &fakeUserSource{users: map[int64]*domain.User{1: owner, 2: assignee}}
	mailer := &recordingMailer{}
	jobs := NewJobs(tasks, &fakePollSource{}, &fakeEventSource{}, &fakeParticipantSource{}, users, mailer)

	sent, err := jobs.SendDeadlineReminders(context.Background())
	require.NoError(t, err)

	// Two recipients, one bundled email each.
	assert.Equal(t, 2, sent)
	assert.Len(t, mailer.sent, 2)
	assert.ElementsMatch(t, []int64{11, 12}, tasks.reminded)
}

func TestSendDeadlineRemindersSkipsOptedOut(t *testing.T) {
	optedOut := activeUser(1, "owner@example.com")
	optedOut.EmailNotificationsEnabled = false

	tasks := &fakeTaskSource{rows: []*postgres.ReminderRow{
		{TaskID: 11, Title: "Book venue", DueAt: time.Now(), EventTitle: "Launch", ListTitle: "Todo", OwnerUserID: 1},
	}}
	users := &fakeUserSource{users: map[int64]*domain.User{1: optedOut}}
	mailer := &recordingMailer{}
	jobs := NewJobs(tasks, &fakePollSource{}, &fakeEventSource{}, &fakeParticipantSource{}, users, mailer)

	sent, err := jobs.SendDeadlineReminders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sent)
	assert.Empty(t, mailer.sent)
	assert.Empty(t, tasks.reminded, "unnotified tasks keep their reminder slot")
}

func TestSendPollClosingNotifications(t *testing.T) {
	owner := activeUser(1, "owner@example.com")
	member := activeUser(2, "member@example.com")
	inactive := &domain.User{ID: 3, Email: "inactive@example.com", EmailNotificationsEnabled: true}

	polls := &fakePollSource{
		polls: []*domain.Poll{{ID: 5, EventID: 7, Question: "Where?", IsClosed: true}},
		options: map[int64][]*domain.PollOptionResponse{
			5: {{ID: 1, VotesCount: 2}, {ID: 2, VotesCount: 1}},
		},
	}
	events := &fakeEventSource{events: map[int64]*domain.Event{
		7: {ID: 7, OwnerID: 1, Title: "Launch"},
	}}
	participants := &fakeParticipantSource{members: map[int64][]int64{7: {1, 2, 3}}}
	users := &fakeUserSource{users: map[int64]*domain.User{1: owner, 2: member, 3: inactive}}
	mailer := &recordingMailer{}
	jobs := NewJobs(&fakeTaskSource{}, polls, events, participants, users, mailer)

	sent, err := jobs.SendPollClosingNotifications(context.Background())
	require.NoError(t, err)

	// Owner and member are notified once each; the inactive user is not.
	assert.Equal(t, 2, sent)
	assert.Len(t, mailer.sent, 2)
	for _, mail := range mailer.sent {
		assert.Equal(t, "poll_summary", mail.kind)
	}
	assert.Equal(t, []int64{5}, polls.notified)
}

func TestSchedulerIsolatesFailures(t *testing.T) {
	sched := New(nil)
	ran := false
	require.NoError(t, sched.Add("@hourly", "panicky", func(context.Context) (int, error) {
		panic("boom")
	}))

	// Run the wrapped job body directly; the panic must not escape.
	assert.NotPanics(t, func() {
		sched.run("panicky", func(context.Context) (int, error) {
			panic("boom")
		})
	})

	sched.run("fine", func(context.Context) (int, error) {
		ran = true
		return 0, nil
	})
	assert.True(t, ran)
}
