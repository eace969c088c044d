package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestLeaderOptionIDs(t *testing.T) {
	tests := []struct {
		name    string
		options []*PollOptionResponse
		want    []int64
	}{
		{
			"no votes means no leaders",
			[]*PollOptionResponse{{ID: 1}, {ID: 2}},
			[]int64{},
		},
		{
			"single leader",
			[]*PollOptionResponse{{ID: 1, VotesCount: 3}, {ID: 2, VotesCount: 1}},
			[]int64{1},
		},
		{
			"tie at positive max",
			[]*PollOptionResponse{{ID: 1, VotesCount: 2}, {ID: 2, VotesCount: 2}, {ID: 3, VotesCount: 1}},
			[]int64{1, 2},
		},
		{
			"zero-count options never lead",
			[]*PollOptionResponse{{ID: 1}, {ID: 2, VotesCount: 1}},
			[]int64{2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LeaderOptionIDs(tt.options))
		})
	}
}

func TestTotalVotes(t *testing.T) {
	options := []*PollOptionResponse{
		{ID: 1, VotesCount: 2},
		{ID: 2, VotesCount: 3},
	}
	assert.Equal(t, 5, TotalVotes(options))
	assert.Equal(t, 0, TotalVotes(nil))
}

func TestIsVotingClosed(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	open := Poll{EndAt: &future}
	assert.False(t, open.IsVotingClosed(now))

	expired := Poll{EndAt: &past}
	assert.True(t, expired.IsVotingClosed(now))

	closed := Poll{IsClosed: true}
	assert.True(t, closed.IsVotingClosed(now))

	endless := Poll{}
	assert.False(t, endless.IsVotingClosed(now))
}

func TestNormalizeOptionsLabels(t *testing.T) {
	create := PollCreate{
		Type: PollTypeCustom,
		Options: []PollOptionCreate{
			{Label: "  Pizza "},
			{Label: "Sushi"},
		},
	}
	options, err := create.NormalizeOptions()
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "Pizza", options[0].Label)

	duplicate := PollCreate{
		Type: PollTypePlace,
		Options: []PollOptionCreate{
			{Label: "Park"},
			{Label: " Park "},
		},
	}
	_, err = duplicate.NormalizeOptions()
	assert.ErrorIs(t, err, ErrDuplicateOptions)

	empty := PollCreate{
		Type: PollTypeCustom,
		Options: []PollOptionCreate{
			{Label: "Something"},
			{Label: "   "},
		},
	}
	_, err = empty.NormalizeOptions()
	assert.ErrorIs(t, err, ErrOptionLabelRequired)

	tooFew := PollCreate{
		Type:    PollTypeCustom,
		Options: []PollOptionCreate{{Label: "Only"}},
	}
	_, err = tooFew.NormalizeOptions()
	assert.ErrorIs(t, err, ErrInsufficientOptions)
}

func TestNormalizeOptionsDates(t *testing.T) {
	day1 := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)

	create := PollCreate{
		Type: PollTypeDate,
		Options: []PollOptionCreate{
			{DateValue: &day1},
			{DateValue: &day2},
		},
	}
	options, err := create.NormalizeOptions()
	require.NoError(t, err)
	assert.Len(t, options, 2)

	duplicated := PollCreate{
		Type: PollTypeDate,
		Options: []PollOptionCreate{
			{DateValue: &day1},
			{DateValue: &day1},
		},
	}
	_, err = duplicated.NormalizeOptions()
	assert.ErrorIs(t, err, ErrDuplicateOptions)

	missing := PollCreate{
		Type: PollTypeDate,
		Options: []PollOptionCreate{
			{DateValue: &day1},
			{Label: "not a date"},
		},
	}
	_, err = missing.NormalizeOptions()
	assert.ErrorIs(t, err, ErrOptionDateRequired)
}

func TestOptionDisplayLabel(t *testing.T) {
	labeled := PollOptionResponse{Label: strPtr("Beach")}
	assert.Equal(t, "Beach", labeled.DisplayLabel())

	day := time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	dated := PollOptionResponse{DateValue: &day}
	assert.Equal(t, "31.12.2025", dated.DisplayLabel())
}
