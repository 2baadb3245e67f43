package maintenance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"buildingops/internal/shared"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "SCHEDULED", want: StatusScheduled},
		{in: "in_progress", want: StatusInProgress},
		{in: "  Done  ", want: StatusDone},
		{in: "cancelled", want: StatusCancelled},
		{in: "PAUSED", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseStatus(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, shared.ErrValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusScheduled, StatusInProgress, StatusDone, StatusCancelled}
	allowed := map[Status]map[Status]bool{
		StatusScheduled:  {StatusInProgress: true, StatusCancelled: true, StatusScheduled: true},
		StatusInProgress: {StatusDone: true, StatusScheduled: true, StatusCancelled: true},
		StatusDone:       {},
		StatusCancelled:  {StatusScheduled: true},
	}
	for _, from := range all {
		for _, to := range all {
			err := CheckTransition(from, to)
			if allowed[from][to] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			require.Error(t, err, "%s -> %s", from, to)
			assert.True(t, errors.Is(err, shared.ErrValidation))
			var te *TransitionError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, from, te.From)
			assert.Equal(t, to, te.To)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	assert.True(t, StatusDone.Terminal())
	assert.False(t, StatusCancelled.Terminal(), "cancelled can be restored")
	assert.True(t, StatusScheduled.Active())
	assert.True(t, StatusInProgress.Active())
	assert.False(t, StatusDone.Active())
	assert.False(t, StatusCancelled.Active())
	assert.False(t, Status("BOGUS").Valid())
}

func TestTransitionErrorMessage(t *testing.T) {
	err := CheckTransition(StatusDone, StatusScheduled)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terminal")

	err = CheckTransition(StatusCancelled, StatusDone)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(StatusScheduled), "message names the legal targets")
}
