package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    Status
		wantErr bool
	}{
		{in: "PASS", want: StatusPass},
		{in: "fail", want: StatusFail},
		{in: " Blocked ", want: StatusBlocked},
		{in: "NOT_RUN", want: StatusNotRun},
		{in: "SKIPPED", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStatus(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidStatus)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusExecuted(t *testing.T) {
	assert.True(t, StatusPass.Executed())
	assert.True(t, StatusFail.Executed())
	assert.False(t, StatusBlocked.Executed())
	assert.False(t, StatusNotRun.Executed())
}

func TestSummaryAdd(t *testing.T) {
	var s Summary
	for _, st := range []Status{StatusPass, StatusPass, StatusFail, StatusBlocked, StatusNotRun, "bogus"} {
		s.Add(st)
	}

	assert.Equal(t, Summary{Total: 6, Pass: 2, Fail: 1, Blocked: 1, NotRun: 2}, s)
	assert.Equal(t, 3, s.Executed())
}
