package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminalStatus(t *testing.T) {
	assert.True(t, IsTerminalStatus(StatusSuccess))
	assert.True(t, IsTerminalStatus(StatusFailed))
	assert.False(t, IsTerminalStatus(StatusPending))
	assert.False(t, IsTerminalStatus(StatusBuilding))
	assert.False(t, IsTerminalStatus(StatusDeploying))
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusPending, StatusBuilding, true},
		{StatusBuilding, StatusDeploying, true},
		{StatusBuilding, StatusBuilding, true},
		{StatusDeploying, StatusSuccess, true},
		{StatusDeploying, StatusFailed, true},
		{StatusPending, StatusSuccess, true},
		{StatusFailed, StatusBuilding, true},
		{StatusDeploying, StatusBuilding, false},
		{StatusSuccess, StatusBuilding, false},
		{StatusSuccess, StatusSuccess, false},
		{StatusFailed, StatusDeploying, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidTransition(tt.from, tt.to))
		})
	}
}
