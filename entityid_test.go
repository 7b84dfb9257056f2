package workersdk

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wippyai/worker-sdk/errors"
)

func TestCheckEntityID(t *testing.T) {
	tests := []struct {
		id    int64
		valid bool
	}{
		{1, true},
		{1 << 62, true},
		{0, false},
		{-1, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.valid, ValidEntityID(tt.id), "id %d", tt.id)
		err := CheckEntityID(errors.PhaseSnapshot, tt.id)
		if tt.valid {
			assert.NoError(t, err)
		} else {
			assert.ErrorIs(t, err, errors.New(errors.PhaseSnapshot, errors.KindInvalidEntityID).Build())
		}
	}
}
