package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleConfig struct {
	Period    int     `validate:"gt=0"`
	Threshold float64 `validate:"gte=0,lte=1"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		cfg     sampleConfig
		wantErr bool
	}{
		{"valid", sampleConfig{Period: 14, Threshold: 0.5}, false},
		{"zero period", sampleConfig{Period: 0, Threshold: 0.5}, true},
		{"threshold above one", sampleConfig{Period: 14, Threshold: 1.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.cfg)
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestStructNamesField(t *testing.T) {
	err := Struct(sampleConfig{Period: -1, Threshold: 0.1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Period")
}
