package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"ghostbuild/internal/pipeline"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"empty winning", pipeline.ErrEmptyWinning, ExitPrecondition},
		{"wrapped empty sets", fmt.Errorf("ahri: %w", pipeline.ErrEmptySets), ExitPrecondition},
		{"joined", errors.Join(errors.New("io"), pipeline.ErrEmptySets), ExitPrecondition},
		{"runtime", errors.New("config error"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
