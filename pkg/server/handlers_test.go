package server

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/looperhq/looper/pkg/action"
	"github.com/looperhq/looper/pkg/actuator"
	"github.com/looperhq/looper/pkg/engine"
	"github.com/looperhq/looper/pkg/executor"
	"github.com/looperhq/looper/pkg/journal"
	"github.com/looperhq/looper/pkg/sensor"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", &action.ValidationError{Message: "bad"}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("outer: %w", &action.ValidationError{Message: "bad"}), http.StatusBadRequest},
		{"unknown sensor", &sensor.UnknownSensorError{Name: "x"}, http.StatusBadRequest},
		{"unknown actuator", &actuator.UnknownActuatorError{Name: "x"}, http.StatusBadRequest},
		{"no executor", &executor.NoExecutorError{Kind: action.KindChat}, http.StatusBadRequest},
		{"not configured", engine.ErrNotConfigured, http.StatusBadRequest},
		{"journal miss", journal.ErrNotFound, http.StatusNotFound},
		{"unknown approval", engine.ErrUnknownApproval, http.StatusNotFound},
		{"plain failure", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := statusFor(tt.err); got != tt.want {
				t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		in   int64
		want int64
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{50, 50},
		{500, 500},
		{5000, 500},
	}
	for _, tt := range tests {
		if got := clampLimit(tt.in); got != tt.want {
			t.Errorf("clampLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
