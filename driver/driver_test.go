package driver

import (
	"strings"
	"testing"
)

func TestStatusKind(t *testing.T) {
	tests := []struct {
		status Status
		want   Kind
	}{
		{StatusOK, KindOK},
		{StatusError, KindRejected},
		{StatusInvalidArgument, KindRejected},
		{StatusDeviceBusy, KindRejected},
		{StatusAPINotInitialized, KindUnavailable},
		{StatusNoImplementation, KindUnavailable},
	}
	for _, tt := range tests {
		if got := tt.status.Kind(); got != tt.want {
			t.Errorf("%v.Kind() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestErr(t *testing.T) {
	if err := Err("Present", StatusOK); err != nil {
		t.Errorf("Err(StatusOK) = %v, want nil", err)
	}

	err := Err("Present", StatusError)
	if err == nil {
		t.Fatal("Err(StatusError) = nil")
	}
	msg := err.Error()
	for _, want := range []string{"Present", "ERROR", "-1"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q missing %q", msg, want)
		}
	}
}

func TestStatusErrorDetail(t *testing.T) {
	err := &StatusError{Op:"BindSwapBarrier", Status: StatusInvalidArgument, Detail: "barrier 3"}
	if !strings.Contains(err.Error(), "barrier 3") {
		t.Errorf("error %q missing detail", err.Error())
	}
}
