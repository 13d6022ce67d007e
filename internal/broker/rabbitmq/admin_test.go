package rabbitmq

import (
	"errors"
	"testing"

	"github.com/shaiso/jobbroker/internal/broker"
)

func TestJobIDFromHandle(t *testing.T) {
	b := New(DialConfig{}, nil)

	cases := []struct {
		name   string
		handle string
		want   string
	}{
		{"gearman", "H:hostname:123", "H:hostname:123"},
		{"url-ish, substring after last slash-slash only", "amqp://host/id", "host/id"},
		{"url-ish with nested scheme", "scheme://inner//tail", "tail"},
		{"raw id, no handle shape", "abc-123", "abc-123"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := b.JobIDFromHandle(c.handle)
			if err != nil {
				t.Fatalf("JobIDFromHandle(%q) returned error: %v", c.handle, err)
			}
			if got != c.want {
				t.Errorf("JobIDFromHandle(%q) = %q, want %q", c.handle, got, c.want)
			}
		})
	}
}

func TestJobIDFromHandle_EmptyHandleRaises(t *testing.T) {
	b := New(DialConfig{}, nil)

	_, err := b.JobIDFromHandle("")
	if !errors.Is(err, broker.ErrInvalidHandle) {
		t.Fatalf("expected ErrInvalidHandle, got %v", err)
	}
}
