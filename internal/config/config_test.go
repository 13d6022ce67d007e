package config

import (
	"testing"

	"github.com/shaiso/jobbroker/internal/broker"
)

type fakeBroker struct{ broker.Broker }

func TestSetDefault_OnceOnly(t *testing.T) {
	resetDefaultForTest()
	defer resetDefaultForTest()

	cfg := &Configuration{Broker: &fakeBroker{}}
	if err := SetDefault(cfg); err != nil {
		t.Fatalf("first SetDefault should succeed: %v", err)
	}
	if err := SetDefault(cfg); err == nil {
		t.Fatal("second SetDefault should fail")
	}
	if Default() != cfg {
		t.Fatal("expected Default() to return the installed configuration")
	}
}

func TestSetDefault_RejectsNilBroker(t *testing.T) {
	resetDefaultForTest()
	defer resetDefaultForTest()

	if err := SetDefault(&Configuration{}); err == nil {
		t.Fatal("expected error for nil broker")
	}
}
