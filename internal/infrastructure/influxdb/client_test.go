package influxdb

import (
	"context"
	"errors"
	"testing"

	"github.com/reeflink/reeflink/internal/infrastructure/config"
)

func TestConnect_Disabled(t *testing.T) {
	cfg := config.InfluxDBConfig{Enabled: false}

	_, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() with disabled config = %v, want ErrDisabled", err)
	}
}

func TestWrites_NotConnected(t *testing.T) {
	// A zero-value client is never connected; writes must be silent no-ops
	// rather than panics on the nil write API.
	c := &Client{}

	c.WriteReading("temperature", "1", "Display Tank", 25.4)
	c.WriteEquipmentState("3", "Return Pump", true)
	c.WriteCycleStats(0, 0, 0)
	c.WritePoint("custom", nil, map[string]interface{}{"v": 1.0})
	c.Flush()

	if c.IsConnected() {
		t.Error("zero-value client should not report connected")
	}
}

func TestHealthCheck_NotConnected(t *testing.T) {
	c := &Client{}

	if err := c.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() = %v, want ErrNotConnected", err)
	}
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on zero-value client = %v, want nil", err)
	}
}
