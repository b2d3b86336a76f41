package main

import (
	"testing"
	"time"
)

func validConfig() *appConfig {
	return &appConfig{
		baud:      500000,
		lineBaud:  115200,
		tickEvery: 50 * time.Millisecond,
		hubBuffer: 8,
		hubPolicy: "drop",
		logFormat: "text",
		logLevel:  "info",
		txEvery:   time.Second,
	}
}

func TestConfigValidate_OK(t *testing.T) {
	if err := validConfig().validate(); err != nil {
		t.Fatalf("expected ok got %v", err)
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		mod  func(*appConfig)
	}{
		{"badFormat", func(c *appConfig) { c.logFormat = "xx" }},
		{"badLevel", func(c *appConfig) { c.logLevel = "nope" }},
		{"badPolicy", func(c *appConfig) { c.hubPolicy = "x" }},
		{"badHubBuf", func(c *appConfig) { c.hubBuffer = 0 }},
		{"badBaud", func(c *appConfig) { c.baud = 0 }},
		{"unsupportedBaud", func(c *appConfig) { c.baud = 230400 }},
		{"badLineBaud", func(c *appConfig) { c.lineBaud = 0 }},
		{"badTick", func(c *appConfig) { c.tickEvery = 0 }},
		{"badMask", func(c *appConfig) { c.mask = "xyz" }},
		{"badFilter", func(c *appConfig) { c.filter = "0x" }},
		{"txDataWithoutID", func(c *appConfig) { c.txData = "AABB" }},
		{"txPayloadTooLong", func(c *appConfig) { c.txID = "7E0"; c.txData = "000102030405060708" }},
		{"txPayloadOddHex", func(c *appConfig) { c.txID = "7E0"; c.txData = "ABC" }},
		{"txBadInterval", func(c *appConfig) { c.txID = "7E0"; c.txData = "AB"; c.txEvery = 0 }},
		{"txIDOutOfRange", func(c *appConfig) { c.txID = "FFFFFFFF"; c.txData = "AB" }},
	}
	for _, tc := range tests {
		base := validConfig()
		tc.mod(base)
		if err := base.validate(); err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestTxSpecFromConfig(t *testing.T) {
	c := validConfig()
	if _, configured, err := c.txSpec(); err != nil || configured {
		t.Fatalf("empty tx config: configured=%v err=%v", configured, err)
	}
	c.txID = "18DAF110"
	c.txData = "DEADBEEF"
	c.txEvery = 100 * time.Millisecond
	spec, configured, err := c.txSpec()
	if err != nil || !configured {
		t.Fatalf("txSpec: configured=%v err=%v", configured, err)
	}
	if spec.ID != 0x18DAF110 || len(spec.Data) != 4 || spec.Data[0] != 0xDE {
		t.Fatalf("spec = %+v", spec)
	}
	if spec.Interval != 100*time.Millisecond {
		t.Fatalf("interval = %v", spec.Interval)
	}
}
