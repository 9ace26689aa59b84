package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/wakfulog/wakfulog-go/pkg/wakfulog"
	"github.com/wakfulog/wakfulog-go/pkg/wakfulog/event"
)

func TestValidFormats(t *testing.T) {
	tests := []struct {
		format string
		valid  bool
	}{
		{"jsonl", true},
		{"pretty", true},
		{"json", false},
		{"xml", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			got := checkFormat(tt.format) == nil
			if got != tt.valid {
				t.Errorf("checkFormat(%q) ok = %v, want %v", tt.format, got, tt.valid)
			}
		})
	}
}

func TestBuildClassFilter(t *testing.T) {
	f, err := buildClassFilter(nil)
	if err != nil || f != nil {
		t.Fatalf("buildClassFilter(nil) = %v, %v; want nil, nil", f, err)
	}

	f, err = buildClassFilter([]string{"cra"})
	if err != nil {
		t.Fatalf("buildClassFilter() error = %v", err)
	}
	if !shown(f, event.NewGaugeSet(event.Cra, event.Affutage, 1, testTime)) {
		t.Error("cra event should be shown")
	}
	if shown(f, event.NewGaugeSet(event.Iop, event.Courroux, 1, testTime)) {
		t.Error("iop event should be hidden")
	}
	if !shown(f, event.NewCombatEnd(testTime)) {
		t.Error("class-less events are always shown")
	}

	if _, err := buildClassFilter([]string{"sram"}); err == nil {
		t.Error("buildClassFilter() should reject unknown classes")
	}
}

func TestWriteUpdate(t *testing.T) {
	src := wakfulog.NewStaticSource(testTime,
		"[12:30:40] Concentration: 12",
		"[12:30:41] Affûtage (+40 Niv.)",
	)
	m, err := wakfulog.NewMonitor(wakfulog.WithLineSource(src))
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	u, err := m.Tick(ctx)
	if err != nil {
		t.Fatal(err)
	}
	u.Notifications = append(u.Notifications, event.Event{
		Kind: event.ComboReset, Class: event.Iop, Reason: "timeout", Time: testTime,
	})

	filter, _ := buildClassFilter([]string{"iop"})
	var buf bytes.Buffer
	if err := writeUpdate(&buf, "pretty", u, filter, true, m); err != nil {
		t.Fatalf("writeUpdate() error = %v", err)
	}
	got := buf.String()

	if !strings.Contains(got, "Concentration = 12") {
		t.Errorf("missing iop event:\n%s", got)
	}
	if strings.Contains(got, "Affûtage = 40") {
		t.Errorf("cra event not filtered:\n%s", got)
	}
	if !strings.Contains(got, "combo reset (timeout)") {
		t.Errorf("missing timeout notification:\n%s", got)
	}
	if !strings.Contains(got, "12/100") {
		t.Errorf("missing iop snapshot:\n%s", got)
	}
}
