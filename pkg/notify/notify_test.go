package notify

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/dd0wney/cluso-modeler/pkg/logging"
)

func TestMultiFansOut(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, Nop{}, b}

	m.NotifyError("rejected")
	m.NotifySuccess("done")

	for i, r := range []*Recorder{a, b} {
		all := r.All()
		if len(all) != 2 {
			t.Fatalf("recorder %d got %d notifications, want 2", i, len(all))
		}
		if all[0].Level != LevelError || all[0].Message != "rejected" {
			t.Errorf("recorder %d first = %v", i, all[0])
		}
		if all[1].Level != LevelSuccess || all[1].Message != "done" {
			t.Errorf("recorder %d second = %v", i, all[1])
		}
	}
}

func TestRecorderFilters(t *testing.T) {
	r := &Recorder{}
	r.NotifyError("e1")
	r.NotifySuccess("s1")
	r.NotifyError("e2")

	if got := r.Errors(); len(got) != 2 || got[0] != "e1" || got[1] != "e2" {
		t.Errorf("Errors() = %v", got)
	}
	if got := r.Successes(); len(got) != 1 || got[0] != "s1" {
		t.Errorf("Successes() = %v", got)
	}

	r.Reset()
	if len(r.All()) != 0 {
		t.Error("Reset() should clear recorded notifications")
	}
}

func TestNotificationString(t *testing.T) {
	n := Notification{Level: LevelError, Message: "boom"}
	if got := n.String(); got != "[ERROR] boom" {
		t.Errorf("String() = %q", got)
	}
}

func TestLogNotifier(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(logging.NewFromZap(zap.New(core)))

	n.NotifyError(`Terminal "T1" is already a terminal of Block "B1"`)
	n.NotifySuccess("connected")

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Level != zapcore.WarnLevel {
		t.Errorf("error notification logged at %v, want warn", entries[0].Level)
	}
	if entries[1].Level != zapcore.InfoLevel {
		t.Errorf("success notification logged at %v, want info", entries[1].Level)
	}
	if entries[0].ContextMap()["component"] != "notify" {
		t.Errorf("missing component field: %v", entries[0].ContextMap())
	}
}
