package notify

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dd0wney/cluso-modeler/pkg/metrics"
)

func TestCountedCountsByLevel(t *testing.T) {
	reg := metrics.NewRegistry()
	rec := &Recorder{}
	c := Counted{Next: rec, Metrics: reg}

	c.NotifyError("rejected")
	c.NotifyError("rejected again")
	c.NotifySuccess("done")

	if got := testutil.ToFloat64(reg.NotificationsTotal.WithLabelValues("error")); got != 2 {
		t.Errorf("error notifications = %v, want 2", got)
	}
	if got := testutil.ToFloat64(reg.NotificationsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("success notifications = %v, want 1", got)
	}
	if len(rec.All()) != 3 {
		t.Errorf("forwarded %d notifications, want 3", len(rec.All()))
	}

	// without a registry it only forwards
	Counted{Next: rec}.NotifySuccess("quiet")
	if len(rec.All()) != 4 {
		t.Errorf("forwarded %d notifications, want 4", len(rec.All()))
	}
}
