package health

import (
	"errors"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMonitor_ReportUpstream(t *testing.T) {
	Convey("Given a fresh monitor", t, func() {
		m := NewMonitor(0, nil)

		var mu sync.Mutex
		var changes []bool
		m.OnChange(func(healthy bool) {
			mu.Lock()
			defer mu.Unlock()
			changes = append(changes, healthy)
		})

		Convey("Then it starts healthy with no calls", func() {
			status := m.Status()
			So(status.Healthy, ShouldBeTrue)
			So(status.Successes, ShouldEqual, uint64(0))
			So(status.Failures, ShouldEqual, uint64(0))
			So(status.LastCheckAt.IsZero(), ShouldBeTrue)
		})

		Convey("When a failure is reported", func() {
			m.ReportUpstream(errors.New("status 500"))

			Convey("Then it turns unhealthy and notifies listeners", func() {
				So(m.IsHealthy(), ShouldBeFalse)
				So(m.Status().LastError, ShouldEqual, "status 500")
				So(m.Status().Failures, ShouldEqual, uint64(1))
				So(changes, ShouldResemble, []bool{false})
			})

			Convey("And repeated failures do not notify again", func() {
				m.ReportUpstream(errors.New("status 502"))
				So(changes, ShouldResemble, []bool{false})
				So(m.Status().LastError, ShouldEqual, "status 502")
			})

			Convey("And a later success recovers", func() {
				m.ReportUpstream(nil)
				So(m.IsHealthy(), ShouldBeTrue)
				So(m.Status().LastError, ShouldBeEmpty)
				So(m.Status().Successes, ShouldEqual, uint64(1))
				So(changes, ShouldResemble, []bool{false, true})
			})
		})

		Convey("When only successes are reported", func() {
			m.ReportUpstream(nil)
			m.ReportUpstream(nil)

			Convey("Then listeners are never called", func() {
				So(changes, ShouldBeEmpty)
				So(m.Status().Successes, ShouldEqual, uint64(2))
			})
		})
	})
}

func TestMonitor_StartStop(t *testing.T) {
	Convey("Given a monitor with a short interval", t, func() {
		core, logs := observer.New(zap.InfoLevel)
		m := NewMonitor(10*time.Millisecond, zap.New(core))
		m.ReportUpstream(errors.New("down"))

		Convey("When started", func() {
			m.Start()
			m.Start()

			Convey("Then it logs periodic summaries until stopped", func() {
				deadline := time.Now().Add(2 * time.Second)
				for logs.FilterMessage("upstream health check").Len() == 0 && time.Now().Before(deadline) {
					time.Sleep(5 * time.Millisecond)
				}
				m.Stop()
				m.Stop()

				So(logs.FilterMessage("upstream health check").Len(), ShouldBeGreaterThan, 0)
				So(logs.FilterMessage("upstream is unhealthy").Len(), ShouldBeGreaterThan, 0)
			})
		})
	})

	Convey("A zero interval never starts the loop", t, func() {
		m := NewMonitor(0, nil)
		m.Start()
		So(m.running, ShouldBeFalse)
		m.Stop()
	})
}
