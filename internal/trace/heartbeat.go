package trace

import (
	"strconv"
	"sync"
	"time"
)

// Heartbeat emits a liveness event at a fixed interval, so a trace of a long
// batch or watch session shows the process is alive and what it is holding.
type Heartbeat struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// StartHeartbeat starts beating under parent. status, if not nil, supplies
// the detail of each beat. It returns nil when tracing is off.
func StartHeartbeat(t Tracer, interval time.Duration, parent uint64, status func() string) *Heartbeat {
	if !Enabled(t) || interval <= 0 {
		return nil
	}
	h := &Heartbeat{stop: make(chan struct{}), done: make(chan struct{})}
	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for n := 1; ; n++ {
			select {
			case <-ticker.C:
				detail := "#" + strconv.Itoa(n)
				if status != nil {
					detail += " " + status()
				}
				emit(t, &Event{Kind: KindHeartbeat, Scope: ScopeCommand, ParentID: parent, Name: "heartbeat", Detail: detail, Offset: NoOffset})
			case <-h.stop:
				return
			}
		}
	}()
	return h
}

// Stop ends the heartbeat and waits for its goroutine. Safe on nil and twice.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	<-h.done
}
