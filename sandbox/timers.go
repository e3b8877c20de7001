package sandbox

import (
	"container/heap"
	"math"
	"time"

	"github.com/dop251/goja"
)

type timer struct {
	id   int64
	due  time.Time
	fn   goja.Value
	args []goja.Value
}

// timerQueue orders timers by due time, then by scheduling order.
type timerQueue []*timer

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].id < q[j].id
	}
	return q[i].due.Before(q[j].due)
}

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x any) { *q = append(*q, x.(*timer)) }

func (q *timerQueue) Pop() any {
	old := *q
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return t
}

// setTimeout(fn, delay, ...args) queues fn and returns its id. Ids count
// up from 1 within a run.
func (s *scope) setTimeout(call goja.FunctionCall) goja.Value {
	s.nextID++
	t := &timer{
		id:  s.nextID,
		due: time.Now().Add(clampDelay(call.Argument(1))),
		fn:  call.Argument(0),
	}
	if len(call.Arguments) > 2 {
		t.args = append([]goja.Value(nil), call.Arguments[2:]...)
	}
	heap.Push(&s.timers, t)
	return s.vm.ToValue(t.id)
}

// clearTimeout accepts any argument and does nothing. Timers left in the
// queue when the run ends are dropped with the scope.
func (s *scope) clearTimeout(goja.FunctionCall) goja.Value {
	return goja.Undefined()
}

func clampDelay(v goja.Value) time.Duration {
	ms := v.ToFloat()
	switch {
	case math.IsNaN(ms) || ms < 0:
		ms = 0
	case ms > math.MaxInt32:
		ms = 1
	}
	return time.Duration(ms * float64(time.Millisecond))
}
