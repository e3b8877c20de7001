package sandbox

import (
	"container/heap"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dop251/goja"
)

// scope is the per-run state: runtime, captured lines, timers and the
// promises still being awaited. It is driven from a single goroutine.
type scope struct {
	ctx context.Context
	vm  *goja.Runtime

	lines   []string
	timers  timerQueue
	nextID  int64
	pending int
	fault   error

	// intrinsics captured before user code can replace them
	stringify   goja.Callable
	toString    goja.Callable
	promiseThen goja.Callable
	errorCtor   *goja.Object
}

func newScope(ctx context.Context, cfg Config) *scope {
	vm := goja.New()
	if cfg.MaxCallStackSize > 0 {
		vm.SetMaxCallStackSize(cfg.MaxCallStackSize)
	}

	s := &scope{ctx: ctx, vm: vm}

	s.stringify, _ = goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("stringify"))
	s.toString, _ = goja.AssertFunction(vm.Get("String"))
	promiseProto := vm.Get("Promise").ToObject(vm).Get("prototype").ToObject(vm)
	s.promiseThen, _ = goja.AssertFunction(promiseProto.Get("then"))
	s.errorCtor = vm.Get("Error").ToObject(vm)
	return s
}

func (s *scope) bindings() []goja.Value {
	console := s.vm.NewObject()
	console.Set("log", s.logger(""))
	console.Set("info", s.logger(""))
	console.Set("warn", s.logger("[warn] "))
	console.Set("error", s.logger("[error] "))

	setTimeout := s.vm.ToValue(s.setTimeout)
	clearTimeout := s.vm.ToValue(s.clearTimeout)

	// order matches Names
	return []goja.Value{console, setTimeout, clearTimeout, setTimeout, clearTimeout}
}

func (s *scope) run(program string) error {
	stop := context.AfterFunc(s.ctx, func() {
		s.vm.Interrupt(s.ctx.Err())
	})
	defer stop()

	fnVal, err := s.vm.RunScript("program.js", Runner(program))
	if err != nil {
		return s.topLevelError(err)
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		return &Fault{Message: "program did not compile to a function"}
	}

	ret, err := fn(goja.Undefined(), s.bindings()...)
	if err != nil {
		return s.topLevelError(err)
	}
	if s.ctx.Err() != nil {
		return ContextError(s.ctx)
	}

	s.track(ret, func(reason goja.Value) {
		if s.fault == nil {
			s.fault = &Fault{Message: s.message(reason)}
		}
	})
	return s.drain()
}

// drain fires timers in due order until nothing is pending, a top-level
// fault is recorded, or the context ends. Promise jobs run to completion
// after every call into the runtime.
func (s *scope) drain() error {
	for {
		if s.fault != nil {
			return s.fault
		}
		if s.timers.Len() == 0 && s.pending == 0 {
			return nil
		}
		if s.timers.Len() == 0 {
			// only unresolvable promises remain
			<-s.ctx.Done()
			return ContextError(s.ctx)
		}

		if wait := time.Until(s.timers[0].due); wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-s.ctx.Done():
				t.Stop()
				return ContextError(s.ctx)
			case <-t.C:
			}
		}
		if s.ctx.Err() != nil {
			return ContextError(s.ctx)
		}

		if err := s.fire(heap.Pop(&s.timers).(*timer)); err != nil {
			return err
		}
	}
}

func (s *scope) fire(t *timer) error {
	fn, ok := goja.AssertFunction(t.fn)
	if !ok {
		s.appendLine("[error] TypeError: setTimeout callback is not a function")
		return nil
	}

	ret, err := fn(goja.Undefined(), t.args...)
	if s.ctx.Err() != nil {
		return ContextError(s.ctx)
	}
	if err != nil {
		var ex *goja.Exception
		var so *goja.StackOverflowError
		switch {
		case errors.As(err, &ex):
			s.logError(ex.Value())
		case errors.As(err, &so):
			s.appendLine("[error] RangeError: Maximum call stack size exceeded")
		default:
			return err
		}
		return nil
	}

	s.track(ret, s.logError)
	return nil
}

// track adds v to the pending set when it is an unsettled promise.
// onReject runs with the rejection reason if it rejects.
func (s *scope) track(v goja.Value, onReject func(goja.Value)) {
	if v == nil {
		return
	}
	p, ok := v.Export().(*goja.Promise)
	if !ok {
		return
	}
	switch p.State() {
	case goja.PromiseStateFulfilled:
		return
	case goja.PromiseStateRejected:
		onReject(p.Result())
		return
	}

	s.pending++
	fulfilled := func(goja.FunctionCall) goja.Value {
		s.pending--
		return goja.Undefined()
	}
	rejected := func(call goja.FunctionCall) goja.Value {
		s.pending--
		onReject(call.Argument(0))
		return goja.Undefined()
	}
	if _, err := s.promiseThen(v, s.vm.ToValue(fulfilled), s.vm.ToValue(rejected)); err != nil {
		s.pending--
	}
}

func (s *scope) topLevelError(err error) error {
	if s.ctx.Err() != nil {
		return ContextError(s.ctx)
	}
	var ex *goja.Exception
	var so *goja.StackOverflowError
	switch {
	case errors.As(err, &ex):
		return &Fault{Message: s.message(ex.Value())}
	case errors.As(err, &so):
		return &Fault{Message: "Maximum call stack size exceeded"}
	}
	return &Fault{Message: err.Error()}
}

func (s *scope) logger(prefix string) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, arg := range call.Arguments {
			text, err := s.format(arg)
			if err != nil {
				var ex *goja.Exception
				if errors.As(err, &ex) {
					panic(ex)
				}
			}
			parts[i] = text
		}
		s.appendLine(prefix + strings.Join(parts, " "))
		return goja.Undefined()
	}
}

// logError records an exception from deferred work as an [error] line.
func (s *scope) logError(v goja.Value) {
	text := s.errorText(v)
	s.appendLine("[error] " + text)
}

func (s *scope) appendLine(line string) {
	s.lines = append(s.lines, line)
}
