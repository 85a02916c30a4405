// Package handler routes gateway events to registered callbacks. It reflects
// each callback's single argument once at registration and matches events
// against that cached type.
//
// AddHandler expects a function with exactly one argument: a pointer to one
// of the gateway event structs, or an interface{} to receive every event.
//
//	h.AddHandler(func(m *gateway.MessageCreateEvent) {
//	    log.Println(m.Author.Username, "said", m.Content)
//	})
package handler

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Handler struct {
	// Synchronous controls whether each callback runs inline or in its own
	// goroutine. The session's dispatch loop runs synchronously so state
	// reads in callbacks see a settled store.
	Synchronous bool

	// Default, if set, is invoked for events no registered callback
	// matched.
	Default func(ev interface{})

	// Log receives recovered callback panics. Callback failures never
	// abort the dispatch loop.
	Log zerolog.Logger

	callbacks map[uint64]callback
	corders   []uint64
	cserial   uint64
	cmutex    sync.RWMutex
}

func New() *Handler {
	return &Handler{
		callbacks: map[uint64]callback{},
		Log:       zerolog.Nop(),
	}
}

// Call routes ev to every matching callback, in registration order. If no
// callback matches and Default is set, Default receives the event.
func (h *Handler) Call(ev interface{}) {
	evV := reflect.ValueOf(ev)
	evT := evV.Type()

	h.cmutex.RLock()
	defer h.cmutex.RUnlock()

	var matched bool

	for _, order := range h.corders {
		cb, ok := h.callbacks[order]
		if !ok || cb.not(evT) {
			continue
		}

		matched = true

		if h.Synchronous {
			h.invoke(cb, evV)
		} else {
			go h.invoke(cb, evV)
		}
	}

	if !matched && h.Default != nil {
		h.Default(ev)
	}
}

func (h *Handler) invoke(cb callback, evV reflect.Value) {
	defer func() {
		if rec := recover(); rec != nil {
			h.Log.Error().
				Interface("panic", rec).
				Str("event", evV.Type().String()).
				Msg("recovered panicking event callback")
		}
	}()

	cb.call(evV)
}

// WaitFor blocks until fn returns true for an incoming event, and returns
// that event. It returns nil once ctx expires. ChanFor is usually the better
// choice; WaitFor can miss events that arrive while the caller isn't
// waiting.
func (h *Handler) WaitFor(ctx context.Context, fn func(interface{}) bool) interface{} {
	result := make(chan interface{})

	remove := h.AddHandler(func(v interface{}) {
		if fn(v) {
			select {
			case result <- v:
			case <-ctx.Done():
			}
		}
	})
	defer remove()

	select {
	case r := <-result:
		return r
	case <-ctx.Done():
		return nil
	}
}

// ChanFor returns a channel fed every incoming event that fn matches. The
// cancel function removes the callback and releases anything blocked on the
// channel.
func (h *Handler) ChanFor(fn func(interface{}) bool) (out <-chan interface{}, cancel func()) {
	result := make(chan interface{})
	closer := make(chan struct{})

	remove := h.AddHandler(func(v interface{}) {
		if fn(v) {
			select {
			case result <- v:
			case <-closer:
			}
		}
	})

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			remove()
			close(closer)
		})
	}

	return result, cancel
}

// AddHandler registers fn, returning a function that removes it again. It
// panics if fn is not a func with exactly one pointer or interface argument.
func (h *Handler) AddHandler(fn interface{}) (rm func()) {
	rm, err := h.addHandler(fn)
	if err != nil {
		panic(err)
	}
	return rm
}

// AddHandlerCheck is AddHandler with the validation error returned instead
// of panicking.
func (h *Handler) AddHandlerCheck(fn interface{}) (rm func(), err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if recErr, ok := rec.(error); ok {
				err = recErr
			} else {
				err = fmt.Errorf("%v", rec)
			}
		}
	}()

	return h.addHandler(fn)
}

func (h *Handler) addHandler(fn interface{}) (rm func(), err error) {
	cb, err := reflectFn(fn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid event callback")
	}

	h.cmutex.Lock()
	defer h.cmutex.Unlock()

	serial := h.cserial
	h.cserial++

	if h.callbacks == nil {
		h.callbacks = map[uint64]callback{}
	}

	h.callbacks[serial] = *cb
	h.corders = append(h.corders, serial)

	return func() {
		h.cmutex.Lock()
		defer h.cmutex.Unlock()

		delete(h.callbacks, serial)

		for i, order := range h.corders {
			if order == serial {
				h.corders = append(h.corders[:i], h.corders[i+1:]...)
				break
			}
		}
	}, nil
}

type callback struct {
	event    reflect.Type
	fn       reflect.Value
	catchAll bool // argument is interface{}
}

func reflectFn(function interface{}) (*callback, error) {
	fnV := reflect.ValueOf(function)
	fnT := fnV.Type()

	if fnT.Kind() != reflect.Func {
		return nil, errors.New("given interface is not a function")
	}

	if fnT.NumIn() != 1 {
		return nil, errors.New("function must accept exactly one event argument")
	}

	if fnT.NumOut() > 0 {
		return nil, errors.New("function must not return values")
	}

	argT := fnT.In(0)
	kind := argT.Kind()

	if kind != reflect.Ptr && kind != reflect.Interface {
		return nil, errors.New("first argument must be a pointer or interface")
	}

	return &callback{
		event:    argT,
		fn:       fnV,
		catchAll: kind == reflect.Interface,
	}, nil
}

func (cb *callback) not(evT reflect.Type) bool {
	if cb.catchAll {
		return !evT.Implements(cb.event)
	}

	return evT != cb.event
}

func (cb *callback) call(evV reflect.Value) {
	cb.fn.Call([]reflect.Value{evV})
}
