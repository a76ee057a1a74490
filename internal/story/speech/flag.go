package speech

import "sync"

// Flag is an observable boolean. Subscribers receive the current value
// first and then every change; a slow subscriber only sees the latest value.
type Flag struct {
	mu    sync.Mutex
	value bool
	next  int
	subs  map[int]chan bool
}

func NewFlag(initial bool) *Flag {
	return &Flag{value: initial, subs: make(map[int]chan bool)}
}

func (f *Flag) Get() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value
}

// Set stores v and publishes it when it differs from the current value.
func (f *Flag) Set(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.value == v {
		return
	}
	f.value = v
	for _, ch := range f.subs {
		publish(ch, v)
	}
}

// Subscribe returns a channel of values and a function that ends the subscription.
func (f *Flag) Subscribe() (<-chan bool, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan bool, 1)
	ch <- f.value
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

// publish replaces any unread value with v.
func publish(ch chan bool, v bool) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}
