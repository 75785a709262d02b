package scene

import "sync"

// ChangeNotifier lets observers register for "change" notifications. Observers run synchronously
// in registration order and must not call back into the notifying client.
type ChangeNotifier struct {
	mu        sync.Mutex
	nextID    int
	observers []observer
}

type observer struct {
	id int
	fn func()
}

// OnChange registers fn and returns a function removing it.
func (cn *ChangeNotifier) OnChange(fn func()) func() {
	cn.mu.Lock()
	defer cn.mu.Unlock()
	cn.nextID++
	id := cn.nextID
	cn.observers = append(cn.observers, observer{id: id, fn: fn})
	return func() {
		cn.mu.Lock()
		defer cn.mu.Unlock()
		for i, o := range cn.observers {
			if o.id == id {
				cn.observers = append(cn.observers[:i], cn.observers[i+1:]...)
				return
			}
		}
	}
}

// NotifyChange calls every registered observer.
func (cn *ChangeNotifier) NotifyChange() {
	cn.mu.Lock()
	fns := make([]func(), 0, len(cn.observers))
	for _, o := range cn.observers {
		fns = append(fns, o.fn)
	}
	cn.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
