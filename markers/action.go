package markers

import "fmt"

// Action is the per-marker directive carried in the action field of a marker.
type Action int32

// Marker actions as sent on the wire.
const (
	ActionAdd        Action = 0 // add, or modify when the key is already registered
	ActionDeprecated Action = 1
	ActionDelete     Action = 2
	ActionDeleteAll  Action = 3
)

func (a Action) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionDeprecated:
		return "deprecated"
	case ActionDelete:
		return "delete"
	case ActionDeleteAll:
		return "deleteall"
	default:
		return fmt.Sprintf("unknown(%d)", int32(a))
	}
}

// Key identifies one marker in the registry.
type Key struct {
	Namespace string
	ID        int32
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%d", k.Namespace, k.ID)
}
