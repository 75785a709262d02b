package scene

// Entity pairs a renderable object with the node that hosts it in the scene. When frame tracking
// is configured the host is an Attachment, otherwise the object is attached directly.
type Entity struct {
	Object     Node
	Attachment *Attachment
}

// NewEntity wraps object, tracking frameID when cfg is non-nil. cfg.Object is ignored.
func NewEntity(object Node, cfg *AttachmentConfig) (*Entity, error) {
	if object == nil {
		return nil, ErrNilObject
	}
	if cfg == nil {
		return &Entity{Object: object}, nil
	}
	attachCfg := *cfg
	attachCfg.Object = object
	att, err := NewAttachment(attachCfg)
	if err != nil {
		return nil, err
	}
	return &Entity{Object: object, Attachment: att}, nil
}

// Node returns the top level node of the entity.
func (e *Entity) Node() Node {
	if e.Attachment != nil {
		return e.Attachment
	}
	return e.Object
}

// UnsubscribeTracking stops frame tracking, if any.
func (e *Entity) UnsubscribeTracking() {
	if e.Attachment != nil {
		e.Attachment.UnsubscribeTracking()
	}
}

// Install attaches the entity to root.
func (e *Entity) Install(root Node) {
	root.Add(e.Node())
}

// Destroy releases the entity: tracking is dropped first, then the top level node is detached
// from root, then the object's resources are disposed. A disposed object is never reachable from
// root.
func (e *Entity) Destroy(root Node) {
	e.UnsubscribeTracking()
	if root != nil {
		root.Remove(e.Node())
	}
	e.Object.Dispose()
}
