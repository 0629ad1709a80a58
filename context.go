package miniav

import "github.com/google/uuid"

// contextState is the lifecycle position of a capture context.
type contextState int32

const (
	stateCreated contextState = iota
	stateConfigured
	stateCapturing
	stateDestroyed
)

func (s contextState) String() string {
	switch s {
	case stateCreated:
		return "created"
	case stateConfigured:
		return "configured"
	case stateCapturing:
		return "capturing"
	case stateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// contextCore drives the state machine shared by every capture kind:
// Created -> Configured -> Capturing -> Configured (after Stop) ->
// Destroyed. The embedding kind-specific context holds the typed
// backend, the negotiated formats and the mutex; every core method is
// called with that mutex held.
type contextCore struct {
	id     string
	kind   CaptureKind
	bridge *bridge
	state  contextState
}

func newContextCore(kind CaptureKind) contextCore {
	return contextCore{id: uuid.NewString(), kind: kind, state: stateCreated}
}

// errNilContext is the failure for lifecycle calls on a nil context, as
// happens when the constructor's error went unchecked. Operations on a
// context that never finished creation fail instead of crashing.
func errNilContext(kind string) error {
	return Errorf(CodeInvalidArg, "nil %s context", kind)
}

// guardConfigure validates that a configure call is legal in the
// current state. Configure is illegal while capturing; anything is
// illegal after destroy. Caller holds the context lock.
func (c *contextCore) guardConfigure() error {
	switch c.state {
	case stateDestroyed:
		return Errorf(CodeInvalidHandle, "%s context used after destroy", c.kind)
	case stateCapturing:
		return Errorf(CodeAlreadyRunning, "cannot configure %s context while capturing", c.kind)
	default:
		return nil
	}
}

// finishConfigure records the configure outcome. A failed configure
// drops the context back to Created and the caller clears its stored
// format, so a later format query reports NotInitialized.
func (c *contextCore) finishConfigure(ok bool) {
	if ok {
		c.state = stateConfigured
	} else {
		c.state = stateCreated
	}
}

// start runs the shared StartCapture protocol around the backend's
// start operation. Caller holds the context lock.
func (c *contextCore) start(cb BufferCallback, userData any, startOp func(DeliverFunc) error) error {
	switch {
	case c.state == stateDestroyed:
		return Errorf(CodeInvalidHandle, "%s context used after destroy", c.kind)
	case c.state == stateCapturing:
		return Errorf(CodeAlreadyRunning, "%s capture already running", c.kind)
	case c.state != stateConfigured:
		return Errorf(CodeNotConfigured, "%s context must be configured before StartCapture", c.kind)
	case cb == nil:
		return Errorf(CodeInvalidArg, "nil capture callback")
	}

	br := newBridge(cb, userData)
	if err := startOp(br.deliver); err != nil {
		return err
	}
	c.bridge = br
	c.state = stateCapturing
	logger.WithField("kind", c.kind.String()).WithField("ctx", c.id).Debug("capture started")
	return nil
}

// stop runs the shared StopCapture protocol. The backend stop joins the
// producer; the bridge close is the hard barrier behind it. The running
// flag clears regardless of the backend's return so retry stays
// possible. Caller holds the context lock.
func (c *contextCore) stop(stopOp func() error) error {
	switch c.state {
	case stateDestroyed:
		return Errorf(CodeInvalidHandle, "%s context used after destroy", c.kind)
	case stateCapturing:
	default:
		return Errorf(CodeNotRunning, "%s capture not running", c.kind)
	}

	err := stopOp()
	if c.bridge != nil {
		c.bridge.close()
		c.bridge = nil
	}
	c.state = stateConfigured
	logger.WithField("kind", c.kind.String()).WithField("ctx", c.id).Debug("capture stopped")
	return err
}

// destroy tears the context down: best-effort stop if capturing, then
// platform destroy. Caller holds the context lock.
func (c *contextCore) destroy(stopOp, destroyOp func() error) error {
	if c.state == stateDestroyed {
		return Errorf(CodeInvalidHandle, "%s context already destroyed", c.kind)
	}
	if c.state == stateCapturing {
		if err := stopOp(); err != nil {
			logger.WithField("kind", c.kind.String()).WithField("ctx", c.id).
				WithError(err).Debug("stop during destroy failed")
		}
		if c.bridge != nil {
			c.bridge.close()
			c.bridge = nil
		}
	}
	err := destroyOp()
	c.state = stateDestroyed
	logger.WithField("kind", c.kind.String()).WithField("ctx", c.id).Debug("context destroyed")
	return err
}
