package portal

import (
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	requestInterface = callBaseName + ".Request"
	responseMember   = "Response"
)

// ResponseStatus is the status word of a portal Request Response
// signal.
type ResponseStatus = uint32

const (
	StatusSuccess   ResponseStatus = 0
	StatusCancelled ResponseStatus = 1
	StatusEnded     ResponseStatus = 2
)

var (
	// ErrCancelled: the user dismissed the portal dialog.
	ErrCancelled = errors.New("portal: request cancelled by user")

	// ErrEnded: the portal ended the interaction without a result.
	ErrEnded = errors.New("portal: request ended")

	// ErrTimeout: no Response signal arrived in time.
	ErrTimeout = errors.New("portal: timed out waiting for response")

	errUnexpectedResponse = errors.New("portal: unexpected response signal body")
)

// User-driven dialogs can stay open for a while; this only guards
// against a portal that never answers at all.
const responseTimeout = 120 * time.Second

// awaitResponse subscribes to the Response signal of a request object
// and blocks until it fires, the timeout lapses, or the portal cancels.
func awaitResponse(conn *dbus.Conn, path dbus.ObjectPath) (map[string]dbus.Variant, error) {
	if err := conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(requestInterface),
		dbus.WithMatchMember(responseMember),
	); err != nil {
		return nil, err
	}
	defer func() {
		_ = conn.RemoveMatchSignal(
			dbus.WithMatchObjectPath(path),
			dbus.WithMatchInterface(requestInterface),
			dbus.WithMatchMember(responseMember),
		)
	}()

	signals := make(chan *dbus.Signal, 1)
	conn.Signal(signals)
	defer conn.RemoveSignal(signals)

	timer := time.NewTimer(responseTimeout)
	defer timer.Stop()

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return nil, ErrEnded
			}
			if sig.Path != path || sig.Name != requestInterface+"."+responseMember {
				continue
			}
			if len(sig.Body) != 2 {
				return nil, errUnexpectedResponse
			}
			status, ok := sig.Body[0].(ResponseStatus)
			if !ok {
				return nil, errUnexpectedResponse
			}
			switch status {
			case StatusSuccess:
				results, ok := sig.Body[1].(map[string]dbus.Variant)
				if !ok {
					return nil, errUnexpectedResponse
				}
				return results, nil
			case StatusCancelled:
				return nil, ErrCancelled
			default:
				return nil, ErrEnded
			}
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}

// requestCall performs a portal method call that answers through a
// request object, returning the response results.
func requestCall(conn *dbus.Conn, name string, args ...any) (map[string]dbus.Variant, error) {
	result, err := call(conn, name, args...)
	if err != nil {
		return nil, err
	}
	path, ok := result.(dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("portal: %s returned %T, want object path", name, result)
	}
	return awaitResponse(conn, path)
}
