package portal

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

const (
	screenCastInterface = callBaseName + ".ScreenCast"
	createSessionName   = screenCastInterface + ".CreateSession"
	selectSourcesName   = screenCastInterface + ".SelectSources"
	startName           = screenCastInterface + ".Start"
	openPipeWireName    = screenCastInterface + ".OpenPipeWireRemote"

	sessionInterface = callBaseName + ".Session"
	sessionCloseName = sessionInterface + ".Close"
)

// Portal source type bits.
const (
	SourceTypeMonitor uint32 = 1
	SourceTypeWindow  uint32 = 2
	SourceTypeVirtual uint32 = 4
)

// Portal cursor mode bits.
const (
	CursorModeHidden   uint32 = 1
	CursorModeEmbedded uint32 = 2
	CursorModeMetadata uint32 = 4
)

// Stream is one PipeWire stream granted by the portal chooser.
type Stream struct {
	NodeID   uint32
	Position [2]int32
	Size     [2]int32
}

// Session wraps one ScreenCast portal session on an exclusive bus
// connection. A session serves exactly one capture context and is
// never shared.
type Session struct {
	conn *dbus.Conn
	path dbus.ObjectPath
}

// Available probes for a usable ScreenCast portal and reports its
// advertised source type bits.
func Available() (uint32, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, err
	}
	return getUint32Property(conn, screenCastInterface, "AvailableSourceTypes")
}

// Version reports the portal's ScreenCast interface version.
func Version() (uint32, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return 0, err
	}
	return getUint32Property(conn, screenCastInterface, "version")
}

// CreateSession opens a new ScreenCast session.
func CreateSession() (*Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, err
	}

	data := map[string]dbus.Variant{
		"handle_token":         variantString(newToken()),
		"session_handle_token": variantString(newToken()),
	}
	results, err := requestCall(conn, createSessionName, data)
	if err != nil {
		return nil, err
	}

	handle, ok := results["session_handle"]
	if !ok {
		return nil, fmt.Errorf("portal: CreateSession response missing session_handle")
	}
	pathStr, ok := handle.Value().(string)
	if !ok {
		return nil, &UnexpectedTypeError{Call: "CreateSession session_handle", Value: handle.Value()}
	}
	return &Session{conn: conn, path: dbus.ObjectPath(pathStr)}, nil
}

// SelectSourcesOptions narrows what the portal chooser offers.
type SelectSourcesOptions struct {
	Types      uint32
	Multiple   bool
	CursorMode uint32
}

// SelectSources configures the source chooser for the session.
func (s *Session) SelectSources(opts SelectSourcesOptions) error {
	data := map[string]dbus.Variant{
		"handle_token": variantString(newToken()),
	}
	if opts.Types != 0 {
		data["types"] = variantUint32(opts.Types)
	}
	if opts.Multiple {
		data["multiple"] = variantBool(true)
	}
	if opts.CursorMode != 0 {
		data["cursor_mode"] = variantUint32(opts.CursorMode)
	}

	_, err := requestCall(s.conn, selectSourcesName, s.path, data)
	return err
}

// Start presents the chooser and returns the granted streams.
func (s *Session) Start() ([]Stream, error) {
	data := map[string]dbus.Variant{
		"handle_token": variantString(newToken()),
	}
	results, err := requestCall(s.conn, startName, s.path, "", data)
	if err != nil {
		return nil, err
	}

	variant, ok := results["streams"]
	if !ok {
		return nil, fmt.Errorf("portal: Start response missing streams")
	}
	return parseStreams(variant.Value())
}

// OpenPipeWireRemote returns an fd connected to the PipeWire daemon,
// scoped to this session's streams. The caller owns the fd.
func (s *Session) OpenPipeWireRemote() (int, error) {
	obj := s.conn.Object(busName, objectPath)
	c := obj.Call(openPipeWireName, 0, s.path, map[string]dbus.Variant{})
	if c.Err != nil {
		return -1, c.Err
	}
	var fd dbus.UnixFD
	if err := c.Store(&fd); err != nil {
		return -1, err
	}
	return int(fd), nil
}

// Close ends the portal session. The compositor stops producing into
// the session's streams.
func (s *Session) Close() error {
	return callOnObject(s.conn, s.path, sessionCloseName)
}

func parseStreams(value any) ([]Stream, error) {
	var raw [][]any
	switch v := value.(type) {
	case [][]any:
		raw = v
	case []any:
		raw = make([][]any, 0, len(v))
		for _, e := range v {
			if s, ok := e.([]any); ok {
				raw = append(raw, s)
			}
		}
	default:
		return nil, &UnexpectedTypeError{Call: "Start streams", Value: value}
	}

	streams := make([]Stream, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		var stream Stream
		if nodeID, ok := entry[0].(uint32); ok {
			stream.NodeID = nodeID
		}
		if props, ok := entry[1].(map[string]dbus.Variant); ok {
			if pos, ok := props["position"]; ok {
				if pair, ok := parseInt32Pair(pos.Value()); ok {
					stream.Position = pair
				}
			}
			if size, ok := props["size"]; ok {
				if pair, ok := parseInt32Pair(size.Value()); ok {
					stream.Size = pair
				}
			}
		}
		streams = append(streams, stream)
	}
	return streams, nil
}

func parseInt32Pair(value any) ([2]int32, bool) {
	values, ok := value.([]any)
	if !ok || len(values) < 2 {
		return [2]int32{}, false
	}
	left, ok := values[0].(int32)
	if !ok {
		return [2]int32{}, false
	}
	right, ok := values[1].(int32)
	if !ok {
		return [2]int32{}, false
	}
	return [2]int32{left, right}, true
}

// newToken builds a portal handle token. Tokens become D-Bus path
// elements, so strip the dashes out of the UUID.
func newToken() string {
	return "miniav" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
