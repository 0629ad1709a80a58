// Package portal talks to the xdg-desktop-portal ScreenCast interface
// over the D-Bus session bus. It owns the request/response signal
// protocol, session lifetime and variant plumbing the screen backend
// needs; no capture semantics live here.
package portal

import (
	"github.com/godbus/dbus/v5"
)

const (
	busName           = "org.freedesktop.portal.Desktop"
	objectPath        = "/org/freedesktop/portal/desktop"
	callBaseName      = "org.freedesktop.portal"
	propertiesGetName = "org.freedesktop.DBus.Properties.Get"
)

// call invokes a portal method on the desktop object and stores its
// single return value.
func call(conn *dbus.Conn, name string, args ...any) (any, error) {
	obj := conn.Object(busName, objectPath)
	c := obj.Call(name, 0, args...)
	if c.Err != nil {
		return nil, c.Err
	}
	var result any
	err := c.Store(&result)
	return result, err
}

// callOnObject invokes a method on an arbitrary portal object, for
// request/session paths handed back by the portal.
func callOnObject(conn *dbus.Conn, path dbus.ObjectPath, name string, args ...any) error {
	obj := conn.Object(busName, path)
	return obj.Call(name, 0, args...).Err
}

// getUint32Property reads a uint32 property of a portal interface.
func getUint32Property(conn *dbus.Conn, iface, property string) (uint32, error) {
	obj := conn.Object(busName, objectPath)
	c := obj.Call(propertiesGetName, 0, iface, property)
	if c.Err != nil {
		return 0, c.Err
	}
	var value any
	if err := c.Store(&value); err != nil {
		return 0, err
	}
	v, ok := value.(uint32)
	if !ok {
		return 0, &UnexpectedTypeError{Call: iface + "." + property, Value: value}
	}
	return v, nil
}

// UnexpectedTypeError reports a portal reply whose type does not match
// the interface contract.
type UnexpectedTypeError struct {
	Call  string
	Value any
}

func (e *UnexpectedTypeError) Error() string {
	return "portal: " + e.Call + " returned unexpected type"
}

func variantBool(v bool) dbus.Variant { return dbus.MakeVariant(v) }

func variantUint32(v uint32) dbus.Variant { return dbus.MakeVariant(v) }

func variantString(v string) dbus.Variant { return dbus.MakeVariant(v) }
