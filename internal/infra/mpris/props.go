package mpris

import (
	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/prop"
)

func rootProps(name string) map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"CanQuit":             newReadOnlyProp(false),
		"CanRaise":            newReadOnlyProp(false),
		"HasTrackList":        newReadOnlyProp(false),
		"Identity":            newReadOnlyProp(name),
		"SupportedUriSchemes": newReadOnlyProp([]string{}),
		"SupportedMimeTypes":  newReadOnlyProp([]string{}),
	}
}

func playerProps() map[string]*prop.Prop {
	return map[string]*prop.Prop{
		"PlaybackStatus": newWritableProp(statusPaused, nil),
		"LoopStatus":     newWritableProp("Playlist", unimplementedChangeFn),
		"Rate":           newWritableProp(1.0, unimplementedChangeFn),
		"Shuffle":        newWritableProp(false, unimplementedChangeFn),
		"Metadata":       newWritableProp(noTrackMetadata(), nil),
		"Volume":         newWritableProp(1.0, unimplementedChangeFn),
		"Position":       newWritableUnemittedProp(int64(0), nil),
		"MinimumRate":    newWritableProp(1.0, nil),
		"MaximumRate":    newWritableProp(1.0, nil),
		"CanGoNext":      newWritableProp(true, nil),
		"CanGoPrevious":  newWritableProp(true, nil),
		"CanPlay":        newWritableProp(true, nil),
		"CanPause":       newWritableProp(true, nil),
		"CanSeek":        newWritableProp(true, nil),
		"CanControl":     newWritableProp(true, nil),
	}
}

var errUnimplemented = dbus.MakeFailedError(errors.New("unimplemented"))

func unimplementedChangeFn(*prop.Change) *dbus.Error {
	return errUnimplemented
}

func newReadOnlyProp(v any) *prop.Prop {
	return &prop.Prop{
		Value: v,
		Emit:  prop.EmitConst,
	}
}

func newWritableProp(v any, fn func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{
		Value:    v,
		Writable: true,
		Emit:     prop.EmitTrue,
		Callback: fn,
	}
}

func newWritableUnemittedProp(v any, fn func(*prop.Change) *dbus.Error) *prop.Prop {
	return &prop.Prop{
		Value:    v,
		Writable: true,
		Emit:     prop.EmitFalse,
		Callback: fn,
	}
}
