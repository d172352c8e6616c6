// Package mpris exposes the player on the D-Bus session bus through the
// MPRIS interfaces so desktop media keys and applets can drive it.
package mpris

import (
	"github.com/cockroachdb/errors"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
)

const (
	mprisPath  = "/org/mpris/MediaPlayer2"
	tracksPath = mprisPath + "/tracklist/Tracks"

	introspectID = "org.freedesktop.DBus.Introspectable"
	mprisID      = "org.mpris.MediaPlayer2"
	playerID     = mprisID + ".Player"
)

// Controller is what MPRIS calls drive.
type Controller interface {
	playback.Commander
	Snapshot() playback.Status
}

// Conn is a single MPRIS D-Bus connection. It receives playback
// notifications as a notification.Stream.
type Conn struct {
	conn   *dbus.Conn
	player *player
}

var _ notification.Stream = (*Conn)(nil)

// New connects to the session bus and claims org.mpris.MediaPlayer2.<name>.
func New(name string, control Controller) (*Conn, error) {
	c, err := newConn(name, control)
	if err == nil {
		return c, nil
	}

	c.Close()
	return nil, err
}

func newConn(name string, control Controller) (*Conn, error) {
	s, err := dbus.SessionBus()
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to session bus")
	}

	props := map[string]map[string]*prop.Prop{
		mprisID:  rootProps(name),
		playerID: playerProps(),
	}

	p, err := prop.Export(s, mprisPath, props)
	if err != nil {
		_ = s.Close()
		return nil, errors.Wrap(err, "failed to create DBus properties")
	}

	conn := Conn{
		conn:   s,
		player: newPlayer(control, p.Set),
	}

	if err := s.Export(root{}, mprisPath, mprisID); err != nil {
		return &conn, errors.Wrap(err, "failed to export the MPRIS root")
	}

	if err := s.Export(conn.player, mprisPath, playerID); err != nil {
		return &conn, errors.Wrap(err, "failed to export the MPRIS Player")
	}

	if err := s.Export(introspectionXML, mprisPath, introspectID); err != nil {
		return &conn, errors.Wrap(err, "failed to export introspection.xml")
	}

	reply, err := s.RequestName(mprisID+"."+name, dbus.NameFlagDoNotQueue)
	if err != nil {
		return &conn, errors.Wrap(err, "failed to request name")
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		return &conn, errors.New("requested name is not primary, name already taken")
	}

	conn.player.update(control.Snapshot())
	return &conn, nil
}

// Close closes the D-Bus connection and stops background workers. If c is
// nil, Close returns nil.
func (c *Conn) Close() error {
	if c == nil {
		return nil
	}

	c.player.destroy()
	return c.conn.Close()
}

// Send updates the exported properties from a playback notification.
func (c *Conn) Send(n *notification.Notification) error {
	c.player.onNotification(n)
	return nil
}

// root implements org.mpris.MediaPlayer2. The player has no window.
type root struct{}

func (root) Raise() *dbus.Error { return nil }
func (root) Quit() *dbus.Error  { return errUnimplemented }

const introspectionXML introspect.Introspectable = `
<node>
	<interface name="org.mpris.MediaPlayer2">
		<method name="Raise">
		</method>
		<method name="Quit">
		</method>
		<property name="CanQuit" type="b" access="read"/>
		<property name="CanRaise" type="b" access="read"/>
		<property name="HasTrackList" type="b" access="read"/>
		<property name="Identity" type="s" access="read"/>
		<property name="SupportedUriSchemes" type="as" access="read"/>
		<property name="SupportedMimeTypes" type="as" access="read"/>
	</interface>
	<interface name="org.mpris.MediaPlayer2.Player">
		<method name="Next">
		</method>
		<method name="Previous">
		</method>
		<method name="Pause">
		</method>
		<method name="PlayPause">
		</method>
		<method name="Stop">
		</method>
		<method name="Play">
		</method>
		<method name="Seek">
			<arg type="x" name="Offset" direction="in"/>
		</method>
		<method name="SetPosition">
			<arg type="o" name="TrackId" direction="in"/>
			<arg type="x" name="Offset" direction="in"/>
		</method>
		<method name="OpenUri">
			<arg type="s" name="Uri" direction="in"/>
		</method>
		<property name="PlaybackStatus" type="s" access="read"/>
		<property name="LoopStatus" type="s" access="readwrite"/>
		<property name="Rate" type="d" access="readwrite"/>
		<property name="Shuffle" type="b" access="readwrite"/>
		<property name="Metadata" type="a{sv}" access="read"/>
		<property name="Volume" type="d" access="readwrite"/>
		<property name="Position" type="x" access="read"/>
		<property name="MinimumRate" type="d" access="read"/>
		<property name="MaximumRate" type="d" access="read"/>
		<property name="CanGoNext" type="b" access="read"/>
		<property name="CanGoPrevious" type="b" access="read"/>
		<property name="CanPlay" type="b" access="read"/>
		<property name="CanPause" type="b" access="read"/>
		<property name="CanSeek" type="b" access="read"/>
		<property name="CanControl" type="b" access="read"/>
	</interface>
	` + introspect.IntrospectDataString + `
</node>
`
