package connect

import (
	"math"

	"github.com/cockroachdb/errors"
	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

// NotificationTypeInitialState marks the first message of a subscription.
const NotificationTypeInitialState = "initial_state"

// TrackInfo describes one catalog entry.
type TrackInfo struct {
	Index  int    `mapstructure:"index"`
	ID     string `mapstructure:"id"`
	Title  string `mapstructure:"title"`
	Artist string `mapstructure:"artist"`
}

// StatusInfo is the player status returned by every command.
type StatusInfo struct {
	Track    TrackInfo `mapstructure:"track"`
	State    string    `mapstructure:"state"`
	Playing  bool      `mapstructure:"playing"`
	Position float64   `mapstructure:"position"`
	Duration float64   `mapstructure:"duration"` // NaN when unknown
}

// NotificationInfo is one message of a subscription.
type NotificationInfo struct {
	SequenceNo uint64    `mapstructure:"sequence_no"`
	Type       string    `mapstructure:"type"`
	State      string    `mapstructure:"state"`
	Track      TrackInfo `mapstructure:"track"`
}

func trackFields(index int, t track.Track) map[string]any {
	return map[string]any{
		"index":  index,
		"id":     t.ID,
		"title":  t.Title,
		"artist": t.Artist,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func statusStruct(st playback.Status) (*structpb.Struct, error) {
	fields := map[string]any{
		"track":   trackFields(st.CurrentIndex, st.Track),
		"state":   st.State().String(),
		"playing": st.IsPlaying,
	}
	if finite(st.Position) {
		fields["position"] = st.Position
	}
	// Unknown durations are left out.
	if finite(st.Duration) && st.Duration > 0 {
		fields["duration"] = st.Duration
	}
	return structpb.NewStruct(fields)
}

func tracksStruct(tracks []track.Track) (*structpb.Struct, error) {
	list := make([]any, len(tracks))
	for i, t := range tracks {
		list[i] = trackFields(i, t)
	}
	return structpb.NewStruct(map[string]any{"tracks": list})
}

func notificationStruct(n *notification.Notification) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"sequence_no": n.SequenceNo,
		"type":        n.Type.String(),
		"state":       n.State.String(),
		"track":       trackFields(n.Index, n.Track),
	})
}

func initialStruct(st playback.Status) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"sequence_no": 0,
		"type":        NotificationTypeInitialState,
		"state":       st.State().String(),
		"track":       trackFields(st.CurrentIndex, st.Track),
	})
}

func decode(s *structpb.Struct, out any) error {
	if err := mapstructure.Decode(s.AsMap(), out); err != nil {
		return errors.Wrap(err, "failed to decode message")
	}
	return nil
}

func decodeStatus(s *structpb.Struct) (*StatusInfo, error) {
	var info StatusInfo
	if err := decode(s, &info); err != nil {
		return nil, err
	}
	if _, ok := s.GetFields()["duration"]; !ok {
		info.Duration = math.NaN()
	}
	return &info, nil
}

func decodeTracks(s *structpb.Struct) ([]TrackInfo, error) {
	var list struct {
		Tracks []TrackInfo `mapstructure:"tracks"`
	}
	if err := decode(s, &list); err != nil {
		return nil, err
	}
	return list.Tracks, nil
}

func decodeNotification(s *structpb.Struct) (*NotificationInfo, error) {
	var info NotificationInfo
	if err := decode(s, &info); err != nil {
		return nil, err
	}
	return &info, nil
}
