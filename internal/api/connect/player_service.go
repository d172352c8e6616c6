package connect

import (
	"context"
	"math"
	"sync"

	"connectrpc.com/connect"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/session"
	"github.com/osa030/tracklist/internal/domain/catalog"
)

// PlayerService implements the PlayerService RPC.
type PlayerService struct {
	session *session.Manager
}

// NewPlayerService creates a new PlayerService.
func NewPlayerService(session *session.Manager) *PlayerService {
	return &PlayerService{session: session}
}

// Status returns the current player status.
func (s *PlayerService) Status(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	return s.status()
}

// Play resumes the current track. With "index" it plays that catalog entry
// from the start; with "match" it plays the best search hit.
func (s *PlayerService) Play(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	fields := req.Msg.GetFields()
	controller := s.session.Controller()

	switch {
	case fields["index"] != nil:
		v := fields["index"].GetNumberValue()
		if v != math.Trunc(v) {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.Newf("index %v is not an integer", v))
		}
		if err := controller.PlayTrack(int(v)); err != nil {
			return nil, toConnectError(err)
		}
	case fields["match"] != nil:
		query := fields["match"].GetStringValue()
		hits := s.session.Catalog().Search(query)
		if len(hits) == 0 {
			return nil, toConnectError(errors.Wrapf(catalog.ErrTrackNotFound, "no match for %q", query))
		}
		if err := controller.PlayTrack(hits[0]); err != nil {
			return nil, toConnectError(err)
		}
	default:
		controller.Play()
	}
	return s.status()
}

// Pause pauses playback.
func (s *PlayerService) Pause(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	s.session.Controller().Pause()
	return s.status()
}

// Toggle flips between playing and paused.
func (s *PlayerService) Toggle(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	s.session.Controller().TogglePlay()
	return s.status()
}

// Next moves to the next track.
func (s *PlayerService) Next(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	s.session.Controller().Next()
	return s.status()
}

// Previous moves to the previous track.
func (s *PlayerService) Previous(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	s.session.Controller().Previous()
	return s.status()
}

// Seek jumps to "fraction" of the current track.
func (s *PlayerService) Seek(
	ctx context.Context,
	req *connect.Request[structpb.Struct],
) (*connect.Response[structpb.Struct], error) {
	v, ok := req.Msg.GetFields()["fraction"]
	if !ok {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("fraction is required"))
	}
	s.session.Controller().Seek(v.GetNumberValue())
	return s.status()
}

// ListTracks returns the catalog in order.
func (s *PlayerService) ListTracks(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[structpb.Struct], error) {
	msg, err := tracksStruct(s.session.Catalog().Tracks())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

// Subscribe streams playback notifications, starting with the current state.
func (s *PlayerService) Subscribe(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
	stream *connect.ServerStream[structpb.Struct],
) error {
	initial, err := initialStruct(s.session.Controller().Snapshot())
	if err != nil {
		return connect.NewError(connect.CodeInternal, err)
	}

	adapter := &notificationStreamAdapter{stream: stream}
	if err := adapter.send(initial); err != nil {
		return err
	}

	notifManager := s.session.GetNotificationManager()
	subscriptionID := notifManager.Subscribe(adapter)
	defer notifManager.Unsubscribe(subscriptionID)

	// Wait for context cancellation or session end
	select {
	case <-ctx.Done():
	case <-s.session.Done():
	}
	return nil
}

func (s *PlayerService) status() (*connect.Response[structpb.Struct], error) {
	msg, err := statusStruct(s.session.Controller().Snapshot())
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(msg), nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrIndexOutOfRange):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, catalog.ErrTrackNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}

// notificationStreamAdapter adapts connect.ServerStream to notification.Stream.
// Sends are serialized; a timed-out broadcast may still be sending when the
// next one starts.
type notificationStreamAdapter struct {
	mu     sync.Mutex
	stream *connect.ServerStream[structpb.Struct]
}

func (a *notificationStreamAdapter) Send(n *notification.Notification) error {
	msg, err := notificationStruct(n)
	if err != nil {
		zlog.Warn().Err(err).Msg("connect: failed to encode notification")
		return err
	}
	return a.send(msg)
}

func (a *notificationStreamAdapter) send(msg *structpb.Struct) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stream.Send(msg)
}
