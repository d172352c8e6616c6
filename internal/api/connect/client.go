package connect

import (
	"context"
	"strings"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// Client is a PlayerService client.
type Client struct {
	status     *connect.Client[emptypb.Empty, structpb.Struct]
	play       *connect.Client[structpb.Struct, structpb.Struct]
	pause      *connect.Client[emptypb.Empty, structpb.Struct]
	toggle     *connect.Client[emptypb.Empty, structpb.Struct]
	next       *connect.Client[emptypb.Empty, structpb.Struct]
	previous   *connect.Client[emptypb.Empty, structpb.Struct]
	seek       *connect.Client[structpb.Struct, structpb.Struct]
	listTracks *connect.Client[emptypb.Empty, structpb.Struct]
	subscribe  *connect.Client[emptypb.Empty, structpb.Struct]
}

// NewClient creates a client for the service at baseURL. A non-empty token
// is sent in the X-Control-Token header.
func NewClient(httpClient connect.HTTPClient, baseURL, token string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	if token != "" {
		opts = append(opts, connect.WithInterceptors(tokenInterceptor{token: token}))
	}
	return &Client{
		status:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServiceStatusProcedure, opts...),
		play:       connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+PlayerServicePlayProcedure, opts...),
		pause:      connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServicePauseProcedure, opts...),
		toggle:     connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServiceToggleProcedure, opts...),
		next:       connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServiceNextProcedure, opts...),
		previous:   connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServicePreviousProcedure, opts...),
		seek:       connect.NewClient[structpb.Struct, structpb.Struct](httpClient, baseURL+PlayerServiceSeekProcedure, opts...),
		listTracks: connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServiceListTracksProcedure, opts...),
		subscribe:  connect.NewClient[emptypb.Empty, structpb.Struct](httpClient, baseURL+PlayerServiceSubscribeProcedure, opts...),
	}
}

func callEmpty(ctx context.Context, c *connect.Client[emptypb.Empty, structpb.Struct]) (*StatusInfo, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return decodeStatus(resp.Msg)
}

func callStruct(ctx context.Context, c *connect.Client[structpb.Struct, structpb.Struct], fields map[string]any) (*StatusInfo, error) {
	msg, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, err
	}
	resp, err := c.CallUnary(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, err
	}
	return decodeStatus(resp.Msg)
}

// Status returns the player status.
func (c *Client) Status(ctx context.Context) (*StatusInfo, error) {
	return callEmpty(ctx, c.status)
}

// Play resumes the current track.
func (c *Client) Play(ctx context.Context) (*StatusInfo, error) {
	return callStruct(ctx, c.play, map[string]any{})
}

// PlayIndex plays the catalog entry at index from the start.
func (c *Client) PlayIndex(ctx context.Context, index int) (*StatusInfo, error) {
	return callStruct(ctx, c.play, map[string]any{"index": index})
}

// PlayMatch plays the best match for query.
func (c *Client) PlayMatch(ctx context.Context, query string) (*StatusInfo, error) {
	return callStruct(ctx, c.play, map[string]any{"match": query})
}

// Pause pauses playback.
func (c *Client) Pause(ctx context.Context) (*StatusInfo, error) {
	return callEmpty(ctx, c.pause)
}

// Toggle flips between playing and paused.
func (c *Client) Toggle(ctx context.Context) (*StatusInfo, error) {
	return callEmpty(ctx, c.toggle)
}

// Next moves to the next track.
func (c *Client) Next(ctx context.Context) (*StatusInfo, error) {
	return callEmpty(ctx, c.next)
}

// Previous moves to the previous track.
func (c *Client) Previous(ctx context.Context) (*StatusInfo, error) {
	return callEmpty(ctx, c.previous)
}

// Seek jumps to fraction of the current track.
func (c *Client) Seek(ctx context.Context, fraction float64) (*StatusInfo, error) {
	return callStruct(ctx, c.seek, map[string]any{"fraction": fraction})
}

// ListTracks returns the catalog.
func (c *Client) ListTracks(ctx context.Context) ([]TrackInfo, error) {
	resp, err := c.listTracks.CallUnary(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return nil, err
	}
	return decodeTracks(resp.Msg)
}

// Subscribe calls fn for every notification until ctx ends, the stream
// closes or fn returns an error.
func (c *Client) Subscribe(ctx context.Context, fn func(*NotificationInfo) error) error {
	stream, err := c.subscribe.CallServerStream(ctx, connect.NewRequest(&emptypb.Empty{}))
	if err != nil {
		return err
	}
	defer stream.Close()

	for stream.Receive() {
		n, err := decodeNotification(stream.Msg())
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return stream.Err()
}
