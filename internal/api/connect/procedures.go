// Package connect provides the Connect RPC player control service.
//
// Messages are protobuf well-known types: requests without fields are
// emptypb.Empty, everything else is a structpb.Struct.
package connect

import (
	"net/http"

	"connectrpc.com/connect"
)

// PlayerServiceName is the fully-qualified name of the player service.
const PlayerServiceName = "tracklist.v1.PlayerService"

// Procedure paths.
const (
	PlayerServiceStatusProcedure     = "/tracklist.v1.PlayerService/Status"
	PlayerServicePlayProcedure       = "/tracklist.v1.PlayerService/Play"
	PlayerServicePauseProcedure      = "/tracklist.v1.PlayerService/Pause"
	PlayerServiceToggleProcedure     = "/tracklist.v1.PlayerService/Toggle"
	PlayerServiceNextProcedure       = "/tracklist.v1.PlayerService/Next"
	PlayerServicePreviousProcedure   = "/tracklist.v1.PlayerService/Previous"
	PlayerServiceSeekProcedure       = "/tracklist.v1.PlayerService/Seek"
	PlayerServiceListTracksProcedure = "/tracklist.v1.PlayerService/ListTracks"
	PlayerServiceSubscribeProcedure  = "/tracklist.v1.PlayerService/Subscribe"
)

// NewPlayerServiceHandler builds an HTTP handler for svc. It returns the path
// to mount the handler on.
func NewPlayerServiceHandler(svc *PlayerService, opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(PlayerServiceStatusProcedure, connect.NewUnaryHandler(PlayerServiceStatusProcedure, svc.Status, opts...))
	mux.Handle(PlayerServicePlayProcedure, connect.NewUnaryHandler(PlayerServicePlayProcedure, svc.Play, opts...))
	mux.Handle(PlayerServicePauseProcedure, connect.NewUnaryHandler(PlayerServicePauseProcedure, svc.Pause, opts...))
	mux.Handle(PlayerServiceToggleProcedure, connect.NewUnaryHandler(PlayerServiceToggleProcedure, svc.Toggle, opts...))
	mux.Handle(PlayerServiceNextProcedure, connect.NewUnaryHandler(PlayerServiceNextProcedure, svc.Next, opts...))
	mux.Handle(PlayerServicePreviousProcedure, connect.NewUnaryHandler(PlayerServicePreviousProcedure, svc.Previous, opts...))
	mux.Handle(PlayerServiceSeekProcedure, connect.NewUnaryHandler(PlayerServiceSeekProcedure, svc.Seek, opts...))
	mux.Handle(PlayerServiceListTracksProcedure, connect.NewUnaryHandler(PlayerServiceListTracksProcedure, svc.ListTracks, opts...))
	mux.Handle(PlayerServiceSubscribeProcedure, connect.NewServerStreamHandler(PlayerServiceSubscribeProcedure, svc.Subscribe, opts...))
	return "/" + PlayerServiceName + "/", mux
}
