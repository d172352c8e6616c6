// Package main provides the control CLI.
package main

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	apiconnect "github.com/osa030/tracklist/internal/api/connect"
	"github.com/osa030/tracklist/internal/app/playback"
)

var (
	app    = kingpin.New("tracklist-ctl", "tracklist player control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()
	token  = app.Flag("token", "Control token").Envar("TRACKLIST_API_TOKEN").String()

	statusCmd = app.Command("status", "Show the player status")
	listCmd   = app.Command("list", "List the catalog")

	// play command
	playCmd   = app.Command("play", "Resume, or play a track by index or search")
	playIndex = playCmd.Arg("index", "Catalog index").String()
	playMatch = playCmd.Flag("match", "Play the best match for a search").Short('m').String()

	pauseCmd  = app.Command("pause", "Pause playback")
	toggleCmd = app.Command("toggle", "Toggle play/pause")
	nextCmd   = app.Command("next", "Next track")
	prevCmd   = app.Command("prev", "Previous track")

	// seek command
	seekCmd      = app.Command("seek", "Seek to a fraction of the track")
	seekFraction = seekCmd.Arg("fraction", "Position between 0 and 1").Required().Float64()

	subscribeCmd = app.Command("subscribe", "Subscribe to notifications")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	// Parse command
	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	// Create client
	client := apiconnect.NewClient(http.DefaultClient, *server, *token)

	ctx := context.Background()

	var (
		status *apiconnect.StatusInfo
		err    error
	)

	// Execute command
	switch command {
	case statusCmd.FullCommand():
		status, err = client.Status(ctx)
	case listCmd.FullCommand():
		err = list(ctx, client)
	case playCmd.FullCommand():
		switch {
		case *playMatch != "":
			status, err = client.PlayMatch(ctx, *playMatch)
		case *playIndex != "":
			var index int
			if index, err = strconv.Atoi(*playIndex); err == nil {
				status, err = client.PlayIndex(ctx, index)
			}
		default:
			status, err = client.Play(ctx)
		}
	case pauseCmd.FullCommand():
		status, err = client.Pause(ctx)
	case toggleCmd.FullCommand():
		status, err = client.Toggle(ctx)
	case nextCmd.FullCommand():
		status, err = client.Next(ctx)
	case prevCmd.FullCommand():
		status, err = client.Previous(ctx)
	case seekCmd.FullCommand():
		status, err = client.Seek(ctx, *seekFraction)
	case subscribeCmd.FullCommand():
		err = subscribe(ctx, client)
	}

	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
	if status != nil {
		printStatus(status)
	}
}

func list(ctx context.Context, client *apiconnect.Client) error {
	tracks, err := client.ListTracks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tracks {
		fmt.Printf("%3d  %-16s %s\n", t.Index, t.ID, displayName(t))
	}
	return nil
}

func displayName(t apiconnect.TrackInfo) string {
	title := t.Title
	if title == "" {
		title = t.ID
	}
	if t.Artist == "" {
		return title
	}
	return title + " - " + t.Artist
}

func formatState(state string) string {
	switch state {
	case playback.StatePlaying.String():
		return "▶️  Playing"
	case playback.StatePaused.String():
		return "⏸  Paused"
	default:
		return "❓ Unknown"
	}
}

func printStatus(st *apiconnect.StatusInfo) {
	fmt.Printf("%s  [%d] %s\n", formatState(st.State), st.Track.Index, displayName(st.Track))
	duration := "--:--"
	if !math.IsNaN(st.Duration) {
		duration = playback.FormatTime(st.Duration)
	}
	fmt.Printf("  %s / %s\n", playback.FormatTime(st.Position), duration)
}

func subscribe(ctx context.Context, client *apiconnect.Client) error {
	fmt.Println("Subscribed to notifications. Press Ctrl+C to exit.")

	// Handle shutdown signal
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := client.Subscribe(ctx, func(n *apiconnect.NotificationInfo) error {
		printNotification(n)
		return nil
	})
	if ctx.Err() != nil {
		fmt.Println("\nUnsubscribing...")
		return nil
	}
	return err
}

func printNotification(n *apiconnect.NotificationInfo) {
	// Print sequence number
	fmt.Printf("\n[Sequence: %d] ", n.SequenceNo)

	// Print event type header
	switch n.Type {
	case apiconnect.NotificationTypeInitialState:
		fmt.Println("=== INITIAL STATE ===")
	case playback.EventTrackLoaded.String():
		fmt.Println("=== TRACK LOADED ===")
	case playback.EventStateChanged.String():
		fmt.Println("=== STATE CHANGED ===")
	case playback.EventTrackEnded.String():
		fmt.Println("=== TRACK ENDED ===")
	default:
		fmt.Printf("=== UNKNOWN EVENT (%v) ===\n", n.Type)
	}

	fmt.Printf("  State: %s\n", formatState(n.State))
	fmt.Printf("  Track: [%d] %s\n", n.Track.Index, displayName(n.Track))
}
