package mpv

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
)

// Settings configures the mpv surface. It is decoded from the surface
// settings map of the config file.
type Settings struct {
	Binary         string   `yaml:"binary" mapstructure:"binary" default:"mpv" validate:"required"`
	Socket         string   `yaml:"socket" mapstructure:"socket"`
	StartTimeoutMs int      `yaml:"start_timeout_ms" mapstructure:"start_timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
	ExtraArgs      []string `yaml:"extra_args" mapstructure:"extra_args"`
}

// DecodeSettings decodes, defaults and validates mpv settings.
func DecodeSettings(settings map[string]any) (Settings, error) {
	var s Settings

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &s,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Settings{}, errors.Wrap(err, "failed to create decoder")
	}
	if err := decoder.Decode(settings); err != nil {
		return Settings{}, errors.Wrap(err, "failed to decode mpv settings")
	}

	if err := defaults.Set(&s); err != nil {
		return Settings{}, errors.Wrap(err, "failed to set defaults")
	}
	if s.Socket == "" {
		s.Socket = filepath.Join(os.TempDir(), "tracklist", fmt.Sprintf("mpv-%d.sock", os.Getpid()))
	}

	if err := validator.New().Struct(s); err != nil {
		return Settings{}, errors.Wrap(err, "invalid mpv settings")
	}
	return s, nil
}

// StartTimeout returns the time allowed for mpv to open its IPC socket.
func (s Settings) StartTimeout() time.Duration {
	return time.Duration(s.StartTimeoutMs) * time.Millisecond
}

// args returns the mpv command line.
func (s Settings) args() []string {
	args := []string{
		"--idle",
		"--quiet",
		"--pause",
		"--no-input-terminal",
		"--no-video",
		"--keep-open=yes",
		"--input-ipc-server=" + s.Socket,
	}
	return append(args, s.ExtraArgs...)
}
