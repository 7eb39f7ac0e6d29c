package logging

import (
	"os"
	"path/filepath"
	"pixelperfect/internal/config"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zerolog.Level
		wantErr bool
	}{
		{in: "", want: zerolog.InfoLevel},
		{in: "debug", want: zerolog.DebugLevel},
		{in: "WARN", want: zerolog.WarnLevel},
		{in: "error", want: zerolog.ErrorLevel},
		{in: "loud", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseLevel(tc.in)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestSetupWritesLogFile(t *testing.T) {
	previous, previousLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = previous
		zerolog.SetGlobalLevel(previousLevel)
		zerolog.DefaultContextLogger = nil
	})

	path := filepath.Join(t.TempDir(), "pixelperfect.log")
	closer, err := Setup(config.Log{Level: "info", File: path, MaxSizeMB: 1}, "debug")
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Debug().Str("sessionId", "abc").Msg("hello file")
	require.NoError(t, closer.Close())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"sessionId":"abc"`)
	assert.Contains(t, string(content), "hello file")
}

func TestSetupRejectsUnknownLevel(t *testing.T) {
	_, err := Setup(config.Log{Level: "verbose"}, "")
	require.Error(t, err)
}
