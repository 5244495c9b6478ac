package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() {
		log.SetLevel(log.InfoLevel)
		log.SetFormatter(&log.TextFormatter{})
		log.SetOutput(os.Stderr)
	})

	tests := []struct {
		name    string
		level   string
		format  string
		want    log.Level
		wantErr bool
	}{
		{name: "defaults", want: log.InfoLevel},
		{name: "debug json", level: "debug", format: "json", want: log.DebugLevel},
		{name: "warn text upper", level: "warn", format: "TEXT", want: log.WarnLevel},
		{name: "bad level", level: "loud", wantErr: true},
		{name: "bad format", format: "xml", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Configure(tt.level, tt.format, &buf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestConfigureJSONOutput(t *testing.T) {
	t.Cleanup(func() {
		log.SetFormatter(&log.TextFormatter{})
		log.SetOutput(os.Stderr)
	})

	var buf bytes.Buffer
	require.NoError(t, Configure("info", FormatJSON, &buf))
	log.WithField("run_id", 7).Info("exported")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "exported", entry["msg"])
	assert.Equal(t, float64(7), entry["run_id"])
}
