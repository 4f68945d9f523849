package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewBot(reg)
	require.NoError(t, err)

	m.Update("command")
	m.Update("command")
	m.Upload("Java")
	m.Download()
	m.Inference("ok", 2*time.Second)
	m.Inference("busy", 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.updates.WithLabelValues("command")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.uploads.WithLabelValues("Java")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.downloads))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inference.WithLabelValues("busy")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.inferenceDuration))

	_, err = NewBot(reg)
	assert.Error(t, err, "second registration on the same registry must fail")
}

func TestBot_Nil(t *testing.T) {
	var m *Bot
	assert.NotPanics(t, func() {
		m.Update("text")
		m.Upload("AI")
		m.Download()
		m.Inference("error", time.Second)
	})
}
