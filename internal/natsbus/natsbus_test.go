package natsbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playperu/cluegame/internal/cluegame"
	"github.com/playperu/cluegame/internal/natsbus"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type memRecorder struct {
	mu   sync.Mutex
	seen map[int]cluegame.AttemptRecord
	err  error
}

func (m *memRecorder) Record(_ context.Context, rec cluegame.AttemptRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.seen[rec.AttemptNumber]; ok {
		return false, nil
	}
	m.seen[rec.AttemptNumber] = rec
	return true, nil
}

func connect(t *testing.T) *nats.Conn {
	t.Helper()
	s := natsserver.RunRandClientPortServer()
	t.Cleanup(s.Shutdown)

	nc, err := natsbus.Connect(s.ClientURL(), "cluegame-test", discard)
	require.NoError(t, err)
	t.Cleanup(nc.Close)
	return nc
}

func record(n int) cluegame.AttemptRecord {
	d := cluegame.Date{Year: 2025, Month: time.March, Day: 14}
	return cluegame.AttemptRecord{
		Participant:    "Ana",
		Key:            cluegame.Key{Date: d, Slot: cluegame.Morning},
		ElapsedSeconds: 12,
		Status:         cluegame.StatusLoss,
		AttemptNumber:  n,
		AttemptedAt:    time.Date(2025, 3, 14, 9, 0, 12, 0, time.UTC),
	}
}

func TestReporterRoundTrip(t *testing.T) {
	nc := connect(t)
	rec := &memRecorder{seen: map[int]cluegame.AttemptRecord{}}

	c := natsbus.NewConsumer(nc, "", rec, discard)
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	r := natsbus.NewReporter(nc, "")
	ctx := context.Background()
	require.NoError(t, r.Report(ctx, record(1)))
	require.NoError(t, r.Report(ctx, record(1)), "redelivery is acknowledged")
	require.NoError(t, r.Report(ctx, record(2)))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.seen, 2)
	got := rec.seen[1]
	assert.Equal(t, "Ana", got.Participant)
	assert.Equal(t, cluegame.Morning, got.Key.Slot)
	assert.True(t, got.AttemptedAt.Equal(record(1).AttemptedAt))
}

func TestReporterSurfacesLedgerError(t *testing.T) {
	nc := connect(t)
	rec := &memRecorder{seen: map[int]cluegame.AttemptRecord{}, err: errors.New("disk full")}

	c := natsbus.NewConsumer(nc, "attempts.test", rec, discard)
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	err := natsbus.NewReporter(nc, "attempts.test").Report(context.Background(), record(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestReporterWithoutConsumer(t *testing.T) {
	nc := connect(t)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := natsbus.NewReporter(nc, "nobody.listens").Report(ctx, record(1))
	assert.Error(t, err)
}

func TestConsumerRejectsInvalidPayload(t *testing.T) {
	nc := connect(t)
	rec := &memRecorder{seen: map[int]cluegame.AttemptRecord{}}

	c := natsbus.NewConsumer(nc, "", rec, discard)
	require.NoError(t, c.Start())
	t.Cleanup(func() { c.Stop() })

	bad := record(1).Payload()
	bad.Status = "DRAW"
	data, err := json.Marshal(bad)
	require.NoError(t, err)

	msg, err := nc.Request(natsbus.DefaultSubject, data, time.Second)
	require.NoError(t, err)

	var reply natsbus.Reply
	require.NoError(t, json.Unmarshal(msg.Data, &reply))
	assert.False(t, reply.Recorded)
	assert.Contains(t, reply.Error, "invalid input")
	assert.Empty(t, rec.seen)
}
