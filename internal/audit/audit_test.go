package audit_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thorwig/sovy-merchant/internal/audit"
)

type captureProcessor struct {
	mu      sync.Mutex
	batches [][]audit.Record
}

func (p *captureProcessor) Process(batch []audit.Record) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]audit.Record, len(batch))
	copy(cp, batch)
	p.batches = append(p.batches, cp)
	return nil
}

func (p *captureProcessor) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func discardLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPoolFlushesFullBatch(t *testing.T) {
	proc := &captureProcessor{}
	pool := audit.NewPool(audit.PoolConfig{BatchSize: 2, Timeout: time.Hour, ChannelSize: 10}, discardLog(), proc)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	pool.Log(audit.NewRecord("order.confirm", "abc123", ""))
	pool.Log(audit.NewRecord("order.pickup", "abc123", ""))

	deadline := time.Now().Add(2 * time.Second)
	for proc.total() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, 2, proc.total())

	pool.Shutdown(cancel)
}

func TestPoolFlushesOnShutdown(t *testing.T) {
	proc := &captureProcessor{}
	pool := audit.NewPool(audit.PoolConfig{BatchSize: 100, Timeout: time.Hour, ChannelSize: 10}, discardLog(), proc)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx, 1)

	pool.Log(audit.NewRecord("login", "owner@corner.cafe", ""))
	time.Sleep(20 * time.Millisecond) // let the worker pick it up
	pool.Shutdown(cancel)

	assert.Equal(t, 1, proc.total(), "pending batch must flush on shutdown")
}

func TestFileProcessorWritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity.log")
	proc := &audit.FileProcessor{Path: path}

	err := proc.Process([]audit.Record{
		audit.NewRecord("item.create", "f1", "Day-old croissants"),
		audit.NewRecord("item.delete", "f2", ""),
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines int
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var rec audit.Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		assert.NotEmpty(t, rec.ID)
		lines++
	}
	assert.Equal(t, 2, lines)
}
