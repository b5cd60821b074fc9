// Package audit records what the merchant did in the console: logins,
// listing edits, order transitions. Records are batched by a worker pool and
// handed to pluggable processors.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Record struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

// NewRecord stamps an activity record with an ID and the current time.
func NewRecord(action, subject, detail string) Record {
	return Record{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Subject:   subject,
		Detail:    detail,
	}
}

type Processor interface {
	Process(batch []Record) error
}

// FileProcessor appends batches to a JSONL file.
type FileProcessor struct {
	Path string
}

func (p *FileProcessor) Process(batch []Record) error {
	f, err := os.OpenFile(p.Path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open activity log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, rec := range batch {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("write activity log: %w", err)
		}
	}
	return nil
}

// StdoutProcessor prints records whose action contains Filter; an empty
// filter prints everything.
type StdoutProcessor struct {
	Filter string
}

func (p *StdoutProcessor) Process(batch []Record) error {
	for _, rec := range batch {
		if p.Filter != "" && !strings.Contains(strings.ToLower(rec.Action), strings.ToLower(p.Filter)) {
			continue
		}
		fmt.Printf("%s %s %s %s\n",
			rec.Timestamp.Format(time.RFC3339), rec.Action, rec.Subject, rec.Detail)
	}
	return nil
}

type PoolConfig struct {
	BatchSize   int
	Timeout     time.Duration
	ChannelSize int
}

type Pool struct {
	inputCh    chan Record
	processors []Processor
	batchSize  int
	timeout    time.Duration
	log        *slog.Logger

	wg sync.WaitGroup
}

func NewPool(cfg PoolConfig, log *slog.Logger, processors ...Processor) *Pool {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 16
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = time.Second
	}
	return &Pool{
		inputCh:    make(chan Record, cfg.ChannelSize),
		processors: processors,
		batchSize:  cfg.BatchSize,
		timeout:    cfg.Timeout,
		log:        log,
	}
}

func (p *Pool) Start(ctx context.Context, numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.worker(ctx)
		}()
	}
}

func (p *Pool) worker(ctx context.Context) {
	var batch []Record
	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				p.processBatch(batch)
			}
			return
		case rec := <-p.inputCh:
			batch = append(batch, rec)
			if len(batch) >= p.batchSize {
				if !timer.Stop() {
					<-timer.C
				}
				p.processBatch(batch)
				batch = nil
				timer.Reset(p.timeout)
			}
		case <-timer.C:
			if len(batch) > 0 {
				p.processBatch(batch)
				batch = nil
			}
			timer.Reset(p.timeout)
		}
	}
}

func (p *Pool) processBatch(batch []Record) {
	for _, proc := range p.processors {
		if err := proc.Process(batch); err != nil {
			p.log.Error("processing activity batch failed", "err", err)
		}
	}
}

// Log enqueues a record. A full channel drops the record rather than block
// the caller; activity logging must never stall the console.
func (p *Pool) Log(rec Record) {
	select {
	case p.inputCh <- rec:
	default:
		p.log.Warn("activity channel full, dropping record", "action", rec.Action)
	}
}

// Shutdown cancels the workers and waits for the final batches.
func (p *Pool) Shutdown(cancel context.CancelFunc) {
	cancel()
	p.wg.Wait()
}
