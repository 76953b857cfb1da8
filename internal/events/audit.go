// internal/events/audit.go
package events

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
)

var auditHeader = []string{"timestamp", "event", "mint", "position", "owner", "account", "detail"}

// AuditLog appends every handled event to a CSV file. Buffered records are
// flushed every flushInterval and on Close.
type AuditLog struct {
	mu       sync.Mutex
	writer   *csv.Writer
	file     *os.File
	ticker   *time.Ticker
	done     chan struct{}
	logger   *zap.Logger
	filePath string

	writtenRecords uint64
	flushCount     uint64
}

func NewAuditLog(filePath string, flushInterval time.Duration, logger *zap.Logger) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	a := &AuditLog{
		writer:   csv.NewWriter(file),
		file:     file,
		ticker:   time.NewTicker(flushInterval),
		done:     make(chan struct{}),
		logger:   logger.Named("audit"),
		filePath: filePath,
	}
	if stat.Size() == 0 {
		if err := a.writer.Write(auditHeader); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
		a.writer.Flush()
	}

	go a.periodicFlush()
	return a, nil
}

// Handle implements Handler.
func (a *AuditLog) Handle(_ context.Context, event Event) error {
	return a.write(record(event))
}

func record(event Event) []string {
	row := []string{event.Timestamp().UTC().Format(time.RFC3339Nano), string(event.Type()), "", "", "", "", ""}
	switch e := event.(type) {
	case PositionEvent:
		row[2], row[3], row[4], row[5] = e.Mint.String(), e.Position.String(), e.Owner.String(), e.Account.String()
		row[6] = e.Stage().String()
	case RewardInitializedEvent:
		row[2], row[5] = e.Mint.String(), e.Vault.String()
		row[6] = e.Whirlpool.String() + "#" + strconv.Itoa(e.Index)
	case OperationFailedEvent:
		row[2] = e.Mint.String()
		row[6] = e.Operation + ": " + e.Kind
	}
	return row
}

func (a *AuditLog) write(row []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	a.writtenRecords++
	return nil
}

// Flush forces a write of any buffered records.
func (a *AuditLog) Flush() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.writer.Flush()
	if err := a.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	if err := a.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	a.flushCount++
	return nil
}

func (a *AuditLog) periodicFlush() {
	for {
		select {
		case <-a.ticker.C:
			if err := a.Flush(); err != nil {
				a.logger.Error("Periodic audit flush failed",
					zap.String("file", a.filePath),
					zap.Error(err))
			}
		case <-a.done:
			return
		}
	}
}

// Close flushes and closes the file.
func (a *AuditLog) Close() error {
	close(a.done)
	a.ticker.Stop()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.writer.Flush()
	if err := a.writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error on close: %w", err)
	}
	if err := a.file.Close(); err != nil {
		return fmt.Errorf("failed to close file: %w", err)
	}
	a.logger.Debug("Audit log closed",
		zap.String("file", a.filePath),
		zap.Uint64("writtenRecords", a.writtenRecords),
		zap.Uint64("flushCount", a.flushCount))
	return nil
}

// Stats returns the number of records written and flushes performed.
func (a *AuditLog) Stats() (records, flushes uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.writtenRecords, a.flushCount
}
