// Package notify publishes run-finished events to Kafka.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/JonMunkholm/ticketbatch/internal/core"
	"github.com/JonMunkholm/ticketbatch/internal/logging"
)

// publishTimeout bounds one notification so a slow broker cannot hold a run.
const publishTimeout = 10 * time.Second

// RunEvent is the JSON payload published for each finished run.
type RunEvent struct {
	RunID          int64     `json:"run_id"`
	ExecutionID    string    `json:"execution_id"`
	Status         string    `json:"status"`
	FailedPhase    string    `json:"failed_phase,omitempty"`
	Error          string    `json:"error,omitempty"`
	Code           string    `json:"code,omitempty"`
	Files          []string  `json:"files"`
	RecordsWritten int       `json:"records_written"`
	Chunks         int       `json:"chunks"`
	Archived       []string  `json:"archived"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
}

// NewRunEvent builds the event for run.
func NewRunEvent(run core.Run) RunEvent {
	return RunEvent{
		RunID:          run.ID,
		ExecutionID:    run.ExecutionID.String(),
		Status:         run.Status(),
		FailedPhase:    string(run.FailedPhase),
		Error:          run.Error,
		Code:           run.ErrorCode,
		Files:          run.Import.Files,
		RecordsWritten: run.Import.RecordsWritten,
		Chunks:         run.Import.ChunksCommitted(),
		Archived:       run.Archive.Moved,
		StartedAt:      run.StartedAt,
		FinishedAt:     run.FinishedAt,
	}
}

// messageWriter abstracts kafka.Writer for testability.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher sends run events keyed by run id.
type Publisher struct {
	writer messageWriter
}

// NewPublisher creates a publisher for brokers and topic.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	var addrs []string
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("notify: no kafka brokers configured")
	}
	if topic == "" {
		return nil, fmt.Errorf("notify: kafka topic is required")
	}

	return &Publisher{writer: &kafka.Writer{
		Addr:         kafka.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}}, nil
}

// newPublisherWith injects a writer.
func newPublisherWith(w messageWriter) *Publisher {
	return &Publisher{writer: w}
}

// Publish sends one event.
func (p *Publisher) Publish(ctx context.Context, ev RunEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal run event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	msg := kafka.Message{Key: []byte(strconv.FormatInt(ev.RunID, 10)), Value: b}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish run %d: %w", ev.RunID, err)
	}
	return nil
}

// Hooks returns hooks that publish every finished run. Publish failures are
// logged and never affect the run.
func (p *Publisher) Hooks() core.Hooks {
	return core.Hooks{
		RunFinished: func(ctx context.Context, run core.Run) {
			// The run may have ended because ctx was cancelled.
			if err := p.Publish(context.WithoutCancel(ctx), NewRunEvent(run)); err != nil {
				logging.FromContext(ctx).Warn("run notification failed", "error", err)
			}
		},
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
