package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"spacebio-rag/internal/index"
	"spacebio-rag/internal/model"
	"spacebio-rag/internal/platform/logger"
	"spacebio-rag/internal/platform/rabbitmq"
)

// Rebuilder runs one full ingest.
type Rebuilder interface {
	Run(ctx context.Context, runID, trigger string) (*model.IngestRun, error)
}

// Reloader installs the latest published build as the active snapshot.
type Reloader interface {
	Reload() (*index.Snapshot, error)
}

// RebuildWorker consumes rebuild requests one at a time and swaps the served
// snapshot after each successful build.
type RebuildWorker struct {
	conn      *amqp.Connection
	rebuilder Rebuilder
	reloader  Reloader
	queueName string
	log       *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRebuildWorker(conn *amqp.Connection, rebuilder Rebuilder, reloader Reloader, queueName string, log *logger.Logger) *RebuildWorker {
	if log == nil {
		log = logger.Nop()
	}
	return &RebuildWorker{
		conn:      conn,
		rebuilder: rebuilder,
		reloader:  reloader,
		queueName: queueName,
		log:       log,
	}
}

func (w *RebuildWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}
	if err := rabbitmq.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
	}
	if err := ch.Qos(1, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker qos failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					w.log.Error("rebuild request rejected", "error", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

// handle returns an error only for messages that can never succeed. A failed
// build is recorded on its run and the message is still acknowledged.
func (w *RebuildWorker) handle(ctx context.Context, body []byte) error {
	var req model.RebuildRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return fmt.Errorf("decode rebuild request failed: %w", err)
	}

	run, err := w.rebuilder.Run(ctx, req.RunID, req.Trigger)
	if err != nil {
		w.log.Warn("rebuild failed", "run_id", req.RunID, "error", err)
		return nil
	}

	snap, err := w.reloader.Reload()
	if err != nil {
		w.log.Error("reload after rebuild failed", "run_id", run.ID, "build_id", run.BuildID, "error", err)
		return nil
	}
	w.log.Info("snapshot swapped", "run_id", run.ID, "build_id", snap.BuildID, "records", snap.Len())
	return nil
}

func (w *RebuildWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
