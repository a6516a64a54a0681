package nats

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mkravets/docqa/internal/core/domain"
	"github.com/mkravets/docqa/internal/core/ports"
)

const subjectDocumentUploaded = "documents.uploaded"

type uploadedEvent struct {
	DocumentID string    `json:"document_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Queue connects the API process to the indexing worker over NATS.
type Queue struct {
	conn *nats.Conn
	log  *slog.Logger
	sub  *nats.Subscription
}

var _ ports.MessageQueue = (*Queue)(nil)

func Connect(url string, log *slog.Logger) (*Queue, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, domain.WrapError(domain.ErrUnavailable, "connect nats", err)
	}
	return &Queue{conn: conn, log: log}, nil
}

func (q *Queue) PublishDocumentUploaded(ctx context.Context, documentID string) error {
	payload, err := json.Marshal(uploadedEvent{DocumentID: documentID, OccurredAt: time.Now().UTC()})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "encode event", err)
	}
	if err := q.conn.Publish(subjectDocumentUploaded, payload); err != nil {
		return domain.WrapError(domain.ErrTemporary, "publish event", err)
	}
	return nil
}

// SubscribeDocumentUploaded delivers events to handler on a queue group
// so multiple workers share the load. Handler errors are logged, not
// redelivered; the document row keeps the failure state.
func (q *Queue) SubscribeDocumentUploaded(ctx context.Context, handler func(ctx context.Context, documentID string) error) error {
	sub, err := q.conn.QueueSubscribe(subjectDocumentUploaded, "indexers", func(msg *nats.Msg) {
		var ev uploadedEvent
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			q.log.Error("event_decode_failed", "subject", msg.Subject, "error", err.Error())
			return
		}
		if err := handler(ctx, ev.DocumentID); err != nil {
			q.log.Error("event_handler_failed", "document_id", ev.DocumentID, "error", err.Error())
		}
	})
	if err != nil {
		return domain.WrapError(domain.ErrUnavailable, "subscribe", err)
	}
	q.sub = sub
	return nil
}

func (q *Queue) Close() error {
	if q.sub != nil {
		_ = q.sub.Unsubscribe()
	}
	if err := q.conn.Drain(); err != nil {
		q.conn.Close()
		return err
	}
	return nil
}
