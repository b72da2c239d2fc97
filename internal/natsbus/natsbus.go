// Package natsbus carries attempt records over NATS request/reply. The
// Reporter side publishes and waits for the ledger's reply; the Consumer side
// records each attempt and replies.
package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/nats-io/nats.go"

	"github.com/playperu/cluegame/internal/cluegame"
)

// DefaultSubject is the subject attempts are published on.
const DefaultSubject = "cluegame.attempts"

// consumerQueue lets several ledger instances share the subject.
const consumerQueue = "ledger"

// Reply is the ledger's answer to one attempt.
type Reply struct {
	Recorded bool   `json:"recorded"`
	Error    string `json:"error,omitempty"`
}

// Connect dials url with reconnect handling that logs through logger.
func Connect(url, name string, logger *slog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Error("nats disconnected", "error", err)
				return
			}
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(*nats.Conn) {
			logger.Info("nats reconnected")
		}),
		nats.ErrorHandler(func(_ *nats.Conn, sub *nats.Subscription, err error) {
			subject := ""
			if sub != nil {
				subject = sub.Subject
			}
			logger.Error("nats async error", "subject", subject, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return nc, nil
}

// Reporter implements cluegame.AttemptReporter by publishing to the ledger
// and treating its reply as the ack.
type Reporter struct {
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

func NewReporter(nc *nats.Conn, subject string) *Reporter {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Reporter{nc: nc, subject: subject, timeout: 5 * time.Second}
}

func (r *Reporter) Report(ctx context.Context, rec cluegame.AttemptRecord) error {
	data, err := json.Marshal(rec.Payload())
	if err != nil {
		return fmt.Errorf("encoding attempt: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	msg, err := r.nc.RequestWithContext(ctx, r.subject, data)
	if err != nil {
		return fmt.Errorf("publishing attempt %d: %w", rec.AttemptNumber, err)
	}

	var reply Reply
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return fmt.Errorf("decoding ledger reply: %w", err)
	}
	if reply.Error != "" {
		return fmt.Errorf("ledger rejected attempt %d: %s", rec.AttemptNumber, reply.Error)
	}
	return nil
}

var _ cluegame.AttemptReporter = (*Reporter)(nil)

// Recorder stores an attempt and reports whether it was new.
type Recorder interface {
	Record(ctx context.Context, rec cluegame.AttemptRecord) (bool, error)
}

// Consumer feeds attempts from the bus into a Recorder.
type Consumer struct {
	nc       *nats.Conn
	subject  string
	recorder Recorder
	validate *validator.Validate
	logger   *slog.Logger
	sub      *nats.Subscription
}

func NewConsumer(nc *nats.Conn, subject string, recorder Recorder, logger *slog.Logger) *Consumer {
	if subject == "" {
		subject = DefaultSubject
	}
	return &Consumer{
		nc:       nc,
		subject:  subject,
		recorder: recorder,
		validate: validator.New(),
		logger:   logger,
	}
}

// Start subscribes in the ledger queue group. Messages are handled until Stop.
func (c *Consumer) Start() error {
	sub, err := c.nc.QueueSubscribe(c.subject, consumerQueue, c.handle)
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", c.subject, err)
	}
	c.sub = sub
	c.logger.Info("attempt consumer subscribed", "subject", c.subject)
	return nil
}

// Stop drains the subscription so in-flight messages are answered.
func (c *Consumer) Stop() error {
	if c.sub == nil {
		return nil
	}
	return c.sub.Drain()
}

func (c *Consumer) handle(msg *nats.Msg) {
	reply, err := c.process(msg.Data)
	if err != nil {
		c.logger.Error("recording attempt from bus failed", "error", err)
		reply = Reply{Error: err.Error()}
	}
	if msg.Reply == "" {
		return
	}
	data, _ := json.Marshal(reply)
	if err := msg.Respond(data); err != nil {
		c.logger.Error("replying to attempt failed", "error", err)
	}
}

func (c *Consumer) process(data []byte) (Reply, error) {
	var p cluegame.AttemptPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return Reply{}, fmt.Errorf("%w: %w", cluegame.ErrInvalidInput, err)
	}
	if err := c.validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return Reply{}, fmt.Errorf("%w: %s", cluegame.ErrInvalidInput, verrs.Error())
		}
		return Reply{}, err
	}
	rec, err := p.Record()
	if err != nil {
		return Reply{}, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	recorded, err := c.recorder.Record(ctx, rec)
	if err != nil {
		return Reply{}, err
	}
	c.logger.Debug("attempt recorded from bus",
		"participant", rec.Participant,
		"attempt", rec.AttemptNumber,
		"recorded", recorded,
	)
	return Reply{Recorded: recorded}, nil
}
