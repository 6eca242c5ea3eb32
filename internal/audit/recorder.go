package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sabarim/starmf/internal/errs"
	"github.com/sabarim/starmf/internal/order"
	"github.com/sabarim/starmf/internal/protocol"
	"github.com/sabarim/starmf/internal/transport"
)

// Sink stores exchanges.
type Sink interface {
	Record(Exchange) error
}

type exchangeIDKey struct{}

// WithExchangeID tags ctx with the id the next recorded exchange will use.
func WithExchangeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, exchangeIDKey{}, id)
}

// ExchangeID returns the id carried by ctx, or a fresh one.
func ExchangeID(ctx context.Context) string {
	if id, ok := ctx.Value(exchangeIDKey{}).(string); ok && id != "" {
		return id
	}
	return uuid.NewString()
}

// Recorder writes exchanges to a sink. As a transport.Observer it records
// every physical attempt; as a transport.Doer it records one row per call it
// forwards. A failing sink is logged and never fails the call.
type Recorder struct {
	next   transport.Doer
	sink   Sink
	logger *zap.Logger
	now    func() time.Time
}

var _ transport.Observer = (*Recorder)(nil)

// NewRecorder wraps next so that each call is written to sink. next may be
// nil when the recorder is only installed with transport.WithObserver.
func NewRecorder(next transport.Doer, sink Sink, logger *zap.Logger) *Recorder {
	return &Recorder{next: next, sink: sink, logger: logger.Named("audit"), now: time.Now}
}

func (r *Recorder) Do(ctx context.Context, call protocol.Call) ([]byte, error) {
	if r.next == nil {
		return nil, errs.New(errs.KindIntegration, "[audit] - recorder has no next doer")
	}
	start := r.now()
	body, err := r.next.Do(ctx, call)
	r.record(ctx, call, 1, body, err, start, r.now().Sub(start))
	return body, err
}

// ObserveAttempt records one physical attempt made by the transport.
func (r *Recorder) ObserveAttempt(ctx context.Context, call protocol.Call, attempt int, body []byte, err error, elapsed time.Duration) {
	r.record(ctx, call, attempt, body, err, r.now().Add(-elapsed), elapsed)
}

func (r *Recorder) record(ctx context.Context, call protocol.Call, attempt int, body []byte, err error, start time.Time, elapsed time.Duration) {
	id := ExchangeID(ctx)
	ex := Exchange{
		ID:       id,
		Time:     start,
		Method:   call.Method,
		Endpoint: call.Endpoint,
		RefNo:    refNo(call),
		Request:  call.Masked(),
		Response: maskResponse(call, body),
		Outcome:  OutcomeOK,
		Duration: elapsed,
		Attempt:  attempt,
	}
	if err != nil {
		ex.Outcome = OutcomeError
		ex.Error = err.Error()
	}
	if rerr := r.sink.Record(ex); rerr != nil {
		r.logger.Error("failed to record exchange", zap.String("id", id), zap.Error(rerr))
	}
	r.logger.Info("exchange",
		zap.String("id", id),
		zap.String("method", ex.Method),
		zap.String("ref_no", ex.RefNo),
		zap.Int("attempt", attempt),
		zap.String("outcome", ex.Outcome),
		zap.Duration("duration", ex.Duration),
	)
}

func refNo(call protocol.Call) string {
	for _, name := range []string{"TransNo", "UniqueRefNo", "OrderId"} {
		if v := call.Value(name); v != "" {
			return v
		}
	}
	return ""
}

// maskResponse hides the session credential returned by a successful login.
func maskResponse(call protocol.Call, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if call.Layout != order.LayoutAuth {
		return string(body)
	}
	text, err := protocol.ExtractResult(body)
	if err != nil {
		return string(body)
	}
	reply, err := protocol.DecodeAuth(text)
	if err != nil || !reply.OK() {
		return text
	}
	return reply.Code + protocol.Separator + "****"
}
