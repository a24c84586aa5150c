// Package checkout turns a client's basket into a committed order.
//
// One checkout is one unit of work: the basket and product snapshots are read,
// the order is priced and validated, then stock is decremented, the order is
// saved and the quantities that were read are taken off the basket. Any
// failure leaves storage untouched. The confirmation is sent after commit and
// its failure never fails the checkout.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"coffee-eshop-go/internal/order/aggregate"
	"coffee-eshop-go/internal/order/domain"
	"coffee-eshop-go/internal/order/tx"
	"coffee-eshop-go/pkg/logging"
	"coffee-eshop-go/pkg/metrics"
)

type Notifier interface {
	NotifyOrderConfirmed(ctx context.Context, order domain.Order) error
}

type Request struct {
	ClientID       domain.ClientID
	IdempotencyKey string
}

type Result struct {
	Order     domain.Order
	AttemptID tx.AttemptID
	// Replayed is set when the order was committed earlier under the same
	// idempotency key and nothing was changed by this call.
	Replayed bool
}

type Service struct {
	uow           tx.UnitOfWork
	notifier      Notifier
	journal       tx.Journal
	log           *logging.Logger
	metrics       *metrics.CheckoutMetrics
	now           func() time.Time
	notifyTimeout time.Duration
}

type Option func(*Service)

func WithJournal(j tx.Journal) Option { return func(s *Service) { s.journal = j } }

func WithLogger(l *logging.Logger) Option { return func(s *Service) { s.log = l } }

func WithMetrics(m *metrics.CheckoutMetrics) Option { return func(s *Service) { s.metrics = m } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithNotifyTimeout(d time.Duration) Option { return func(s *Service) { s.notifyTimeout = d } }

func NewService(uow tx.UnitOfWork, notifier Notifier, opts ...Option) *Service {
	s := &Service{
		uow:           uow,
		notifier:      notifier,
		log:           logging.NewNop(),
		now:           time.Now,
		notifyTimeout: 2 * time.Second,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewNopCheckoutMetrics()
	}
	return s
}

func (s *Service) Checkout(ctx context.Context, req Request) (Result, error) {
	start := time.Now()

	if req.IdempotencyKey != "" {
		prior, ok, err := s.priorOrder(ctx, req)
		if err != nil {
			s.observe(metrics.OutcomeCommitFailed, start)
			return Result{}, &domain.CommitError{Err: err}
		}
		if ok {
			s.observe(metrics.OutcomeReplayed, start)
			return Result{Order: prior, Replayed: true}, nil
		}
	}

	a := s.begin(ctx, req.ClientID)

	var order domain.Order
	err := s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		lines, err := st.Basket().LinesForClient(ctx, req.ClientID)
		if err != nil {
			return fmt.Errorf("load basket: %w", err)
		}
		if len(lines) == 0 {
			return domain.ErrEmptyBasket
		}
		s.transition(a, tx.StatusBasketLoaded, tx.StepLoadBasket)

		pairs := make([]aggregate.Line, 0, len(lines))
		for _, l := range lines {
			p, ok, err := st.Inventory().GetProduct(ctx, l.ProductID)
			if err != nil {
				return fmt.Errorf("load product %d: %w", l.ProductID, err)
			}
			pair := aggregate.Line{Basket: l}
			if ok {
				pair.Product = &p
			}
			pairs = append(pairs, pair)
		}

		draft, err := aggregate.Build(req.ClientID, pairs, s.now())
		if err != nil {
			return err
		}
		draft.IdempotencyKey = req.IdempotencyKey
		s.transition(a, tx.StatusValidated, tx.StepBuildOrder)

		for _, l := range draft.Lines {
			if err := st.Inventory().DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
				return err
			}
		}
		saved, err := st.Orders().Save(ctx, draft)
		if err != nil {
			return fmt.Errorf("save order: %w", err)
		}
		if err := st.Basket().ConsumeLines(ctx, req.ClientID, lines); err != nil {
			return fmt.Errorf("clear basket: %w", err)
		}
		order = saved
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateCheckout) {
			// lost a race against a request carrying the same key
			if prior, ok, lerr := s.priorOrder(ctx, req); lerr == nil && ok {
				s.fail(ctx, a, err, metrics.OutcomeReplayed, start)
				return Result{Order: prior, AttemptID: a.id, Replayed: true}, nil
			}
		}
		return Result{AttemptID: a.id}, s.classify(ctx, a, err, start)
	}

	a.orderID = order.ID
	s.advance(ctx, a, tx.StatusCommitted, tx.StepClearBasket)
	s.observe(metrics.OutcomeCommitted, start)

	s.notify(ctx, a, order)
	return Result{Order: order, AttemptID: a.id}, nil
}

func (s *Service) priorOrder(ctx context.Context, req Request) (domain.Order, bool, error) {
	var (
		prior domain.Order
		found bool
	)
	err := s.uow.WithinTx(ctx, func(ctx context.Context, st tx.Stores) error {
		var err error
		prior, found, err = st.Orders().ByIdempotencyKey(ctx, req.ClientID, req.IdempotencyKey)
		return err
	})
	return prior, found, err
}

// classify maps a failed unit of work onto the checkout failure taxonomy.
// Validation failures are returned as they are, anything else becomes a
// *domain.CommitError.
func (s *Service) classify(ctx context.Context, a *attempt, err error, start time.Time) error {
	switch {
	case errors.Is(err, domain.ErrEmptyBasket):
		s.fail(ctx, a, err, metrics.OutcomeEmptyBasket, start)
		return domain.ErrEmptyBasket
	case errors.Is(err, domain.ErrInsufficientStock):
		s.fail(ctx, a, err, metrics.OutcomeInsufficientStock, start)
		var stockErr *domain.InsufficientStockError
		if errors.As(err, &stockErr) {
			return stockErr
		}
		return err
	default:
		s.fail(ctx, a, err, metrics.OutcomeCommitFailed, start)
		return &domain.CommitError{Err: err}
	}
}

func (s *Service) notify(ctx context.Context, a *attempt, order domain.Order) {
	if s.notifier == nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()

	if err := s.notifier.NotifyOrderConfirmed(nctx, order); err != nil {
		s.metrics.NotificationFailures.Inc()
		s.log.Warn(logging.Fields{
			AttemptID: string(a.id),
			ClientID:  int64(a.clientID),
			OrderID:   int64(order.ID),
			Step:      string(tx.StepNotify),
			Status:    string(a.status),
			Message:   "order confirmation not delivered",
		}, err)
		return
	}
	s.advance(nctx, a, tx.StatusNotified, tx.StepNotify)
}

type attempt struct {
	id         tx.AttemptID
	clientID   domain.ClientID
	orderID    domain.OrderID
	status     tx.Status
	unrecorded []tx.Status
}

func (s *Service) begin(ctx context.Context, clientID domain.ClientID) *attempt {
	a := &attempt{id: tx.AttemptID(uuid.NewString()), clientID: clientID, status: tx.StatusStarted}
	if s.journal != nil {
		if err := s.journal.Create(ctx, a.id, clientID); err != nil {
			s.log.Warn(logging.Fields{AttemptID: string(a.id), Message: "journal create failed"}, err)
		}
	}
	s.log.Log(logging.Fields{AttemptID: string(a.id), ClientID: int64(clientID), Status: string(a.status), Message: "checkout started"})
	return a
}

func (s *Service) advance(ctx context.Context, a *attempt, to tx.Status, step tx.Step) {
	if s.transition(a, to, step) {
		s.record(ctx, a, "")
	}
}

// transition moves the attempt and logs it. Journal writes happen in record,
// never inside a unit of work.
func (s *Service) transition(a *attempt, to tx.Status, step tx.Step) bool {
	if !tx.CanTransition(a.status, to) {
		s.log.Warn(logging.Fields{AttemptID: string(a.id), Status: string(to), Message: "illegal checkout transition"},
			fmt.Errorf("%s -> %s", a.status, to))
		return false
	}
	a.status = to
	a.unrecorded = append(a.unrecorded, to)
	s.log.Log(logging.Fields{
		AttemptID: string(a.id),
		ClientID:  int64(a.clientID),
		OrderID:   int64(a.orderID),
		Step:      string(step),
		Status:    string(to),
		Message:   "checkout step",
	})
	return true
}

func (s *Service) observe(outcome string, start time.Time) {
	s.metrics.Outcomes.WithLabelValues(outcome).Inc()
	s.metrics.DurationMS.WithLabelValues(outcome).Observe(float64(time.Since(start).Milliseconds()))
}

func (s *Service) fail(ctx context.Context, a *attempt, cause error, outcome string, start time.Time) {
	s.observe(outcome, start)
	a.status = tx.StatusFailed
	a.unrecorded = append(a.unrecorded, tx.StatusFailed)
	fields := logging.Fields{
		AttemptID:  string(a.id),
		ClientID:   int64(a.clientID),
		Status:     string(a.status),
		DurationMS: time.Since(start).Milliseconds(),
		Message:    "checkout failed",
	}
	if domain.IsValidation(cause) {
		fields.Message = "checkout rejected: " + cause.Error()
		s.log.Log(fields)
	} else {
		s.log.Error(fields, cause)
	}
	s.record(context.WithoutCancel(ctx), a, cause.Error())
}

// record writes every status the attempt passed through since the last
// write, in order. reason goes with the last one.
func (s *Service) record(ctx context.Context, a *attempt, reason string) {
	pending := a.unrecorded
	a.unrecorded = nil
	if s.journal == nil {
		return
	}
	for i, st := range pending {
		r := ""
		if i == len(pending)-1 {
			r = reason
		}
		if err := s.journal.SetStatus(ctx, a.id, st, a.orderID, r); err != nil {
			s.log.Warn(logging.Fields{AttemptID: string(a.id), Status: string(st), Message: "journal update failed"}, err)
			return
		}
	}
}
