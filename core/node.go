package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tastefun/core/events"
	"tastefun/native/custody"
	"tastefun/native/ideas"
	"tastefun/native/market"
	"tastefun/native/params"
	"tastefun/observability/metrics"
	"tastefun/observability/otel"
	"tastefun/state"
	"tastefun/storage"
)

// baseIssuer is the only capability allowed to create base currency.
var baseIssuer = custody.MustClaim(custody.DomainBaseIssuer)

var (
	ErrNilDatabase = errors.New("core: database required")
	ErrFaucetOff   = errors.New("core: faucet disabled")
)

// Options configures a Node.
type Options struct {
	Params   params.Params
	Oracle   [20]byte
	Treasury [20]byte
	DustSink [20]byte
	Admin    [20]byte
	// Emitter receives committed events, e.g. the event journal.
	Emitter events.Emitter
	Logger  *slog.Logger
	// Now overrides the clock, in unix seconds.
	Now func() int64
	// Faucet allows the admin to credit base currency.
	Faucet bool
}

// Node is the central controller. It runs every public operation inside a
// single storage transaction and only publishes the operation's events once
// that transaction has committed.
type Node struct {
	db      storage.Database
	ideas   *ideas.Engine
	market  *market.Engine
	params  params.Params
	admin   [20]byte
	sink    [20]byte
	faucet  bool
	nowFn   func() int64
	emitter events.Emitter
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.MarketMetrics

	// commitMu orders event publication by commit order.
	commitMu sync.Mutex

	streamMu      sync.Mutex
	streamSubs    map[uint64]chan StreamEvent
	streamNextID  uint64
	streamSeq     uint64
	streamHistory []StreamEvent
}

// NewNode wires the engines over db.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, ErrNilDatabase
	}
	if err := opts.Params.Validate(); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = func() int64 { return time.Now().Unix() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	emitter := opts.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}

	sink := opts.DustSink
	if sink == ([20]byte{}) {
		sink = opts.Treasury
	}

	ideasEngine := ideas.NewEngine()
	ideasEngine.SetParams(opts.Params)
	ideasEngine.SetNowFunc(now)
	ideasEngine.SetOracle(opts.Oracle)
	ideasEngine.SetTreasury(opts.Treasury)
	ideasEngine.SetDustSink(opts.DustSink)

	marketEngine := market.NewEngine()
	marketEngine.SetParams(opts.Params)
	marketEngine.SetNowFunc(now)
	marketEngine.SetTreasury(opts.Treasury)
	marketEngine.SetDustSink(opts.DustSink)
	marketEngine.SetAdmin(opts.Admin)

	return &Node{
		db:      db,
		ideas:   ideasEngine,
		market:  marketEngine,
		params:  opts.Params,
		admin:   opts.Admin,
		sink:    sink,
		faucet:  opts.Faucet,
		nowFn:   now,
		emitter: emitter,
		logger:  logger.With(slog.String("component", "node")),
		tracer:  otel.Tracer("tastefun/core"),
		metrics: metrics.Market(),
	}, nil
}

// Params returns the protocol parameters the node runs with.
func (n *Node) Params() params.Params { return n.params }

// DustSink returns the address receiving rounding dust and swept residuals.
func (n *Node) DustSink() [20]byte { return n.sink }

func (n *Node) now() int64 {
	if n == nil || n.nowFn == nil {
		return time.Now().Unix()
	}
	return n.nowFn()
}

// engines is the per-transaction view handed to operations.
type engines struct {
	state  *state.Manager
	ideas  *ideas.Engine
	market *market.Engine
	ledger *custody.Ledger
	emit   events.Emitter
}

func (n *Node) bind(tx storage.Tx, emitter events.Emitter) engines {
	manager := state.NewManager(tx)
	return engines{
		state:  manager,
		ideas:  n.ideas.WithState(manager, emitter),
		market: n.market.WithState(manager, emitter),
		ledger: custody.NewLedger(manager),
		emit:   emitter,
	}
}

// update runs fn atomically. Events raised inside fn are buffered and
// dropped if the transaction fails; committed events are published before
// the next update commits.
func (n *Node) update(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(engines) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, span := n.tracer.Start(ctx, "node."+op, trace.WithAttributes(attrs...))
	defer span.End()

	n.commitMu.Lock()
	defer n.commitMu.Unlock()

	start := time.Now()
	buf := &events.Buffer{}
	err := n.db.Update(func(tx storage.Tx) error {
		return fn(n.bind(tx, buf))
	})
	n.metrics.ObserveOperation(op, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		n.logger.Warn("operation rejected", slog.String("operation", op), slog.Any("error", err))
		return err
	}
	committed := len(buf.Events())
	buf.Flush(n)
	span.SetAttributes(attribute.Int("events", committed))
	n.logger.Debug("operation committed", slog.String("operation", op), slog.Int("events", committed))
	return nil
}

func (n *Node) view(fn func(engines) error) error {
	return n.db.View(func(tx storage.Tx) error {
		return fn(n.bind(tx, events.NoopEmitter{}))
	})
}

// Emit fans a committed event out to metrics, stream subscribers and the
// configured downstream emitter.
func (n *Node) Emit(evt events.Event) {
	if n == nil || evt == nil {
		return
	}
	n.recordEventMetrics(evt)
	n.publishEvent(evt)
	n.emitter.Emit(evt)
}

func ideaAttrs(key ideas.IdeaKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("idea.initiator", fmt.Sprintf("%x", key.Initiator)),
		attribute.String("idea.id", strconv.FormatUint(key.ID, 10)),
	}
}

func themeAttrs(key market.ThemeKey) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("theme.creator", fmt.Sprintf("%x", key.Creator)),
		attribute.String("theme.id", strconv.FormatUint(key.ID, 10)),
	}
}

// Credit mints base currency to addr. Only the admin may call it and only
// when the faucet is enabled.
func (n *Node) Credit(ctx context.Context, caller, to [20]byte, amount uint64, memo string) error {
	if !n.faucet {
		return ErrFaucetOff
	}
	if caller != n.admin {
		return market.ErrUnauthorized
	}
	return n.update(ctx, "credit", nil, func(e engines) error {
		if err := e.ledger.Mint(baseIssuer, custody.BaseAsset, to, amount); err != nil {
			return err
		}
		e.emit.Emit(events.BaseMinted{Recipient: to, Amount: amount, Memo: memo})
		return nil
	})
}

// Balance returns the custody balance of addr in asset.
func (n *Node) Balance(addr [20]byte, asset custody.Asset) (uint64, error) {
	var out uint64
	err := n.view(func(e engines) error {
		bal, err := e.ledger.Balance(addr, asset)
		out = bal
		return err
	})
	return out, err
}

// Supply returns the tracked total supply of asset.
func (n *Node) Supply(asset custody.Asset) (uint64, error) {
	var out uint64
	err := n.view(func(e engines) error {
		supply, err := e.ledger.Supply(asset)
		out = supply
		return err
	})
	return out, err
}
