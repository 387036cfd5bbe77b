// Package dispatch routes engine operations to entity handlers.
//
// A Dispatcher owns an entity registry, a transport and the active connection.
// Every operation follows the same pipeline:
//
//	Query:  filter -> constraints -> GET request -> transport -> records
//	Create: record -> wire model -> POST request -> transport -> output record
//
// All validation (connection, entity type, filter, mapping, path building)
// happens before the transport is called.
package dispatch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/leapconnect/pkg/constraint"
	"github.com/leapstack-labs/leapconnect/pkg/core"
	"github.com/leapstack-labs/leapconnect/pkg/entity"
	"github.com/leapstack-labs/leapconnect/pkg/mapping"
	"github.com/leapstack-labs/leapconnect/pkg/request"
	"github.com/leapstack-labs/leapconnect/pkg/transport"
)

// Config holds dispatcher configuration.
type Config struct {
	// Registry holds the supported entity types (optional, entity.Default() if nil)
	Registry *entity.Registry
	// Transport executes requests (optional, an HTTP transport without signer if nil)
	Transport transport.Transport
	// Journal records every dispatched request (optional)
	Journal Journal
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Operation is a generic engine operation.
type Operation struct {
	Kind       core.OperationKind
	EntityType string
	// Filter is used by Query.
	Filter core.Expression
	// Record is used by Create. Its EntityName is used when EntityType is empty.
	Record *core.Record
}

// Dispatcher executes operations against the remote API.
// It is safe for concurrent use once connected.
type Dispatcher struct {
	registry  *entity.Registry
	builder   *request.Builder
	transport transport.Transport
	journal   Journal
	logger    *slog.Logger

	mu        sync.RWMutex
	conn      core.ConnectionConfig
	connID    string
	connected bool
}

// New creates a dispatcher. It is not connected.
func New(cfg Config) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := cfg.Registry
	if registry == nil {
		registry = entity.Default()
	}
	tr := cfg.Transport
	if tr == nil {
		tr = transport.New(transport.Config{Logger: logger})
	}
	return &Dispatcher{
		registry:  registry,
		builder:   request.NewBuilder(registry),
		transport: tr,
		journal:   cfg.Journal,
		logger:    logger,
	}
}

// Registry returns the dispatcher's entity registry.
func (d *Dispatcher) Registry() *entity.Registry {
	return d.registry
}

// Connect validates cfg and makes it the active connection.
// On a validation error the previous state is kept.
func (d *Dispatcher) Connect(ctx context.Context, cfg core.ConnectionConfig) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.conn = cfg
	d.connID = uuid.NewString()
	d.connected = true

	d.logger.Info("connected",
		slog.String("connection_id", d.connID),
		slog.String("base_url", cfg.BaseURL),
		slog.String("auth_mode", string(cfg.AuthMode)))
	return nil
}

// ConnectProperties connects from the engine's connection property bag.
func (d *Dispatcher) ConnectProperties(ctx context.Context, props map[string]string) error {
	cfg, err := core.ConfigFromProperties(props)
	if err != nil {
		return err
	}
	return d.Connect(ctx, cfg)
}

// Disconnect drops the active connection. It is a no-op when not connected.
func (d *Dispatcher) Disconnect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		d.logger.Info("disconnected", slog.String("connection_id", d.connID))
	}
	d.conn = core.ConnectionConfig{}
	d.connID = ""
	d.connected = false
}

// IsConnected reports whether Connect succeeded and Disconnect was not called since.
func (d *Dispatcher) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// ConnectionID returns the id of the active connection, or "".
func (d *Dispatcher) ConnectionID() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connID
}

func (d *Dispatcher) connection() (core.ConnectionConfig, string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if !d.connected {
		return core.ConnectionConfig{}, "", core.ErrNotConnected
	}
	return d.conn, d.connID, nil
}

// Execute runs a generic operation. Query results are returned as Output.
func (d *Dispatcher) Execute(ctx context.Context, op Operation) (*core.OperationResult, error) {
	switch op.Kind.Normalize() {
	case core.OperationQuery:
		records, err := d.Query(ctx, op.EntityType, op.Filter)
		if err != nil {
			return nil, err
		}
		return &core.OperationResult{Success: true, Output: records}, nil

	case core.OperationCreate:
		entityType := op.EntityType
		if entityType == "" && op.Record != nil {
			entityType = op.Record.EntityName
		}
		return d.create(ctx, entityType, op.Record)

	default:
		if _, _, err := d.connection(); err != nil {
			return nil, err
		}
		return nil, &core.UnsupportedOperationError{EntityType: op.EntityType, Operation: op.Kind}
	}
}

// Query fetches the records of entityType matching filter. A filter on the
// identifier addresses a single item; otherwise the collection is listed.
func (d *Dispatcher) Query(ctx context.Context, entityType string, filter core.Expression) ([]*core.Record, error) {
	cfg, connID, err := d.connection()
	if err != nil {
		return nil, err
	}
	def, err := d.registry.Lookup(entityType, core.OperationQuery)
	if err != nil {
		return nil, err
	}

	constraints, err := constraint.Translate(filter)
	if err != nil {
		return nil, err
	}
	req, err := d.builder.BuildQuery(def.Name, constraints, cfg)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("dispatching query",
		slog.String("connection_id", connID),
		slog.String("entity", def.Name),
		slog.String("constraints", constraints.String()))

	resp, err := d.send(ctx, connID, def.Name, core.OperationQuery, req)
	if err != nil {
		return nil, err
	}

	wires, err := mapping.Decode(resp.Body)
	if err != nil {
		return nil, d.remoteError(def.Name, core.OperationQuery, resp.Status, err)
	}
	records := make([]*core.Record, 0, len(wires))
	for _, w := range wires {
		rec, err := mapping.FromWire(def, w)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// Create posts rec to the collection of rec.EntityName. The output record
// carries the fields returned by the remote and the created item's locator.
func (d *Dispatcher) Create(ctx context.Context, rec *core.Record) (*core.OperationResult, error) {
	var entityType string
	if rec != nil {
		entityType = rec.EntityName
	}
	return d.create(ctx, entityType, rec)
}

func (d *Dispatcher) create(ctx context.Context, entityType string, rec *core.Record) (*core.OperationResult, error) {
	cfg, connID, err := d.connection()
	if err != nil {
		return nil, err
	}
	def, err := d.registry.Lookup(entityType, core.OperationCreate)
	if err != nil {
		return nil, err
	}

	wire, err := mapping.ToWire(def, rec)
	if err != nil {
		return nil, err
	}
	req, err := d.builder.BuildCreate(def.Name, wire, cfg)
	if err != nil {
		return nil, err
	}

	d.logger.Debug("dispatching create",
		slog.String("connection_id", connID),
		slog.String("entity", def.Name))

	resp, err := d.send(ctx, connID, def.Name, core.OperationCreate, req)
	if err != nil {
		return nil, err
	}

	out, err := outputRecord(def, resp)
	if err != nil {
		return nil, d.remoteError(def.Name, core.OperationCreate, resp.Status, err)
	}
	return &core.OperationResult{
		Success:         true,
		ObjectsAffected: 1,
		Output:          []*core.Record{out},
	}, nil
}

// outputRecord builds the create output: fields of a JSON object body, then
// the locator from the Location header or a plain-text body.
func outputRecord(def *entity.Definition, resp *core.Response) (*core.Record, error) {
	out := core.NewRecord(def.Name)
	body := bytes.TrimSpace(resp.Body)
	isJSON := len(body) > 0 && (body[0] == '{' || body[0] == '[')

	if len(body) > 0 && body[0] == '{' {
		wires, err := mapping.Decode(body)
		if err != nil {
			return nil, err
		}
		out, err = mapping.FromWire(def, wires[0])
		if err != nil {
			return nil, err
		}
	}

	if def.OutputField == "" {
		return out, nil
	}
	locator := resp.Location()
	if locator == "" && !isJSON {
		locator = string(body)
	}
	if locator != "" {
		out.Set(def.OutputField, locator)
	}
	return out, nil
}

// send executes req and records it in the journal. Transport failures are
// wrapped in RemoteRequestError.
func (d *Dispatcher) send(ctx context.Context, connID, entityType string, op core.OperationKind, req *core.Request) (*core.Response, error) {
	start := time.Now()
	resp, err := d.transport.Execute(ctx, req)
	elapsed := time.Since(start)

	status := 0
	if resp != nil {
		status = resp.Status
	}
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		status = statusErr.Status
	}

	d.record(ctx, Entry{
		ConnectionID: connID,
		EntityType:   entityType,
		Operation:    op,
		Method:       req.Method,
		URL:          req.URL,
		Status:       status,
		Err:          err,
		Duration:     elapsed,
		StartedAt:    start,
	})

	if err != nil {
		return nil, d.remoteError(entityType, op, status, err)
	}
	if resp == nil {
		return nil, d.remoteError(entityType, op, 0, fmt.Errorf("transport returned no response"))
	}
	return resp, nil
}

func (d *Dispatcher) remoteError(entityType string, op core.OperationKind, status int, err error) error {
	remoteErr := &core.RemoteRequestError{
		EntityType: entityType,
		Operation:  op,
		Status:     status,
		Err:        err,
	}
	d.logger.Error(fmt.Sprintf("error on %s for %s", verb(op), entityType),
		slog.Int("status", status),
		slog.String("error", err.Error()))
	return remoteErr
}

func verb(op core.OperationKind) string {
	if op.Normalize() == core.OperationCreate {
		return "create"
	}
	return "query"
}

func (d *Dispatcher) record(ctx context.Context, e Entry) {
	if d.journal == nil {
		return
	}
	// The request already happened; a journal failure must not change its outcome.
	if err := d.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		d.logger.Warn("failed to record journal entry",
			slog.String("entity", e.EntityType),
			slog.String("error", err.Error()))
	}
}
