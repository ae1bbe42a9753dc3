package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/c360studio/semdex/index"
	"github.com/c360studio/semdex/query"
	"github.com/c360studio/semdex/triple"
)

// NATS subjects served by the query service.
const (
	// QuerySubject takes a query AST in its JSON wire form and replies
	// with a QueryReply.
	QuerySubject = "semdex.query"

	// ResolveSubjectPrefix prefixes resolve requests; the identifier is
	// everything after it, dots included.
	ResolveSubjectPrefix = "semdex.resolve."

	// queueGroup load-balances requests across server instances.
	queueGroup = "semdex"
)

// NATSServer answers query and resolve requests over NATS and persists
// identifier snapshots to JetStream KV across restarts.
type NATSServer struct {
	service *query.Service
	logger  *slog.Logger
	bucket  string

	nc   *nats.Conn
	js   jetstream.JetStream
	subs []*nats.Subscription
}

// NewNATSServer connects to NATS and prepares the query endpoints. An
// empty bucket name selects the default snapshot bucket.
func NewNATSServer(service *query.Service, url, bucket string, logger *slog.Logger) (*NATSServer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if bucket == "" {
		bucket = index.DefaultSnapshotBucket
	}

	nc, err := nats.Connect(url,
		nats.Name("semdex"),
		nats.MaxReconnects(5),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get JetStream context: %w", err)
	}

	return &NATSServer{
		service: service,
		logger:  logger,
		bucket:  bucket,
		nc:      nc,
		js:      js,
	}, nil
}

// Start restores the identifier snapshot and subscribes the endpoints.
func (n *NATSServer) Start(ctx context.Context) error {
	snapshot, err := index.LoadSnapshot(ctx, n.js, n.bucket)
	switch {
	case err == nil:
		restored := n.service.ImportIdentifiers(snapshot)
		n.logger.Info("Identifier snapshot restored", "identifiers", restored)
	case errors.Is(err, index.ErrNotFound):
		n.logger.Debug("No identifier snapshot found", "bucket", n.bucket)
	default:
		return fmt.Errorf("load snapshot: %w", err)
	}

	querySub, err := n.nc.QueueSubscribe(QuerySubject, queueGroup, n.handleQuery)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", QuerySubject, err)
	}
	n.subs = append(n.subs, querySub)

	resolveSub, err := n.nc.QueueSubscribe(ResolveSubjectPrefix+">", queueGroup, n.handleResolve)
	if err != nil {
		return fmt.Errorf("subscribe %s>: %w", ResolveSubjectPrefix, err)
	}
	n.subs = append(n.subs, resolveSub)

	n.logger.Info("NATS query service started",
		"query_subject", QuerySubject,
		"resolve_subject", ResolveSubjectPrefix+">")
	return nil
}

// Stop saves the identifier snapshot, unsubscribes the endpoints, and
// closes the connection.
func (n *NATSServer) Stop(ctx context.Context) error {
	for _, sub := range n.subs {
		if err := sub.Unsubscribe(); err != nil {
			n.logger.Warn("Failed to unsubscribe", "subject", sub.Subject, "error", err)
		}
	}
	n.subs = nil

	var saveErr error
	if err := index.SaveSnapshot(ctx, n.js, n.bucket, n.service.ExportIdentifiers()); err != nil {
		saveErr = fmt.Errorf("save snapshot: %w", err)
		n.logger.Error("Failed to save identifier snapshot", "error", err)
	} else {
		n.logger.Info("Identifier snapshot saved", "bucket", n.bucket)
	}

	n.nc.Close()
	return saveErr
}

// QueryReply is the reply on the query subject.
type QueryReply struct {
	Bindings []*triple.Binding `json:"bindings,omitempty"`
	Count    int               `json:"count"`
	Error    string            `json:"error,omitempty"`
}

// ResolveReply is the reply on resolve subjects.
type ResolveReply struct {
	ID       string `json:"id"`
	Location string `json:"location,omitempty"`
	Found    bool   `json:"found"`
}

func (n *NATSServer) handleQuery(msg *nats.Msg) {
	n.respond(msg, n.queryReply(msg.Data))
}

// queryReply decodes and executes one AST request.
func (n *NATSServer) queryReply(data []byte) QueryReply {
	ast, err := query.DecodeQuery(data)
	if err != nil {
		return QueryReply{Error: err.Error()}
	}

	result, err := n.service.QueryAST(context.Background(), ast)
	if err != nil {
		return QueryReply{Error: err.Error()}
	}

	return QueryReply{Bindings: result.Bindings, Count: result.Count}
}

func (n *NATSServer) handleResolve(msg *nats.Msg) {
	n.respond(msg, n.resolveReply(msg.Subject))
}

// resolveReply answers one resolve subject. The identifier is the
// remainder after the prefix, so ids containing dots stay intact.
func (n *NATSServer) resolveReply(subject string) ResolveReply {
	id := strings.TrimPrefix(subject, ResolveSubjectPrefix)
	location, found := n.service.Resolve(id)
	return ResolveReply{ID: id, Location: location, Found: found}
}

func (n *NATSServer) respond(msg *nats.Msg, v any) {
	if msg.Reply == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		n.logger.Error("Failed to marshal reply", "subject", msg.Subject, "error", err)
		return
	}
	if err := msg.Respond(data); err != nil {
		n.logger.Warn("Failed to respond", "subject", msg.Subject, "error", err)
	}
}
