package mongodb

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Transactor implements ports.TxnRunner on MongoDB sessions. Whether
// multi-document transactions are available is probed once at construction;
// the answer never changes for the life of the process.
type Transactor struct {
	client    *mongo.Client
	supported bool
}

// NewTransactor probes the deployment topology and returns a runner. Replica
// sets and mongos report transaction support; standalone servers do not. A
// probe failure downgrades to unsupported, which callers treat as "use the
// non-transactional path".
func NewTransactor(ctx context.Context, client *mongo.Client, log zerolog.Logger) *Transactor {
	t := &Transactor{client: client}

	var hello struct {
		SetName string `bson:"setName"`
		Msg     string `bson:"msg"`
	}
	err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
	if err != nil {
		log.Warn().Err(err).Msg("topology probe failed, multi-document transactions disabled")
		return t
	}

	t.supported = hello.SetName != "" || hello.Msg == "isdbgrid"
	log.Info().
		Bool("transactions", t.supported).
		Str("replica_set", hello.SetName).
		Msg("MongoDB topology probed")
	return t
}

// Supported reports the probe outcome.
func (t *Transactor) Supported() bool {
	return t.supported
}

// WithinTransaction runs fn inside one session transaction with snapshot
// reads and majority writes. Store calls made with fn's context join the
// transaction. The driver retries fn on transient errors, which includes the
// write conflicts two concurrent reservations provoke on the same record.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.supported {
		return fmt.Errorf("multi-document transactions not supported by deployment")
	}

	session, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		return nil, fn(sessCtx)
	}, txnOpts)
	return err
}
