package couchbase

import (
	"fmt"
	"strings"
	"time"

	"github.com/couchbase/gocb/v2"
	"github.com/rs/zerolog"
)

// Config names the cluster and the keyspace holding clinical resources.
type Config struct {
	URL        string
	Username   string
	Password   string
	Bucket     string
	Scope      string
	Collection string
}

// ConnectionManager handles Couchbase cluster and keyspace connections
type ConnectionManager struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	scope      *gocb.Scope
	collection *gocb.Collection
	log        zerolog.Logger
}

// NewConnectionManager connects to the cluster and opens the configured collection
func NewConnectionManager(cfg Config, logger zerolog.Logger) (*ConnectionManager, error) {
	connectionString := connectionString(cfg.URL)

	cluster, err := gocb.Connect(connectionString, gocb.ClusterOptions{
		Authenticator: gocb.PasswordAuthenticator{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cluster: %w", err)
	}

	if err := cluster.WaitUntilReady(30*time.Second, nil); err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("failed to wait for cluster: %w", err)
	}

	// Bucket is provisioned out of band; it is never created here.
	bucket := cluster.Bucket(cfg.Bucket)
	if err := bucket.WaitUntilReady(10*time.Second, nil); err != nil {
		cluster.Close(nil)
		return nil, fmt.Errorf("bucket '%s' is not accessible: %w", cfg.Bucket, err)
	}

	scopeName := cfg.Scope
	if scopeName == "" {
		scopeName = "_default"
	}
	collectionName := cfg.Collection
	if collectionName == "" {
		collectionName = "_default"
	}
	scope := bucket.Scope(scopeName)

	logger.Info().
		Str("connection_string", connectionString).
		Str("bucket", cfg.Bucket).
		Str("scope", scopeName).
		Str("collection", collectionName).
		Msg("Connected to Couchbase")

	return &ConnectionManager{
		cluster:    cluster,
		bucket:     bucket,
		scope:      scope,
		collection: scope.Collection(collectionName),
		log:        logger,
	}, nil
}

// connectionString turns the configured URL into a gocb connection string.
// http:// maps to couchbase://, https:// to couchbases://, a bare host gets couchbase://.
func connectionString(url string) string {
	switch {
	case strings.HasPrefix(url, "couchbase://"), strings.HasPrefix(url, "couchbases://"):
		return url
	case strings.HasPrefix(url, "http://"):
		return "couchbase://" + strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "https://"):
		return "couchbases://" + strings.TrimPrefix(url, "https://")
	default:
		return "couchbase://" + url
	}
}

// EnsureIndexes creates the secondary index Scan relies on
func (cm *ConnectionManager) EnsureIndexes() error {
	err := cm.collection.QueryIndexes().CreateIndex("idx_resource_type", []string{"resourceType"},
		&gocb.CreateQueryIndexOptions{IgnoreIfExists: true})
	if err != nil {
		return fmt.Errorf("failed to create resourceType index: %w", err)
	}
	return nil
}

// Ping checks the key-value service answers
func (cm *ConnectionManager) Ping() error {
	_, err := cm.cluster.Ping(&gocb.PingOptions{
		ServiceTypes: []gocb.ServiceType{gocb.ServiceTypeKeyValue},
		Timeout:      5 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to ping cluster: %w", err)
	}
	return nil
}

// Close closes the Couchbase connection
func (cm *ConnectionManager) Close() error {
	return cm.cluster.Close(nil)
}

// Collection returns the collection holding resource documents
func (cm *ConnectionManager) Collection() *gocb.Collection {
	return cm.collection
}

// Scope returns the scope queries run against
func (cm *ConnectionManager) Scope() *gocb.Scope {
	return cm.scope
}
