// Package testutils starts throwaway backing services for integration tests.
package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"github.com/sagerock/google-drive-to-qdrant/features/history"
)

type IntegrationSuite struct {
	T        *testing.T
	DB       *sql.DB
	DSN      string
	Qdrant   *qdrant.Client
	Weaviate *weaviate.Client
	NSQ      *nsq.Producer
	NSQDAddr string
	NSQDHTTP string

	containers []testcontainers.Container
}

// NewIntegrationSuite skips the test under -short.
func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	s := &IntegrationSuite{T: t}
	t.Cleanup(s.Teardown)
	return s
}

// SetupPostgres starts Postgres and applies the history migrations.
func (s *IntegrationSuite) SetupPostgres() {
	ctx := context.Background()
	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("drivesync_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.containers = append(s.containers, pgContainer)

	s.DSN, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", s.DSN)
	require.NoError(s.T, err)
	require.NoError(s.T, history.Migrate(s.DB))
}

func (s *IntegrationSuite) SetupQdrant() {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "qdrant/qdrant:v1.12.4",
			ExposedPorts: []string{"6333/tcp", "6334/tcp"},
			WaitingFor:   wait.ForHTTP("/readyz").WithPort("6333/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T, err)
	s.containers = append(s.containers, c)

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "6334")
	require.NoError(s.T, err)

	s.Qdrant, err = qdrant.NewClient(&qdrant.Config{Host: host, Port: port.Int()})
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) SetupWeaviate() {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "semitechnologies/weaviate:1.25.0",
			ExposedPorts: []string{"8080/tcp", "50051/tcp"},
			Env: map[string]string{
				"AUTHENTICATION_ANONYMOUS_ACCESS_ENABLED": "true",
				"DEFAULT_VECTORIZER_MODULE":               "none",
				"PERSISTENCE_DATA_PATH":                   "/var/lib/weaviate",
			},
			WaitingFor: wait.ForHTTP("/v1/meta").WithPort("8080/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T, err)
	s.containers = append(s.containers, c)

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	port, err := c.MappedPort(ctx, "8080")
	require.NoError(s.T, err)

	s.Weaviate, err = weaviate.NewClient(weaviate.Config{
		Host:   fmt.Sprintf("%s:%s", host, port.Port()),
		Scheme: "http",
	})
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) SetupNSQ() {
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "nsqio/nsq:v1.3.0",
			ExposedPorts: []string{"4150/tcp", "4151/tcp"},
			Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
			WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(s.T, err)
	s.containers = append(s.containers, c)

	host, err := c.Host(ctx)
	require.NoError(s.T, err)
	tcpPort, err := c.MappedPort(ctx, "4150")
	require.NoError(s.T, err)
	httpPort, err := c.MappedPort(ctx, "4151")
	require.NoError(s.T, err)

	s.NSQDAddr = fmt.Sprintf("%s:%s", host, tcpPort.Port())
	s.NSQDHTTP = fmt.Sprintf("%s:%s", host, httpPort.Port())
	s.NSQ, err = nsq.NewProducer(s.NSQDAddr, nsq.NewConfig())
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) Teardown() {
	if s.NSQ != nil {
		s.NSQ.Stop()
		s.NSQ = nil
	}
	if s.DB != nil {
		_ = s.DB.Close()
		s.DB = nil
	}
	if s.Qdrant != nil {
		_ = s.Qdrant.Close()
		s.Qdrant = nil
	}
	ctx := context.Background()
	for _, c := range s.containers {
		if err := c.Terminate(ctx); err != nil {
			s.T.Logf("failed to terminate container: %v", err)
		}
	}
	s.containers = nil
}
