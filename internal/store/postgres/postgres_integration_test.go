package postgres

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Yashasrn33/RPGAI/internal/store"
	"github.com/Yashasrn33/RPGAI/internal/store/storetest"
)

// makePGStore connects to the database named by RPGAI_TEST_POSTGRES_DSN when
// set, otherwise it starts a throwaway postgres container.
func makePGStore(t *testing.T) store.MemoryStore {
	t.Helper()
	dsn := os.Getenv("RPGAI_TEST_POSTGRES_DSN")
	if dsn == "" {
		dsn = startPostgres(t)
	}
	s, err := New(dsn)
	if err != nil {
		t.Fatalf("postgres open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "rpgai",
			"POSTGRES_PASSWORD": "rpgai",
			"POSTGRES_DB":       "rpgai_test",
		},
		// Postgres logs readiness once for the init bootstrap and again
		// for the real server.
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Skipf("docker not available; skipping postgres store integration test: %v", err)
	}
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	host, err := ctr.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := ctr.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("postgres://rpgai:rpgai@%s:%s/rpgai_test?sslmode=disable", host, port.Port())
}

func TestPostgresStore_Compliance(t *testing.T) {
	storetest.Run(t, makePGStore)
}
