package pg

import (
	"context"
	"testing"

	"github.com/go-kit/log"
	"github.com/stretchr/testify/assert"
)

func TestNewStoreRejectsTableName(t *testing.T) {
	_, err := NewStore(context.Background(), Config{Conn: "postgres://localhost/x", Table: "runs; drop table x"}, log.NewNopLogger())
	assert.ErrorContains(t, err, "invalid table name")
}

func TestCreateTableQuery(t *testing.T) {
	q := createTableQuery("einfiler_runs")
	assert.Contains(t, q, "create table if not exists public.einfiler_runs")
	assert.Contains(t, q, "run_id text primary key")
}
