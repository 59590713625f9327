package kv

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passrelay/internal/platform/config"
)

// exerciseStore runs the behaviour every backend must share.
func exerciseStore(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	_, err := store.Get(ctx, "webhook:missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.Put(ctx, "webhook:abc", []byte(`{"id":"abc"}`)))
	got, err := store.Get(ctx, "webhook:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(got))

	require.NoError(t, store.Put(ctx, "webhook:abc", []byte(`{"id":"abc","isActive":true}`)))
	got, err = store.Get(ctx, "webhook:abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc","isActive":true}`, string(got))

	require.NoError(t, store.Delete(ctx, "webhook:abc"))
	_, err = store.Get(ctx, "webhook:abc")
	assert.ErrorIs(t, err, ErrNotFound)

	// deleting a missing key is not an error
	assert.NoError(t, store.Delete(ctx, "webhook:abc"))
	assert.NoError(t, store.Ping(ctx))
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	value := []byte("abc")
	require.NoError(t, store.Put(ctx, "k", value))
	value[0] = 'z'

	got, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(context.Background(), config.SQLiteConfig{Path: ":memory:"})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStore_GetError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT value FROM kv_store WHERE key = ?").
		WithArgs("logs:abc").
		WillReturnError(sql.ErrConnDone)

	store := NewSQLiteStore(db)
	_, err = store.Get(context.Background(), "logs:abc")
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLiteStore_Put(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO kv_store").
		WithArgs("logs:abc", []byte("[]"), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	store := NewSQLiteStore(db)
	require.NoError(t, store.Put(context.Background(), "logs:abc", []byte("[]")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisStore(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store, err := NewRedisStore(client, "passrelay:")
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)

	require.NoError(t, store.Put(context.Background(), "appwallet:stats", []byte("{}")))
	assert.True(t, mr.Exists("passrelay:appwallet:stats"))
}

func TestNewRedisStore_NilClient(t *testing.T) {
	_, err := NewRedisStore(nil, "")
	assert.Error(t, err)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("PASSRELAY_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("PASSRELAY_TEST_POSTGRES_URL not set")
	}
	store, err := OpenPostgres(context.Background(), config.PostgresConfig{URL: url, Table: "kv_store_test"})
	require.NoError(t, err)
	defer store.Close()

	exerciseStore(t, store)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.KVConfig{Driver: "etcd"})
	assert.Error(t, err)
}

type recordedOp struct {
	op  string
	err error
}

type opRecorder struct {
	ops []recordedOp
}

func (r *opRecorder) RecordEvent(string, string)                        {}
func (r *opRecorder) RecordProviderExecute(string, bool, time.Duration) {}
func (r *opRecorder) RecordAnalyticsEvent()                             {}
func (r *opRecorder) RecordForward(string)                              {}
func (r *opRecorder) BackgroundTaskStarted()                            {}
func (r *opRecorder) BackgroundTaskFinished()                           {}
func (r *opRecorder) RecordStorageOperation(op string, _ time.Duration, err error) {
	r.ops = append(r.ops, recordedOp{op: op, err: err})
}

func TestInstrumented(t *testing.T) {
	rec := &opRecorder{}
	store := NewInstrumented(NewMemoryStore(), rec)
	ctx := context.Background()

	_, err := store.Get(ctx, "missing")
	require.True(t, errors.Is(err, ErrNotFound))
	require.NoError(t, store.Put(ctx, "k", []byte("v")))
	require.NoError(t, store.Delete(ctx, "k"))

	require.Len(t, rec.ops, 3)
	assert.Equal(t, "get", rec.ops[0].op)
	assert.NoError(t, rec.ops[0].err, "a miss should not count as an error")
	assert.Equal(t, "put", rec.ops[1].op)
	assert.Equal(t, "delete", rec.ops[2].op)
}
