package storage

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"systemdstat/pkg/logx"
)

func sampleRecord(instance string, v float64) Record {
	return Record{
		At:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Plugin:   "systemd",
		Instance: instance,
		Type:     "gauge",
		TypeInst: "running",
		Value:    v,
	}
}

func TestOpenDisabled(t *testing.T) {
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		require.Nil(t, st)
	}
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	require.ErrorContains(t, err, "unknown storage driver")
}

func TestFileStoreAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "samples.jsonl")
	st, err := Open(Config{Driver: "file", Path: path}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.AppendSample(ctx, sampleRecord("service1", 1)))
	require.NoError(t, st.AppendSample(ctx, sampleRecord("service2foo", 0)))
	require.NoError(t, st.Close())
	require.ErrorIs(t, st.AppendSample(ctx, sampleRecord("late", 1)), ErrDisabled)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var got []Record
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		got = append(got, r)
	}
	require.NoError(t, sc.Err())
	require.Len(t, got, 2)
	require.Equal(t, "service1", got[0].Instance)
	require.Equal(t, 0.0, got[1].Value)
}

func TestFileStoreRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logx.Nop())
	require.Error(t, err)
}

func TestSQLiteStoreAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	st, err := Open(Config{Driver: "sqlite", Path: path, BusyTimeout: time.Second}, logx.Nop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, st.AppendSample(ctx, sampleRecord("service1", 1)))
	require.NoError(t, st.AppendSample(ctx, Record{Plugin: "systemd", Instance: "service2foo", Type: "gauge", TypeInst: "running"}))
	require.NoError(t, st.Close())

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM samples`).Scan(&n))
	require.Equal(t, 2, n)

	var v float64
	require.NoError(t, db.QueryRow(`SELECT value FROM samples WHERE plugin_instance = ?`, "service1").Scan(&v))
	require.Equal(t, 1.0, v)
}
