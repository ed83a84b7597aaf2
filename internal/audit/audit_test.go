package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/codi-gateway/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

func TestNewRecord(t *testing.T) {
	a, err := newRecord(Entry{Payload: json.RawMessage(`{"b":1,"a":"x"}`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := newRecord(Entry{Payload: json.RawMessage(`{ "a": "x", "b": 1 }`)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.Checksum != b.Checksum {
		t.Errorf("checksum depends on key order: %s != %s", a.Checksum, b.Checksum)
	}
	if a.ID == b.ID || a.ID == uuid.Nil {
		t.Error("expected distinct non-nil ids")
	}

	if _, err := newRecord(Entry{Payload: json.RawMessage(`not json`)}); err == nil {
		t.Error("expected an error for a payload that is not JSON")
	}
}

func TestLogStore(t *testing.T) {
	var buf bytes.Buffer
	store := NewLogStore(slog.New(slog.NewJSONHandler(&buf, nil)))

	code := -3
	record, err := store.Record(context.Background(), Entry{
		Direction:      Inbound,
		Environment:    "non-production",
		PayloadKey:     "cadenaInformacion",
		Payload:        json.RawMessage(`{"cadenaInformacion":{"monto":1}}`),
		Outcome:        OutcomeRejected,
		ResultCode:     &code,
		IDMensajeCobro: "ABCDE12345",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("could not parse log line %q: %v", buf.String(), err)
	}
	if line["audit_id"] != record.ID.String() {
		t.Errorf("audit_id = %v, want %s", line["audit_id"], record.ID)
	}
	if line["payload_checksum"] != record.Checksum {
		t.Errorf("payload_checksum = %v, want %s", line["payload_checksum"], record.Checksum)
	}
	if line["resultado"] != float64(-3) {
		t.Errorf("resultado = %v, want -3", line["resultado"])
	}
	if line["id_mensaje_cobro"] != "ABCDE12345" {
		t.Errorf("id_mensaje_cobro = %v", line["id_mensaje_cobro"])
	}
	if _, ok := line["endpoint"]; ok {
		t.Error("empty endpoint should not be logged")
	}
}

// fakeDB captures the arguments of the insert and returns them as the stored row
type fakeDB struct {
	args []any
	err  error
}

func (f *fakeDB) Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeDB) Query(context.Context, string, ...interface{}) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeDB) QueryRow(_ context.Context, _ string, args ...interface{}) pgx.Row {
	f.args = args
	return fakeRow{db: f}
}

type fakeRow struct {
	db *fakeDB
}

var storedAt = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func (r fakeRow) Scan(dest ...any) error {
	if r.db.err != nil {
		return r.db.err
	}
	*dest[0].(*uuid.UUID) = r.db.args[0].(uuid.UUID)
	*dest[1].(*pgtype.Timestamptz) = pgtype.Timestamptz{Time: storedAt, Valid: true}
	return nil
}

func TestPostgresStore(t *testing.T) {
	db := &fakeDB{}
	store := NewPostgresStore(database.New(db))

	code := 0
	record, err := store.Record(context.Background(), Entry{
		Direction:   Outbound,
		Environment: "production",
		PayloadKey:  "datosMC",
		Payload:     json.RawMessage(`{"datosMC":{"monto":1}}`),
		Outcome:     OutcomeAccepted,
		ResultCode:  &code,
		Endpoint:    "secondary",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !record.CreatedAt.Equal(storedAt) {
		t.Errorf("CreatedAt = %v, want the stored time", record.CreatedAt)
	}

	// CreateAuditEntry argument order: id, direction, environment, payload_key, checksum,
	// payload, outcome, result_code, endpoint, id_mensaje_cobro, clave_rastreo, error_message
	if len(db.args) != 12 {
		t.Fatalf("expected 12 query arguments, got %d", len(db.args))
	}
	if db.args[0].(uuid.UUID) != record.ID {
		t.Error("id argument does not match the record id")
	}
	if db.args[4].(string) != record.Checksum {
		t.Error("checksum argument does not match the record checksum")
	}
	if rc := db.args[7].(pgtype.Int4); !rc.Valid || rc.Int32 != 0 {
		t.Errorf("result_code = %+v, want valid 0", rc)
	}
	if ep := db.args[8].(pgtype.Text); !ep.Valid || ep.String != "secondary" {
		t.Errorf("endpoint = %+v", ep)
	}
	if id := db.args[9].(pgtype.Text); id.Valid {
		t.Errorf("empty id_mensaje_cobro should be NULL, got %+v", id)
	}
}

func TestPostgresStore_Error(t *testing.T) {
	db := &fakeDB{err: errors.New("connection refused")}
	store := NewPostgresStore(database.New(db))

	_, err := store.Record(context.Background(), Entry{Payload: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected an error")
	}
}
