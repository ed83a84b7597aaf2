// Package audit records every notification received from and every request sent to the network.
//
// Each record gets a uuid and a checksum of the JCS canonical form of its payload, so the same
// message can be found regardless of key order or whitespace.
// Records go to PostgreSQL when a database is configured and to the application log otherwise.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/information-sharing-networks/codi-gateway/internal/crypto"
	"github.com/information-sharing-networks/codi-gateway/internal/database"
	"github.com/jackc/pgx/v5/pgtype"
)

type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// Outcome values.
const (
	// OutcomeAccepted is a notification that passed every check, or a request the network accepted.
	OutcomeAccepted = "accepted"
	// OutcomeRejected is a notification answered with a non-zero result code.
	OutcomeRejected = "rejected"
	// OutcomeError is a message that failed a structural precondition or could not be delivered.
	OutcomeError = "error"
)

// Entry describes a message to record.
type Entry struct {
	Direction   Direction
	Environment string
	PayloadKey  string
	// Payload is the complete JSON message.
	Payload    json.RawMessage
	Outcome    string
	ResultCode *int
	// Endpoint is the network endpoint that answered an outbound request.
	Endpoint       string
	IDMensajeCobro string
	ClaveRastreo   string
	Error          string
}

// Record is a stored entry.
type Record struct {
	Entry
	ID        uuid.UUID
	Checksum  string
	CreatedAt time.Time
}

// Store records audit entries.
type Store interface {
	Record(ctx context.Context, entry Entry) (Record, error)
}

// newRecord assigns an id and checksums the payload. The payload must be valid JSON.
func newRecord(entry Entry) (Record, error) {
	checksum, err := crypto.Checksum(entry.Payload)
	if err != nil {
		return Record{}, fmt.Errorf("failed to checksum payload: %w", err)
	}
	return Record{
		Entry:     entry,
		ID:        uuid.New(),
		Checksum:  checksum,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// LogStore writes audit records to a logger.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogStore{logger: logger}
}

func (s *LogStore) Record(ctx context.Context, entry Entry) (Record, error) {
	record, err := newRecord(entry)
	if err != nil {
		return Record{}, err
	}

	attrs := []slog.Attr{
		slog.String("audit_id", record.ID.String()),
		slog.String("direction", string(record.Direction)),
		slog.String("environment", record.Environment),
		slog.String("payload_key", record.PayloadKey),
		slog.String("payload_checksum", record.Checksum),
		slog.String("outcome", record.Outcome),
	}
	if record.ResultCode != nil {
		attrs = append(attrs, slog.Int("resultado", *record.ResultCode))
	}
	if record.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", record.Endpoint))
	}
	if record.IDMensajeCobro != "" {
		attrs = append(attrs, slog.String("id_mensaje_cobro", record.IDMensajeCobro))
	}
	if record.Error != "" {
		attrs = append(attrs, slog.String("error", record.Error))
	}
	s.logger.LogAttrs(ctx, slog.LevelInfo, "audit", attrs...)
	return record, nil
}

// PostgresStore writes audit records to the audit_entries table.
type PostgresStore struct {
	queries *database.Queries
}

func NewPostgresStore(queries *database.Queries) *PostgresStore {
	return &PostgresStore{queries: queries}
}

func (s *PostgresStore) Record(ctx context.Context, entry Entry) (Record, error) {
	record, err := newRecord(entry)
	if err != nil {
		return Record{}, err
	}

	params := database.CreateAuditEntryParams{
		ID:              record.ID,
		Direction:       string(record.Direction),
		Environment:     record.Environment,
		PayloadKey:      record.PayloadKey,
		PayloadChecksum: record.Checksum,
		Payload:         record.Payload,
		Outcome:         record.Outcome,
		Endpoint:        text(record.Endpoint),
		IDMensajeCobro:  text(record.IDMensajeCobro),
		ClaveRastreo:    text(record.ClaveRastreo),
		ErrorMessage:    text(record.Error),
	}
	if record.ResultCode != nil {
		params.ResultCode = pgtype.Int4{Int32: int32(*record.ResultCode), Valid: true}
	}

	stored, err := s.queries.CreateAuditEntry(ctx, params)
	if err != nil {
		return Record{}, fmt.Errorf("failed to store audit entry: %w", err)
	}
	if stored.CreatedAt.Valid {
		record.CreatedAt = stored.CreatedAt.Time
	}
	return record, nil
}

func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}
