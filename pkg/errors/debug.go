package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// PGUniqueViolation is the SQLSTATE for a duplicate key.
const PGUniqueViolation = "23505"

// PGInfo is what a Postgres driver error says about the failing statement.
type PGInfo struct {
	Code       string `json:"pg_code,omitempty"`
	Constraint string `json:"pg_constraint,omitempty"`
	Table      string `json:"pg_table,omitempty"`
	Column     string `json:"pg_column,omitempty"`
	Detail     string `json:"pg_detail,omitempty"`
	Message    string `json:"pg_message,omitempty"`
}

// postgresInfo finds a pgx or lib/pq error in err's chain.
func postgresInfo(err error) (PGInfo, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return PGInfo{pgErr.Code, pgErr.ConstraintName, pgErr.TableName, pgErr.ColumnName, pgErr.Detail, pgErr.Message}, true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return PGInfo{string(pqErr.Code), pqErr.Constraint, pqErr.Table, pqErr.Column, pqErr.Detail, pqErr.Message}, true
	}
	return PGInfo{}, false
}

// ErrorDump flattens an error chain for structured logs.
type ErrorDump struct {
	Top       string   `json:"error"`
	Code      Code     `json:"code,omitempty"`
	Retryable bool     `json:"retryable,omitempty"`
	Chain     []string `json:"chain,omitempty"`
	PGInfo
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{Top: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
		d.Retryable = MetadataFor(d.Code).Retryable
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	d.PGInfo, _ = postgresInfo(err)
	return d
}

// Fields renders the dump as log fields, leaving out empty Postgres values.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{
		"error":       d.Top,
		"error_code":  d.Code,
		"error_chain": d.Chain,
	}
	if d.Retryable {
		fields["retryable"] = true
	}
	set := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	set("pg_code", d.PGInfo.Code)
	set("pg_constraint", d.Constraint)
	set("pg_table", d.Table)
	set("pg_column", d.Column)
	set("pg_detail", d.Detail)
	set("pg_message", d.Message)
	return fields
}

// IsPGUniqueViolation reports whether a Postgres driver error in err's chain
// is a duplicate key.
func IsPGUniqueViolation(err error) bool {
	info, ok := postgresInfo(err)
	return ok && info.Code == PGUniqueViolation
}
