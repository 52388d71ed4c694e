package processlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"mysqllogger/internal/instances"
)

// Row is one result row with its columns in result-set order.
type Row struct {
	Columns []string
	Values  []interface{}
}

// Get looks a column up by name, ignoring case.
func (r Row) Get(name string) (interface{}, bool) {
	for i, col := range r.Columns {
		if strings.EqualFold(col, name) && i < len(r.Values) {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Fetcher runs a query against one instance and returns every row.
type Fetcher interface {
	Fetch(ctx context.Context, inst instances.Instance, query string) ([]Row, error)
}

// QueryError is a connection or statement failure for one instance.
type QueryError struct {
	Instance string
	Code     uint16
	Message  string
	State    string
	Err      error
}

func newQueryError(inst instances.Instance, err error) *QueryError {
	qe := &QueryError{Instance: inst.Tag(), Message: err.Error(), Err: err}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		qe.Code = myErr.Number
		qe.Message = myErr.Message
		qe.State = strings.TrimRight(string(myErr.SQLState[:]), "\x00")
	}
	return qe
}

func (e *QueryError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: error %d (%s): %s", e.Instance, e.Code, e.State, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Instance, e.Message)
}

func (e *QueryError) Unwrap() error { return e.Err }

// Diagnostic is the report printed when an instance cannot be polled. Errors
// that did not come from the server, such as a refused socket, carry no code
// or SQLSTATE and are reported by message alone.
func (e *QueryError) Diagnostic() string {
	if e.Code == 0 {
		return e.Message + "\n"
	}
	return fmt.Sprintf("An error occurred\nError code: %d\nError message: %s\nError SQLSTATE: %s\n",
		e.Code, e.Message, e.State)
}

// SQLFetcher connects with go-sql-driver/mysql over the instance's unix socket.
type SQLFetcher struct {
	User     string
	Password string

	// open is swapped in tests.
	open func(dsn string) (*sqlx.DB, error)
}

// NewSQLFetcher creates a fetcher authenticating as user.
func NewSQLFetcher(user, password string) *SQLFetcher {
	return &SQLFetcher{
		User:     user,
		Password: password,
		open: func(dsn string) (*sqlx.DB, error) {
			return sqlx.Open("mysql", dsn)
		},
	}
}

// DSN builds the connection string for inst. The socket names localhost's
// server; the port is only carried for identification.
func (f *SQLFetcher) DSN(inst instances.Instance) string {
	cfg := mysql.NewConfig()
	cfg.User = f.User
	cfg.Passwd = f.Password
	cfg.Net = "unix"
	cfg.Addr = inst.Socket
	return cfg.FormatDSN()
}

// Fetch opens a fresh connection, runs query and releases every handle
// before returning, whatever the outcome.
func (f *SQLFetcher) Fetch(ctx context.Context, inst instances.Instance, query string) ([]Row, error) {
	db, err := f.open(f.DSN(inst))
	if err != nil {
		return nil, newQueryError(inst, err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, newQueryError(inst, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, newQueryError(inst, err)
	}

	var out []Row
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, newQueryError(inst, err)
		}
		out = append(out, Row{Columns: columns, Values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, newQueryError(inst, err)
	}
	return out, nil
}
