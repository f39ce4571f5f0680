// Package csvsource reads transaction events from delimited text.
//
// The input has a header row naming the columns type, client, tx and amount,
// in any order. The amount column may be missing altogether or left empty on
// rows that do not carry an amount (dispute, resolve, chargeback).
package csvsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	interfaces "github.com/sheikh-saqib/payments-ledger-engine/internal/interfaces"
	"github.com/sheikh-saqib/payments-ledger-engine/internal/models"
)

const (
	colType   = "type"
	colClient = "client"
	colTx     = "tx"
	colAmount = "amount"
)

// Reader is an interfaces.EventSource over CSV rows.
type Reader struct {
	r       *csv.Reader
	closer  io.Closer
	columns map[string]int
}

// Open opens the file at path. A missing or unreadable file is an error.
func Open(path string) (*Reader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("input must be a path to an existing file")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open transactions file: %w", err)
	}
	r, err := New(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f
	return r, nil
}

// New reads the header from r and returns a reader positioned on the first row.
func New(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("missing header row")
	}
	if err != nil {
		return nil, fmt.Errorf("could not read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{colType, colClient, colTx} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("header is missing the %q column", required)
		}
	}
	return &Reader{r: cr, columns: columns}, nil
}

// Next returns the next event, or io.EOF at the end of input. Any malformed
// row is reported with its line number.
func (r *Reader) Next(ctx context.Context) (models.TransactionEvent, error) {
	if err := ctx.Err(); err != nil {
		return models.TransactionEvent{}, err
	}
	record, err := r.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.TransactionEvent{}, io.EOF
		}
		return models.TransactionEvent{}, fmt.Errorf("could not read transactions: %w", err)
	}
	line, _ := r.r.FieldPos(0)

	ev, err := r.parse(record)
	if err != nil {
		return models.TransactionEvent{}, fmt.Errorf("line %d: %w", line, err)
	}
	return ev, nil
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func (r *Reader) parse(record []string) (models.TransactionEvent, error) {
	kind, err := models.ParseKind(r.field(record, colType))
	if err != nil {
		return models.TransactionEvent{}, err
	}
	client, err := strconv.ParseUint(r.field(record, colClient), 10, 16)
	if err != nil {
		return models.TransactionEvent{}, fmt.Errorf("invalid client id: %w", err)
	}
	tx, err := strconv.ParseUint(r.field(record, colTx), 10, 32)
	if err != nil {
		return models.TransactionEvent{}, fmt.Errorf("invalid tx id: %w", err)
	}
	amount, err := models.ParseAmount(r.field(record, colAmount))
	if err != nil {
		return models.TransactionEvent{}, err
	}
	return models.TransactionEvent{
		Kind:      kind,
		AccountID: uint16(client),
		TxID:      uint32(tx),
		Amount:    amount,
	}, nil
}

// Close releases the underlying file, if the reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

var _ interfaces.EventSource = (*Reader)(nil)
