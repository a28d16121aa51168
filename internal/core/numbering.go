package core

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
)

const (
	numberAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	orderNumberLength = 8
	paymentPrefix     = "PAY-"

	// maxNumberAttempts bounds the retries after a unique violation on a
	// generated number.
	maxNumberAttempts = 5
)

// NewOrderNumber returns a random 8-character uppercase alphanumeric code.
func NewOrderNumber() (string, error) {
	return randomCode(orderNumberLength)
}

// NewPaymentNumber returns "PAY-" followed by a random code.
func NewPaymentNumber() (string, error) {
	code, err := randomCode(orderNumberLength)
	if err != nil {
		return "", err
	}
	return paymentPrefix + code, nil
}

// randomCode draws n characters uniformly from numberAlphabet. Bytes at or
// above the largest multiple of the alphabet size are discarded and redrawn.
func randomCode(n int) (string, error) {
	return codeFrom(rand.Reader, n)
}

func codeFrom(r io.Reader, n int) (string, error) {
	limit := 256 - 256%len(numberAlphabet)
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	for len(out) < n {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("failed to generate number: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, numberAlphabet[int(b)%len(numberAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out), nil
}

// insertNumberedTx runs insert with a freshly generated number inside a
// savepoint of tx. A unique violation rolls back only the savepoint and the
// insert is retried with a new number.
func insertNumberedTx(ctx context.Context, tx pgx.Tx, generate func() (string, error),
	insert func(sp pgx.Tx, number string) error) (string, error) {

	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		number, err := generate()
		if err != nil {
			return "", err
		}
		sp, err := tx.Begin(ctx)
		if err != nil {
			return "", fmt.Errorf("failed to open savepoint: %w", err)
		}
		if err := insert(sp, number); err != nil {
			_ = sp.Rollback(ctx)
			if isUniqueViolation(err) {
				continue
			}
			return "", err
		}
		if err := sp.Commit(ctx); err != nil {
			return "", fmt.Errorf("failed to release savepoint: %w", err)
		}
		return number, nil
	}
	return "", fmt.Errorf("failed to allocate a unique number after %d attempts", maxNumberAttempts)
}
