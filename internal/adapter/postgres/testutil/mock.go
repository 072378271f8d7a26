// Package testutil provides pgxmock helpers for repository unit tests.
package testutil

import (
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v2"

	"github.com/mic-e/abrechnung/internal/adapter/postgres"
)

// NewMockQuerier returns a pgxmock pool both as the Querier repositories
// consume and as the mock handle tests program expectations on.
func NewMockQuerier(t *testing.T) (postgres.Querier, pgxmock.PgxPoolIface) {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("create pgxmock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	return mock, mock
}

// ExpectationsWereMet fails the test if any programmed expectation was not
// satisfied.
func ExpectationsWereMet(t *testing.T, mock pgxmock.PgxPoolIface) {
	t.Helper()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled pgxmock expectations: %v", err)
	}
}
