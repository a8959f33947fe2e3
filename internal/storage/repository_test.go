package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnconfiguredStoreRefusesEveryCall(t *testing.T) {
	var s *Store
	ctx := context.Background()

	assert.ErrorIs(t, s.RecordSubmission(ctx, Submission{Op: "update-packs"}), ErrNotConfigured)
	assert.ErrorIs(t, s.RecordConfirmation(ctx, Confirmation{TxHash: "0x1"}), ErrNotConfigured)

	_, err := s.ListRecentSubmissions(ctx, 10)
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = s.ListConfirmationsBetween(ctx, time.Now().Add(-time.Hour), time.Now())
	assert.ErrorIs(t, err, ErrNotConfigured)

	s.Close()
}
