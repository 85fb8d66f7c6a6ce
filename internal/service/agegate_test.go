package service

import (
	"testing"
	"time"

	"gamestore-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func birthDate(y, m, d int) *time.Time {
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAgeGateUnrestrictedRatings(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	// E, E10+ and T never consult birth date or verification.
	for _, rating := range []models.Rating{models.RatingE, models.RatingE10, models.RatingT} {
		assert.NoError(t, EvaluateAgeGate(rating, nil, false, now), "rating %s", rating)
	}
}

func TestAgeGateMissingBirthDate(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	err := EvaluateAgeGate(models.RatingM, nil, true, now)
	assert.ErrorIs(t, err, models.ErrMissingBirthDate)

	err = EvaluateAgeGate(models.RatingAO, nil, false, now)
	// Missing birth date is reported before the verification flag.
	assert.ErrorIs(t, err, models.ErrMissingBirthDate)
}

func TestAgeGateUnderAge(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	err := EvaluateAgeGate(models.RatingM, birthDate(2010, 6, 2), true, now)
	var underAge *models.UnderAgeError
	require.ErrorAs(t, err, &underAge)
	assert.Equal(t, 17, underAge.RequiredAge)
	assert.Equal(t, 15, underAge.ActualAge)

	// Under age is reported before the unverified identity, even when
	// both checks would fail.
	err = EvaluateAgeGate(models.RatingAO, birthDate(2010, 6, 2), false, now)
	assert.ErrorAs(t, err, &underAge)
}

func TestAgeGateUnverifiedIdentity(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	err := EvaluateAgeGate(models.RatingM, birthDate(2000, 1, 1), false, now)
	assert.ErrorIs(t, err, models.ErrUnverifiedIdentity)

	assert.NoError(t, EvaluateAgeGate(models.RatingM, birthDate(2000, 1, 1), true, now))
}

func TestAgeGateBirthdayBoundary(t *testing.T) {
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	// 17th birthday is today: old enough for M.
	assert.NoError(t, EvaluateAgeGate(models.RatingM, birthDate(2009, 6, 1), true, now))

	// 17th birthday is tomorrow: still 16.
	err := EvaluateAgeGate(models.RatingM, birthDate(2009, 6, 2), true, now)
	var underAge *models.UnderAgeError
	require.ErrorAs(t, err, &underAge)
	assert.Equal(t, 16, underAge.ActualAge)

	// 17 is not enough for AO.
	err = EvaluateAgeGate(models.RatingAO, birthDate(2009, 6, 1), true, now)
	require.ErrorAs(t, err, &underAge)
	assert.Equal(t, 18, underAge.RequiredAge)
}
