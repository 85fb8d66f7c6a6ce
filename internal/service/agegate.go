package service

import (
	"time"

	"gamestore-engine/internal/models"
)

// minimumAge maps an ESRB rating to the minimum purchase age.
var minimumAge = map[models.Rating]int{
	models.RatingE:   0,
	models.RatingE10: 10,
	models.RatingT:   13,
	models.RatingM:   17,
	models.RatingAO:  18,
}

// identityChecked ratings require a verified identity on top of a
// qualifying age.
func identityChecked(rating models.Rating) bool {
	return rating == models.RatingM || rating == models.RatingAO
}

// EvaluateAgeGate decides whether a customer may buy a game with the
// given rating. It returns nil to permit, or one of the typed denial
// errors. For M/AO the checks run in a fixed order: a missing birth
// date is reported before age (age is undefined without it), and age
// before the verification flag.
func EvaluateAgeGate(rating models.Rating, dateOfBirth *time.Time, ageVerified bool, now time.Time) error {
	if !identityChecked(rating) {
		return nil
	}

	if dateOfBirth == nil {
		return models.ErrMissingBirthDate
	}

	required := minimumAge[rating]
	actual := ageAt(*dateOfBirth, now)
	if actual < required {
		return &models.UnderAgeError{Rating: rating, RequiredAge: required, ActualAge: actual}
	}

	if !ageVerified {
		return models.ErrUnverifiedIdentity
	}

	return nil
}

// ageAt computes calendar age: the birthday must have passed this year
// to count the full year.
func ageAt(dateOfBirth, now time.Time) int {
	years := now.Year() - dateOfBirth.Year()
	anniversary := dateOfBirth.AddDate(years, 0, 0)
	if anniversary.After(now) {
		years--
	}
	return years
}
