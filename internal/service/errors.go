package service

import "errors"

var (
	// ErrInvalidProfile rejects biometrics the recommendation formula cannot
	// use (non-positive height, weight or age, unknown sex).
	ErrInvalidProfile = errors.New("invalid profile")
	// ErrRecommendationCompute is returned when a stored profile cannot
	// produce a recommendation.
	ErrRecommendationCompute = errors.New("recommendation compute failed")
	// ErrConflictRetryable marks a lost insert race on a unique key.
	ErrConflictRetryable = errors.New("conflict, retry")
	// ErrStorageUnavailable is returned when a retried operation fails again.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrInvalidCredentials covers unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmptyPhoto         = errors.New("empty photo")
	ErrUploadFailed       = errors.New("image upload failed")
	ErrClassifierFailed   = errors.New("classification failed")
	ErrFoodNotFound       = errors.New("food not found")
)
