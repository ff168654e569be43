package ukf

import "errors"

var (
	// ErrInvalidMeasurement is returned for measurements rejected before
	// they enter the pipeline: unknown sensor, wrong raw vector length,
	// non-finite values, or a timestamp earlier than the filter's time.
	ErrInvalidMeasurement = errors.New("ukf: invalid measurement")

	// ErrNotPositiveDefinite is returned when the augmented covariance
	// cannot be Cholesky-factorised during sigma-point generation.
	ErrNotPositiveDefinite = errors.New("ukf: covariance not positive definite")

	// ErrSingularInnovation is returned when the predicted measurement
	// covariance cannot be inverted during the update.
	ErrSingularInnovation = errors.New("ukf: singular innovation covariance")

	// ErrAlreadyInitialized guards against re-seeding an initialised filter.
	ErrAlreadyInitialized = errors.New("ukf: filter already initialized")
)
