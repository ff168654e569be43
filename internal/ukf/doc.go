// Package ukf implements an Unscented Kalman Filter that fuses position
// (lidar) and range/bearing/range-rate (radar) measurements of a single
// moving object under a constant turn-rate and velocity (CTRV) motion model.
//
// Responsibilities: state initialisation from the first measurement,
// augmented sigma-point generation, CTRV propagation, recombination of
// sigma points into a mean and covariance, per-sensor measurement
// prediction, and the Kalman correction with NIS diagnostics.
// Key types: Filter, State, Measurement, Config.
//
// A Filter is owned by exactly one tracked object and is not safe for
// concurrent use. Independent objects need independent filters.
//
// No I/O or SQL is allowed in this package.
package ukf
