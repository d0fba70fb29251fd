// Package models holds the regression fits used by model based baseline producers
package models

import (
	"errors"
)

var (
	ErrNoObservations     = errors.New("no observations to fit")
	ErrTargetLenMismatch  = errors.New("target length does not match design matrix rows")
	ErrUnderdetermined    = errors.New("fewer observations than model coefficients")
	ErrNotFitted          = errors.New("model has not been fit")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrColMismatch        = errors.New("column size mismatch")
)
