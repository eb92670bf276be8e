package service

import "errors"

var (
	// ErrImageNotFound is returned when an attachment does not exist.
	ErrImageNotFound = errors.New("image not found")
	// ErrJobNotFound is returned when a job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrUnsupportedImage is returned for bytes that are not a usable raster image.
	ErrUnsupportedImage = errors.New("unsupported image format")
	// ErrInvalidField is returned when approval names an unknown field.
	ErrInvalidField = errors.New("invalid metadata field")
	// ErrInvalidPeriod is returned for an unknown stats period.
	ErrInvalidPeriod = errors.New("invalid stats period")
)
