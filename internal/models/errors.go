package models

import "fmt"

// ErrorType represents different categories of errors
type ErrorType int

const (
	ErrDescriptorParse ErrorType = iota
	ErrInvalidDescriptor
	ErrBuild
	ErrVerify
	ErrSigning
	ErrFileOp
	ErrInvalidConfig
	ErrIndexGen
)

// String returns the string representation of ErrorType
func (e ErrorType) String() string {
	switch e {
	case ErrDescriptorParse:
		return "DescriptorParse"
	case ErrInvalidDescriptor:
		return "InvalidDescriptor"
	case ErrBuild:
		return "Build"
	case ErrVerify:
		return "Verify"
	case ErrSigning:
		return "Signing"
	case ErrFileOp:
		return "FileOp"
	case ErrInvalidConfig:
		return "InvalidConfig"
	case ErrIndexGen:
		return "IndexGen"
	default:
		return "Unknown"
	}
}

// DistGenError represents an error while loading, building or publishing a distribution
type DistGenError struct {
	Type    ErrorType
	Package string
	Err     error
}

// Error implements the error interface
func (e *DistGenError) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Package, e.Err)
	}
	return fmt.Sprintf("[%s] %v", e.Type, e.Err)
}

// Unwrap returns the wrapped error
func (e *DistGenError) Unwrap() error {
	return e.Err
}

// NewError wraps err in a DistGenError of the given type
func NewError(t ErrorType, pkg string, err error) *DistGenError {
	return &DistGenError{Type: t, Package: pkg, Err: err}
}
