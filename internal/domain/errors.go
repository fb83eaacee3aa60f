package domain

import (
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing credentials",
		StatusCode: 401,
	}

	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "Insufficient privileges",
		StatusCode: 403,
	}

	ErrSessionNotFound = &AppError{
		Code:       "SESSION_NOT_FOUND",
		Message:    "Verification session not found or expired",
		StatusCode: 404,
	}

	ErrSessionExpired = &AppError{
		Code:       "SESSION_EXPIRED",
		Message:    "Verification session has expired",
		StatusCode: 410,
	}

	ErrSessionTerminal = &AppError{
		Code:       "SESSION_TERMINAL",
		Message:    "Verification session already finished",
		StatusCode: 409,
	}

	ErrVerificationInProgress = &AppError{
		Code:       "VERIFICATION_IN_PROGRESS",
		Message:    "A verification session is already active for this user",
		StatusCode: 409,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests",
		StatusCode: 429,
	}

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrMissingLandmarks = &AppError{
		Code:       "MISSING_LANDMARKS",
		Message:    "Required facial landmarks could not be localized",
		StatusCode: 422,
	}

	ErrNoProfilePhotos = &AppError{
		Code:       "NO_PROFILE_PHOTOS",
		Message:    "No profile photos found to verify against",
		StatusCode: 422,
	}

	ErrFaceMismatch = &AppError{
		Code:       "FACE_MISMATCH",
		Message:    "Your face doesn't match your profile photos",
		StatusCode: 422,
	}
)
