package services

import "errors"

// Business-rule errors. The symbolic strings are part of the API
// contract; controllers map them onto HTTP status codes.
var (
	ErrGiftNotFound         = errors.New("GIFT_NOT_FOUND")
	ErrGiftNotAvailable     = errors.New("GIFT_NOT_AVAILABLE")
	ErrInvalidCode          = errors.New("INVALID_CODE")
	ErrGiftNotReserved      = errors.New("GIFT_NOT_RESERVED")
	ErrDuplicateName        = errors.New("DUPLICATE_NAME")
	ErrActiveGoalNotFound   = errors.New("ACTIVE_GOAL_NOT_FOUND")
	ErrContributionNotFound = errors.New("CONTRIBUTION_NOT_FOUND")
	ErrInvalidSignature     = errors.New("INVALID_SIGNATURE")
)
