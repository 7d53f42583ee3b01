package service

import "errors"

var (
	ErrNotFound                  = errors.New("not found")
	ErrOrderNotFound             = errors.New("order not found")
	ErrOrderFetchFailed          = errors.New("order fetch failed")
	ErrOrderUpdateFailed         = errors.New("order update failed")
	ErrTrackingFetchFailed       = errors.New("tracking fetch failed")
	ErrPollInProgress            = errors.New("supplier poll already in progress")
	ErrDispatchConflict          = errors.New("dispatch claim lost before completion")
	ErrSupplierWebhookInvalid    = errors.New("invalid supplier webhook payload")
	ErrInvalidCredentials        = errors.New("invalid credentials")
	ErrEmailServiceDisabled      = errors.New("email service disabled")
	ErrEmailServiceNotConfigured = errors.New("email service not configured")
	ErrInvalidEmail              = errors.New("invalid email address")
	ErrEmailRecipientRejected    = errors.New("email recipient rejected")
)
