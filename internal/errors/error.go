// Package errors provides sentinel errors for conversation and order operations.
package errors

import "errors"

// Rejections. The engine recovers these locally and re-prompts; they are reported
// for logging and metrics only.
var ErrInvalidQuantity = errors.New("invalid quantity")
var ErrInsufficientStock = errors.New("insufficient stock")
var ErrUnrecognizedInput = errors.New("unrecognized input")
var ErrEmptyCartCheckout = errors.New("checkout with empty cart")

var ErrInvalidProduct = errors.New("invalid product")
var ErrLoadProducts = errors.New("failed to load products")

var ErrCreateOrder = errors.New("failed to create order")
var ErrCreateOrderItem = errors.New("failed to create order item")
var ErrOrderExists = errors.New("order already exists")
var ErrOrderNotFound = errors.New("order not found")
var ErrFailedToFindOrder = errors.New("failed to find order")
var ErrFailedToFindUserOrders = errors.New("failed to find user orders")
var ErrFailedToFindOrderItems = errors.New("failed to find order items")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

var ErrSessionCorrupted = errors.New("session data corrupted")
var ErrLoadSession = errors.New("failed to load session")
var ErrSaveSession = errors.New("failed to save session")
var ErrLockTimeout = errors.New("timed out waiting for user lock")
