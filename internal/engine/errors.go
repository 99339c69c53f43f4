package engine

import "errors"

// Validation failures are pure rejections: reported synchronously, no state
// change. ErrLedger is fatal to the single operation in progress.
var (
	ErrInvalidItem       = errors.New("item kind not permitted")
	ErrInvalidQuantity   = errors.New("quantity out of range")
	ErrPriceTooLow       = errors.New("price below configured minimum")
	ErrPriceTooHigh      = errors.New("price above configured maximum")
	ErrOrderLimitReached = errors.New("active order limit reached")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotActive    = errors.New("order not active")
	ErrWrongItem         = errors.New("supplied item does not match order")
	ErrInventoryFull     = errors.New("no room to receive items")
	ErrNotOwner          = errors.New("not the order owner")
	ErrLedger            = errors.New("ledger operation failed")
)
