package domain

import "time"

// ResultStatus is the outcome class of a placement attempt.
type ResultStatus string

const (
	// ResultAccepted means every leg was queued at the venue.
	ResultAccepted ResultStatus = "ACCEPTED"
	// ResultRejected means validation or the venue refused the order.
	ResultRejected ResultStatus = "REJECTED"
	// ResultSimulated means the safety gate vetoed dispatch; nothing reached
	// the venue. Deliberately distinct from both success and failure.
	ResultSimulated ResultStatus = "SIMULATED"
)

// OrderResult is the normalized outcome of PlaceOrder.
type OrderResult struct {
	Status     ResultStatus
	OrderID    int64             // primary (entry leg) broker order id
	OrderIDs   []int64           // every leg id that was accepted, dispatch order
	OrderRoles map[LegRole]int64 // role → broker order id
	Errors     []string
}

// OrderStatus is the normalized lifecycle state of a single order.
type OrderStatus string

const (
	StatusPendingSubmit   OrderStatus = "PENDING_SUBMIT"
	StatusPendingCancel   OrderStatus = "PENDING_CANCEL"
	StatusSubmitted       OrderStatus = "SUBMITTED"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCancelled       OrderStatus = "CANCELLED"
	StatusRejected        OrderStatus = "REJECTED"
	StatusExpired         OrderStatus = "EXPIRED"
)

// OrderState is a point-in-time view of an order's lifecycle, as reported by
// the broker session. Never cached; always current as of the poll.
type OrderState struct {
	OrderID      int64
	Status       OrderStatus
	FilledQty    float64
	RemainingQty float64
	AvgFillPrice float64
}

// CancelOutcome classifies the result of a cancel attempt.
type CancelOutcome string

const (
	CancelDone          CancelOutcome = "CANCELLED"
	CancelAlreadyFilled CancelOutcome = "ALREADY_FILLED"
	CancelNotFound      CancelOutcome = "NOT_FOUND"
	CancelRejected      CancelOutcome = "REJECTED"
)

// CancelResult is the per-order outcome of a cancel request.
type CancelResult struct {
	OrderID int64
	Status  CancelOutcome
	Message string
}

// OrderPreview is a non-committing estimate of an order's cost and risk.
type OrderPreview struct {
	EstimatedPrice      float64
	EstimatedNotional   float64
	EstimatedCommission float64
	InitialMarginDelta  float64
	MaintMarginDelta    float64
	TotalNotional       float64
	Warnings            []string
	Legs                []OrderLeg
}

// AuditEntry is one append-only administrative or trading audit record.
type AuditEntry struct {
	Time     time.Time
	Action   string
	Reason   string
	Metadata map[string]interface{}
}
