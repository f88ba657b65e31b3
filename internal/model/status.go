package model

// FulfillmentStatus описывает статус исполнения.
type FulfillmentStatus string

const (
	StatusPending    FulfillmentStatus = "pending"
	StatusAccepted   FulfillmentStatus = "accepted"
	StatusInProgress FulfillmentStatus = "in_progress"
	StatusDelivered  FulfillmentStatus = "delivered"
	StatusCompleted  FulfillmentStatus = "completed"
	StatusCanceled   FulfillmentStatus = "canceled"
)

// TerminalSuccess возвращает статус успешного завершения для варианта исполнения.
func TerminalSuccess(kind PayableKind) FulfillmentStatus {
	if kind == PayableService {
		return StatusCompleted
	}
	return StatusDelivered
}

// Successor возвращает непосредственного преемника статуса.
// pending -> accepted -> in_progress -> terminal_success.
func Successor(kind PayableKind, s FulfillmentStatus) (FulfillmentStatus, bool) {
	switch s {
	case StatusPending:
		return StatusAccepted, true
	case StatusAccepted:
		return StatusInProgress, true
	case StatusInProgress:
		return TerminalSuccess(kind), true
	default:
		return "", false
	}
}

// CanAdvance сообщает, является ли target непосредственным преемником from.
func CanAdvance(kind PayableKind, from, target FulfillmentStatus) bool {
	next, ok := Successor(kind, from)
	return ok && next == target
}

// CanCancel сообщает, можно ли отменить исполнение из статуса s.
func CanCancel(s FulfillmentStatus) bool {
	return s == StatusPending || s == StatusAccepted
}

// IsInFlight сообщает, что исполнение не отменено и ещё не завершено.
func IsInFlight(kind PayableKind, s FulfillmentStatus) bool {
	return s != StatusCanceled && s != TerminalSuccess(kind)
}

// ValidFulfillmentStatus проверяет, что статус допустим для варианта исполнения.
func ValidFulfillmentStatus(kind PayableKind, s FulfillmentStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusInProgress, StatusCanceled:
		return true
	}
	return s == TerminalSuccess(kind)
}

// InvoiceStatusFor отображает статус платежа в статус связанного счёта.
//
//	pending / failed -> pending
//	completed        -> paid
//	refunded         -> canceled
func InvoiceStatusFor(p PaymentStatus) InvoiceStatus {
	switch p {
	case PaymentStatusCompleted:
		return InvoiceStatusPaid
	case PaymentStatusRefunded:
		return InvoiceStatusCanceled
	default:
		return InvoiceStatusPending
	}
}
