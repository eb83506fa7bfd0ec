package service

const (
	fullRefundHours = 24
	halfRefundHours = 12
)

// RefundFor returns the refund owed when a booking is cancelled hoursUntil
// hours before the tour date. More than a day out refunds in full, more than
// half a day refunds half, anything later refunds nothing.
func RefundFor(total, hoursUntil float64) float64 {
	switch {
	case hoursUntil > fullRefundHours:
		return total
	case hoursUntil > halfRefundHours:
		return roundCents(total * 0.5)
	default:
		return 0
	}
}
