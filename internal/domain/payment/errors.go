package payment

import "github.com/dmehra2102/prod-golang-projects/carepath/internal/domain"

var (
	ErrPaymentNotFound     = domain.NewError(domain.KindNotFound, "PAYMENT_NOT_FOUND", "payment not found")
	ErrIllegalPaymentState = domain.NewError(domain.KindIllegalTransition, "ILLEGAL_PAYMENT_STATE", "payment is not in a state that allows this operation")
	ErrRefundNotAllowed    = domain.NewError(domain.KindIllegalTransition, "ILLEGAL_PAYMENT_STATE", "only registration fees can be refunded")
	ErrAlreadyBilled       = domain.NewError(domain.KindConflict, "ALREADY_BILLED", "a payment already exists for this source")
)
