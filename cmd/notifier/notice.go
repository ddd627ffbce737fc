package main

import (
	"fmt"

	"github.com/xiebiao/library/internal/application/event"
	"github.com/xiebiao/library/pkg/mq"
)

const dateLayout = "2006-01-02"

// notice 发给读者的通知
type notice struct {
	PatronID string
	Text     string
}

// errUnknownEvent 不认识的事件直接确认, 不重试
var errUnknownEvent = fmt.Errorf("unknown event type")

// renderNotice 把流通事件渲染成读者通知
func renderNotice(env *mq.Envelope) (*notice, error) {
	switch env.Type {
	case event.LoanBorrowed:
		var p event.LoanBorrowedPayload
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return &notice{p.PatronID, fmt.Sprintf(`You borrowed "%s". Please return it by %s.`, p.Title, p.DueAt.Format(dateLayout))}, nil

	case event.LoanReturned:
		var p event.LoanReturnedPayload
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		text := fmt.Sprintf(`Thank you for returning "%s".`, p.Title)
		if p.LateFee != "" && p.LateFee != "0.00" {
			text += fmt.Sprintf(" A late fee of $%s is due.", p.LateFee)
		}
		return &notice{p.PatronID, text}, nil

	case event.LoanOverdue:
		var p event.LoanOverduePayload
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return &notice{p.PatronID, fmt.Sprintf(`"%s" was due on %s and is %d day(s) overdue. Current late fee: $%s.`,
			p.Title, p.DueAt.Format(dateLayout), p.DaysOverdue, p.LateFee)}, nil

	case event.LateFeePaid:
		var p event.LateFeePaidPayload
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return &notice{p.PatronID, fmt.Sprintf("We received your late fee payment of $%s (transaction %s).", p.Amount, p.TransactionID)}, nil

	case event.LateFeeRefunded:
		var p event.LateFeeRefundedPayload
		if err := env.Decode(&p); err != nil {
			return nil, err
		}
		return &notice{p.PatronID, fmt.Sprintf("A refund of $%s was issued for transaction %s.", p.Amount, p.TransactionID)}, nil
	}
	return nil, fmt.Errorf("%w: %s", errUnknownEvent, env.Type)
}
