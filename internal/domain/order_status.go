package domain

// OrderStatus is a closed enum. Every place that branches on it must handle
// all seven values; the transition table below is the single source of truth
// for which writes are legal.
type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusPaid       OrderStatus = "PAID"
	StatusFulfilling OrderStatus = "FULFILLING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCanceled   OrderStatus = "CANCELED"
	StatusRefunded   OrderStatus = "REFUNDED"
)

// ShippingStatus is derived from OrderStatus; it is never stored.
type ShippingStatus string

const (
	ShippingNone      ShippingStatus = ""
	ShippingPreparing ShippingStatus = "PREPARING"
	ShippingInTransit ShippingStatus = "IN_TRANSIT"
	ShippingDelivered ShippingStatus = "DELIVERED"
)

var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusCanceled},
	StatusPaid:       {StatusFulfilling, StatusRefunded},
	StatusFulfilling: {StatusShipped, StatusCanceled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCanceled:   {StatusRefunded},
	StatusRefunded:   {},
}

// ParseOrderStatus validates a raw string against the enum.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	_, ok := transitions[st]
	return st, ok
}

// NextValidStatuses returns the statuses an order may move to from s.
// An empty result means s is terminal. The returned slice is a copy.
func NextValidStatuses(s OrderStatus) []OrderStatus {
	next, ok := transitions[s]
	if !ok {
		return nil
	}
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether s -> to is a legal move. Callers must check
// this before persisting a status change; the model itself never writes.
func CanTransition(s, to OrderStatus) bool {
	for _, n := range transitions[s] {
		if n == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions exist from s.
func IsTerminal(s OrderStatus) bool {
	return len(transitions[s]) == 0
}

// DeriveShippingStatus maps every order status to its shipping status.
// PENDING, CANCELED and REFUNDED orders have no shipping leg.
func DeriveShippingStatus(s OrderStatus) ShippingStatus {
	switch s {
	case StatusPaid, StatusFulfilling:
		return ShippingPreparing
	case StatusShipped:
		return ShippingInTransit
	case StatusDelivered:
		return ShippingDelivered
	case StatusPending, StatusCanceled, StatusRefunded:
		return ShippingNone
	default:
		return ShippingNone
	}
}

// statusPriority orders statuses along the happy path. CANCELED and REFUNDED
// sit outside the linear flow and get priority 0.
func statusPriority(s OrderStatus) int {
	switch s {
	case StatusPending:
		return 1
	case StatusPaid:
		return 2
	case StatusFulfilling:
		return 3
	case StatusShipped:
		return 4
	case StatusDelivered:
		return 5
	default:
		return 0
	}
}

// TimelineStep is one milestone in an order's progress view.
type TimelineStep struct {
	Key       string      `json:"key"`
	Status    OrderStatus `json:"status"`
	Completed bool        `json:"completed"`
	Current   bool        `json:"current"`
}

var milestones = []struct {
	key    string
	status OrderStatus
}{
	{"placed", StatusPending},
	{"paid", StatusPaid},
	{"fulfilling", StatusFulfilling},
	{"shipped", StatusShipped},
	{"delivered", StatusDelivered},
}

// ProjectTimeline returns the milestone steps for the given status.
// CANCELED/REFUNDED orders left the linear flow, so they show only the
// placement step plus their terminal step.
func ProjectTimeline(s OrderStatus) []TimelineStep {
	if s == StatusCanceled || s == StatusRefunded {
		key := "canceled"
		if s == StatusRefunded {
			key = "refunded"
		}
		return []TimelineStep{
			{Key: "placed", Status: StatusPending, Completed: true},
			{Key: key, Status: s, Completed: true, Current: true},
		}
	}
	cur := statusPriority(s)
	steps := make([]TimelineStep, 0, len(milestones))
	for _, m := range milestones {
		p := statusPriority(m.status)
		steps = append(steps, TimelineStep{
			Key:       m.key,
			Status:    m.status,
			Completed: p <= cur,
			Current:   p == cur,
		})
	}
	return steps
}
