package tx

type Status string

const (
	StatusStarted      Status = "STARTED"
	StatusBasketLoaded Status = "BASKET_LOADED"
	StatusValidated    Status = "VALIDATED"
	StatusCommitted    Status = "COMMITTED"
	StatusNotified     Status = "NOTIFIED"
	StatusFailed       Status = "FAILED"
)

var transitions = map[Status][]Status{
	StatusStarted:      {StatusBasketLoaded, StatusFailed},
	StatusBasketLoaded: {StatusValidated, StatusFailed},
	StatusValidated:    {StatusCommitted, StatusFailed},
	StatusCommitted:    {StatusNotified},
}

// CanTransition reports whether a checkout attempt may move from one status
// to the next. COMMITTED never goes back to FAILED: a failed notification
// leaves the attempt COMMITTED.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type AttemptID string

type Step string

const (
	StepLoadBasket     Step = "load_basket"
	StepLoadProducts   Step = "load_products"
	StepBuildOrder     Step = "build_order"
	StepDecrementStock Step = "decrement_stock"
	StepSaveOrder      Step = "save_order"
	StepClearBasket    Step = "clear_basket"
	StepNotify         Step = "notify"
)
