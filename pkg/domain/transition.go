package domain

// Transition is the outcome of a completed state change.
// From is empty when the machine had no current state yet.
type Transition struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Listener is notified after every completed transition, in registration order.
type Listener func(from, to string)
