package orders

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDENTE"
	StatusProcessing Status = "PROCESSANDO"
	StatusCreated    Status = "CRIADO"
	StatusCancelled  Status = "CANCELADO"
)

// Allowed state transitions. Terminal states have no exits.
var allowed = map[Status]map[Status]bool{
	StatusPending:    {StatusProcessing: true},
	StatusProcessing: {StatusCreated: true, StatusCancelled: true},
	StatusCreated:    {},
	StatusCancelled:  {},
}

// CanTransition checks if from->to is allowed.
func CanTransition(from, to Status) bool {
	nexts := allowed[from]
	return nexts != nil && nexts[to]
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	nexts, ok := allowed[s]
	return ok && len(nexts) == 0
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := allowed[s]
	return ok
}
