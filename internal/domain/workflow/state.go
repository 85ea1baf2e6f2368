package workflow

// Status is satisfied by the closed status enumerations of each entity
// (job card, quotation, parts request).
type Status interface {
	~string
	IsValid() bool
	IsTerminal() bool
}

// Trigger is an action that can move an entity from one status to another
type Trigger interface {
	~string
}
