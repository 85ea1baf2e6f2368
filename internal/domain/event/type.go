package event

// Type identifies the kind of side-effect instruction
type Type string

const (
	TypeEntityCreate     Type = "entity.create"
	TypeEntityUpdate     Type = "entity.update"
	TypeLeadUpsert       Type = "lead.upsert"
	TypeNotificationSend Type = "notification.send"
	TypeDocumentGenerate Type = "document.generate"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeEntityCreate,
		TypeEntityUpdate,
		TypeLeadUpsert,
		TypeNotificationSend,
		TypeDocumentGenerate:
		return true
	default:
		return false
	}
}

// IsPostCommit reports whether the effect runs after the transaction commits.
// Post-commit failures never roll back persisted state.
func (t Type) IsPostCommit() bool {
	return t == TypeNotificationSend || t == TypeDocumentGenerate
}
