package enums

// ActorType identifies who performed an audited status change.
type ActorType string

const (
	ActorOps    ActorType = "OPS"
	ActorDriver ActorType = "DRIVER"
	ActorSystem ActorType = "SYSTEM"
)

// IsValid reports whether the value is a known ActorType.
func (a ActorType) IsValid() bool {
	switch a {
	case ActorOps, ActorDriver, ActorSystem:
		return true
	default:
		return false
	}
}
