package authentication

// Level is the ordered authentication level of a session. It is monotonic
// within a session except on explicit sign-out.
type Level int

const (
	NotAuthenticated Level = iota
	OneFactor
	TwoFactor
)

// String returns the configuration spelling of the level.
func (l Level) String() string {
	switch l {
	case OneFactor:
		return "one_factor"
	case TwoFactor:
		return "two_factor"
	default:
		return "not_authenticated"
	}
}
