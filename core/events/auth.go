package events

const (
	// KindAuthSucceeded identifies a credential accepted by the auth service.
	KindAuthSucceeded Kind = "auth.succeeded"
	// KindAuthFailed identifies a failed validation or login call.
	KindAuthFailed Kind = "auth.failed"
)

// AuthSource tells which auth call produced the result.
type AuthSource string

const (
	AuthSourceValidate AuthSource = "validate"
	AuthSourceLogin    AuthSource = "login"
)

type AuthSucceeded struct {
	Base
	AttemptID string
	Source    AuthSource
	Server    string
	Token     string
}

func NewAuthSucceeded(attemptID string, source AuthSource, server, token string) AuthSucceeded {
	return AuthSucceeded{
		Base:      NewBase(KindAuthSucceeded),
		AttemptID: attemptID,
		Source:    source,
		Server:    server,
		Token:     token,
	}
}

type AuthFailed struct {
	Base
	AttemptID string
	Source    AuthSource
	Err       error
}

func NewAuthFailed(attemptID string, source AuthSource, err error) AuthFailed {
	return AuthFailed{Base: NewBase(KindAuthFailed), AttemptID: attemptID, Source: source, Err: err}
}
