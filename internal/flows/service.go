package flows

import "context"

// Service is the centralized flow runner built once by the engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Authenticate.VerifyAccess != nil
}

func (s Service) Login(ctx context.Context, req LoginRequest) LoginResult {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, token string) RefreshResult {
	return RunRefresh(ctx, token, s.deps.Refresh)
}

func (s Service) Logout(ctx context.Context, req LogoutRequest) LogoutResult {
	return RunLogout(ctx, req, s.deps.Logout)
}

func (s Service) Authenticate(ctx context.Context, token string) AuthenticateResult {
	return RunAuthenticate(ctx, token, s.deps.Authenticate)
}
