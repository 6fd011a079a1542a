package access

import (
	"net/http"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/justiceia/go-access/middleware/gateware"
)

// RouteAuthenticator wires the authenticator into HTTP: it sets and clears
// the session cookie and gates routes per a RouteTable. The gate fails
// closed: any token problem clears the stale cookie and sends the browser
// to sign in with the rejected path stashed for the post-login redirect.
type RouteAuthenticator struct {
	auth             Authenticator
	cfg              Config
	tokenService     TokenService
	cookieDuration   time.Duration
	Logger           Logger
	AuthErrorHandler func(c router.Context, err error) error
	ErrorHandler     func(c router.Context, err error) error
}

var _ HTTPAuthenticator = (*RouteAuthenticator)(nil)

func NewHTTPAuthenticator(auther Authenticator, cfg Config) (*RouteAuthenticator, error) {
	if cfg.GetSigningKey() == "" {
		return nil, ErrMissingSigningKey
	}

	cookieDuration := 24 * time.Hour
	if cfg.GetTokenExpiration() > 0 {
		cookieDuration = time.Duration(cfg.GetTokenExpiration()) * time.Hour
	}

	tokenService, err := NewTokenService(
		[]byte(cfg.GetSigningKey()),
		cfg.GetTokenExpiration(),
		cfg.GetIssuer(),
		cfg.GetAudience(),
		defLogger{},
	)
	if err != nil {
		return nil, err
	}

	a := &RouteAuthenticator{
		cfg:            cfg,
		auth:           auther,
		tokenService:   tokenService,
		Logger:         defLogger{},
		cookieDuration: cookieDuration,
	}

	a.ErrorHandler = a.defaultErrHandler
	a.AuthErrorHandler = a.defaultAuthErrHandler

	return a, nil
}

func (a RouteAuthenticator) GetCookieDuration() time.Duration {
	return a.cookieDuration
}

// Gate classifies the request path against the table and enforces the
// resulting policy. Public and exempt routes skip token handling entirely;
// everything else needs a valid session cookie. Verified-only routes
// additionally re-read the principal, so a freshly completed verification
// takes effect without reissuing the token.
func (a *RouteAuthenticator) Gate(table *RouteTable) router.MiddlewareFunc {
	if table == nil {
		table = DefaultRouteTable()
	}

	return gateware.New(gateware.Config{
		Filter: func(c router.Context) bool {
			return !table.PolicyFor(c.Path()).RequiresSession()
		},
		ErrorHandler: a.gateErrorHandler,
		SigningKey: gateware.SigningKey{
			Key:    []byte(a.cfg.GetSigningKey()),
			JWTAlg: a.cfg.GetSigningMethod(),
		},
		TokenValidator:      a.gateValidator(),
		AuthScheme:          a.cfg.GetAuthScheme(),
		ContextKey:          a.cfg.GetContextKey(),
		TokenLookup:         a.cfg.GetTokenLookup(),
		ValidationListeners: []gateware.ValidationListener{a.verificationListener(table)},
	})
}

// ProtectedRoute guards a single route group with the session check, without
// consulting a route table.
func (a *RouteAuthenticator) ProtectedRoute(errorHandler func(c router.Context, err error) error) router.MiddlewareFunc {
	if errorHandler == nil {
		errorHandler = a.AuthErrorHandler
	}

	return gateware.New(gateware.Config{
		ErrorHandler: errorHandler,
		SigningKey: gateware.SigningKey{
			Key:    []byte(a.cfg.GetSigningKey()),
			JWTAlg: a.cfg.GetSigningMethod(),
		},
		TokenValidator: a.gateValidator(),
		AuthScheme:     a.cfg.GetAuthScheme(),
		ContextKey:     a.cfg.GetContextKey(),
		TokenLookup:    a.cfg.GetTokenLookup(),
	})
}

func (a *RouteAuthenticator) Login(ctx router.Context, payload LoginPayload) error {
	token, err := a.auth.Login(ctx.Context(), payload.GetIdentifier(), payload.GetPassword())
	if err != nil {
		a.Logger.Error("Login error: %s", err)
		return err
	}

	a.setCookieToken(ctx, token, a.cookieDuration)
	return nil
}

func (a *RouteAuthenticator) Logout(ctx router.Context) {
	a.cookieDel(ctx, a.cfg.GetContextKey())
}

// verificationListener enforces the verified-principal requirement for
// routes classified PolicyAuthVerificationRequired. The flag is read from
// the stored profile, not the token, so it cannot go stale.
func (a *RouteAuthenticator) verificationListener(table *RouteTable) gateware.ValidationListener {
	return func(ctx router.Context, claims gateware.AuthClaims) error {
		if table.PolicyFor(ctx.Path()) != PolicyAuthVerificationRequired {
			return nil
		}

		identity, err := a.auth.IdentityFromSession(ctx.Context(), &SessionObject{
			UserID: claims.UserID(),
		})
		if err != nil {
			return ErrIdentityNotFound
		}

		if !identity.Verified() {
			return ErrVerificationRequired
		}

		return nil
	}
}

func (a *RouteAuthenticator) MakeClientRouteAuthErrorHandler(optional bool) func(router.Context, error) error {
	return func(ctx router.Context, err error) error {
		var richErr *errors.Error

		if IsTokenExpiredError(err) {
			richErr = ErrTokenExpired
		} else if IsMalformedError(err) {
			richErr = ErrTokenMalformed
		} else {
			richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
				WithCode(errors.CodeUnauthorized)
		}

		if optional {
			a.Logger.Info("Optional auth failed, proceeding", "error", richErr.Message)
			return ctx.Next()
		}

		return a.ErrorHandler(ctx, richErr)
	}
}

// gateErrorHandler is the fail-closed path: classify the failure for the
// logs, drop the stale cookie, remember where the visitor was headed, and
// send them to sign in.
func (a *RouteAuthenticator) gateErrorHandler(ctx router.Context, err error) error {
	var richErr *errors.Error

	if errors.Is(err, ErrVerificationRequired) {
		a.Logger.Info("Gate redirecting unverified principal", "path", ctx.OriginalURL())
		a.SetRedirect(ctx)
		return ctx.Redirect(a.cfg.GetVerificationRoute(), http.StatusSeeOther)
	}

	if IsTokenExpiredError(err) {
		richErr = ErrTokenExpired
	} else if IsMalformedError(err) {
		richErr = ErrTokenMalformed
	} else {
		richErr = errors.Wrap(err, errors.CategoryAuth, "Invalid authentication token").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Gate rejecting request",
		"text_code", richErr.TextCode,
		"path", ctx.OriginalURL(),
	)

	a.cookieDel(ctx, a.cfg.GetContextKey())
	a.SetRedirect(ctx)

	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(a.cfg.GetSignInRoute(), statusCode)
}

func (a *RouteAuthenticator) GetRedirect(ctx router.Context, def ...string) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	r := ctx.Cookies(rejectedRoute)
	if r == "" {
		if len(def) > 0 {
			return def[0]
		}
		return a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) GetRedirectOrDefault(ctx router.Context) string {
	rejectedRoute := a.cfg.GetRejectedRouteKey()
	refererHeader := string(ctx.Referer())

	r := ctx.Cookies(rejectedRoute, refererHeader)
	if r == "" {
		r = a.cfg.GetRejectedRouteDefault()
	}
	a.cookieDel(ctx, rejectedRoute)
	return r
}

func (a *RouteAuthenticator) SetRedirect(ctx router.Context) {
	rejectedRoute := a.cfg.GetRejectedRouteKey()

	a.Logger.Info("Setting redirect cookie", "key", rejectedRoute, "path", ctx.OriginalURL())

	ctx.Cookie(&router.Cookie{
		Name:     rejectedRoute,
		Value:    ctx.OriginalURL(),
		Expires:  time.Now().Add(time.Minute * 5),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) setCookieToken(c router.Context, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     a.cfg.GetContextKey(),
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Strict",
	})
}

func (a *RouteAuthenticator) defaultAuthErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryAuth, "An unexpected authentication error").
			WithCode(errors.CodeUnauthorized)
	}

	a.Logger.Info(
		"Authentication error, redirecting to sign in",
		"error", richErr.Message,
		"text_code", richErr.TextCode,
		"path", c.OriginalURL(),
	)

	a.SetRedirect(c)

	statusCode := http.StatusSeeOther
	if c.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return c.Redirect(a.cfg.GetSignInRoute(), statusCode)
}

func (a *RouteAuthenticator) defaultErrHandler(c router.Context, err error) error {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		richErr = errors.Wrap(err, errors.CategoryInternal, "An unexpected server error occurred").
			WithCode(errors.CodeInternal)
	}

	a.Logger.Info(
		"Middleware error handler",
		"error", richErr.Message,
		"category", richErr.Category,
		"details", print.MaybePrettyJSON(richErr.Metadata),
	)

	switch richErr.Category {
	case errors.CategoryAuth, errors.CategoryAuthz:
		return a.AuthErrorHandler(c, richErr)
	default:
		return c.Status(richErr.Code).Render("errors/500", router.ViewContext{
			"error": richErr,
		})
	}
}

type gateValidator struct {
	validator TokenValidator
}

func (a *RouteAuthenticator) gateValidator() gateware.TokenValidator {
	return gateValidator{validator: a.tokenService}
}

func (g gateValidator) Validate(raw string) (gateware.AuthClaims, error) {
	claims, err := g.validator.Validate(raw)
	if err != nil {
		return nil, err
	}
	return claims, nil
}
