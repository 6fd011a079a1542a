package access

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// GetRouterSession rebuilds the session descriptor from the claims the gate
// middleware stored in the router context.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	if key == "" {
		key = CookieName
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := raw.(AuthClaims)
	if claims == nil || !ok {
		return nil, ErrUnableToMapClaims
	}

	return sessionFromAuthClaims(claims)
}

func RegisterAccessRoutes[T any](app router.Router[T], opts ...AccessControllerOption) {

	controller := NewAccessController(opts...)

	app.
		Get(controller.Routes.SignIn,
			controller.SignInShow,
		).
		SetName("sign-in.get")

	app.
		Post(
			controller.Routes.SignIn,
			controller.SignInPost,
		).
		SetName("sign-in.post")

	app.Get(controller.Routes.SignOut, controller.SignOut).SetName("sign-out.get")

	app.Get(controller.Routes.Register, controller.RegistrationShow).
		SetName("register.get")
	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Get(controller.Routes.Verification, controller.VerificationShow).
		SetName("vkyc.get")
	app.Post(controller.Routes.Verification, controller.VerificationPost).
		SetName("vkyc.post")
}

type AccessControllerRoutes struct {
	SignIn       string
	SignOut      string
	Register     string
	Verification string
}

type AccessControllerViews struct {
	SignIn       string
	Register     string
	Verification string
}

type AccessController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Routes       *AccessControllerRoutes
	Views        *AccessControllerViews
	Auther       HTTPAuthenticator
	Verifier     *CompleteVerificationHandler
	ErrorHandler router.ErrorHandler
}

type AccessControllerOption func(*AccessController) *AccessController

func NewAccessController(opts ...AccessControllerOption) *AccessController {
	c := &AccessController{
		Logger:       defLogger{},
		ErrorHandler: defaultControllerErrHandler,
		Routes: &AccessControllerRoutes{
			SignIn:       "/signin",
			SignOut:      "/signout",
			Register:     "/signup",
			Verification: "/vkyc",
		},
		Views: &AccessControllerViews{
			SignIn:       "signin",
			Register:     "signup",
			Verification: "vkyc",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in access controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in access controller...")
	}

	if c.Verifier == nil {
		c.Verifier = NewCompleteVerificationHandler(c.Repo)
	}

	return c
}

func (a *AccessController) SignInShow(ctx router.Context) error {
	return ctx.Render(a.Views.SignIn, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// SignInRequest payload
type SignInRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r SignInRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r SignInRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AccessController) SignInPost(ctx router.Context) error {
	payload := new(SignInRequest)
	errs := map[string]string{}

	if err := ctx.Bind(payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"record":     payload,
			"validation": err.Error(),
		})
	}

	if a.Debug {
		fmt.Println("======= ACCESS SIGNIN =======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=============================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		// Same message whatever went wrong underneath
		errs["authentication"] = "Authentication Error"
		return ctx.Render(a.Views.SignIn, router.ViewContext{
			"errors":  errs,
			"payload": payload,
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return ctx.Redirect(redirect, router.StatusSeeOther)
}

func (a *AccessController) SignOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.Redirect("/", router.StatusTemporaryRedirect)
}

func (a *AccessController) RegistrationShow(ctx router.Context) error {
	return ctx.Render(a.Views.Register, router.ViewContext{
		"errors": map[string]string{},
		"record": RegisterAccountMessage{},
	})
}

// RegistrationCreatePayload is the form payload
type RegistrationCreatePayload struct {
	FirstName       string `form:"first_name" json:"first_name"`
	LastName        string `form:"last_name" json:"last_name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.Length(10, 11), is.Digit),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AccessController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		errs := map[string]string{}
		errs["form"] = "Failed to parse form"
		a.Logger.Error("register account parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Register, router.ViewContext{
			"errors": errs,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		a.Logger.Error("register account validate payload: ", "error", err)

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Register, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	req := RegisterAccountMessage{
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		Role:      RoleClient,
	}

	registerAccount := RegisterAccountHandler{repo: a.Repo}
	if err := registerAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: ", "error", err)

		status := fiber.StatusInternalServerError
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
			status = fiber.StatusConflict
		}

		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error registering account",
		}).Status(status).Render(a.Views.Register, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	// Fresh accounts sign straight in: issue the session token and cookie,
	// then land on the verification flow the new principal still has to pass.
	signIn := SignInRequest{Identifier: req.Email, Password: payload.Password}
	if err := a.Auther.Login(ctx, signIn); err != nil {
		a.Logger.Error("register account sign in: ", "error", err)
		return flash.WithSuccess(ctx, router.ViewContext{
			"system_message": "Successful account registration",
		}).Redirect(a.Routes.SignIn, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Successful account registration",
	}).Redirect(a.Routes.Verification, fiber.StatusSeeOther)
}

// VerificationShow renders the verification page with whatever still blocks
// completion for the signed in principal.
func (a *AccessController) VerificationShow(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), session.GetUserID())
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	state := VerificationState{User: user}

	return ctx.Render(a.Views.Verification, router.ViewContext{
		"errors":   nil,
		"record":   NewProfileDTO(user),
		"verified": !state.RequiresVerification(),
		"guidance": state.Guidance(),
		"missing":  state.MissingFields(),
	})
}

// VerificationPostPayload carries the profile fields the flow collects.
type VerificationPostPayload struct {
	FirstName string `form:"first_name" json:"first_name"`
	LastName  string `form:"last_name" json:"last_name"`
	Phone     string `form:"phone_number" json:"phone_number"`
}

// Validate will validate the payload
func (r VerificationPostPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Phone, validation.Required, validation.Length(10, 15)),
	)
}

func (a *AccessController) VerificationPost(ctx router.Context) error {
	session, err := GetRouterSession(ctx, "")
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	payload := new(VerificationPostPayload)
	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("verification parse payload: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.Verification, router.ViewContext{
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		errs := FormatValidationErrorToMap(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.Verification, router.ViewContext{
			"record":     payload,
			"validation": errs,
		})
	}

	userID, err := session.GetUserUUID()
	if err != nil {
		return a.ErrorHandler(ctx, err)
	}

	if err := a.updateProfile(ctx, userID, payload); err != nil {
		return a.ErrorHandler(ctx, err)
	}

	req := CompleteVerificationMessage{UserID: userID}
	if err := a.Verifier.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("verification error: ", "error", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Verification could not be completed",
		}).Render(a.Views.Verification, router.ViewContext{
			"record": payload,
			"errors": []string{err.Error()},
		})
	}

	redirect := a.Auther.GetRedirect(ctx, "/")

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Verification completed",
	}).Redirect(redirect, fiber.StatusSeeOther)
}

func (a *AccessController) updateProfile(ctx router.Context, userID uuid.UUID, payload *VerificationPostPayload) error {
	user, err := a.Repo.Users().GetByIdentifier(ctx.Context(), userID.String())
	if err != nil {
		return err
	}

	user.FirstName = payload.FirstName
	user.LastName = payload.LastName
	user.Phone = payload.Phone

	_, err = a.Repo.Users().Update(ctx.Context(), user)
	return err
}

// ProfileDTO is the view facing projection of a user record.
type ProfileDTO struct {
	ID         uuid.UUID `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone_number"`
	Role       UserRole  `json:"user_role"`
	IsVerified bool      `json:"is_verified"`
}

func NewProfileDTO(user *User) ProfileDTO {
	return ProfileDTO{
		ID:         user.ID,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Email:      user.Email,
		Phone:      user.Phone,
		Role:       user.Role,
		IsVerified: user.IsVerified,
	}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return goerrors.New("values must match", goerrors.CategoryValidation)
		}
		return nil
	}
}

func defaultControllerErrHandler(c router.Context, err error) error {
	return c.Render("errors/500", router.ViewContext{
		"message": err.Error(),
	})
}
