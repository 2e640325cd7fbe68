package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"estate-portal/internal/domain"
	"estate-portal/internal/identity"
	"estate-portal/internal/transport/http/ez"
)

type sessionView struct {
	Loading       bool             `json:"loading"`
	Authenticated bool             `json:"authenticated"`
	Role          domain.Role      `json:"role"`
	Identity      *domain.Identity `json:"identity"`
}

func viewOf(s domain.Session) sessionView {
	return sessionView{Loading: s.Loading, Authenticated: s.Authenticated(), Role: s.Role, Identity: s.Identity}
}

type signUpIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	PhotoURL string `json:"photoURL"`
	From     string `json:"from"`
}

type loginIn struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	From     string `json:"from"`
}

// federatedIn carries what the front-end's provider popup returned.
type federatedIn struct {
	IDToken     string `json:"idToken"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	From        string `json:"from"`
}

type signedIn struct {
	Identity     domain.Identity `json:"identity"`
	ExistingUser bool            `json:"existingUser"`
	// Warning reports a backend record that could not be created; the sign-in stands.
	Warning  string `json:"warning,omitempty"`
	Redirect string `json:"redirect"`
}

func (h *Handler) mountSession(g *gin.RouterGroup) {
	ez.RegisterAction(h.ez(g), ez.Action[struct{}, sessionView]{
		Method: http.MethodGet,
		Path:   "/session",
		Binder: ez.BindNone,
		Handler: func(_ *gin.Context, _ *struct{}) (sessionView, error) {
			return viewOf(h.Sessions.Snapshot()), nil
		},
	})
}

func (h *Handler) mountAuth(g *gin.RouterGroup) {
	e := h.ez(g)

	ez.RegisterAction(e, ez.Action[signUpIn, signedIn]{
		Method: http.MethodPost,
		Path:   "/signup",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *signUpIn) (signedIn, error) {
			res, err := h.Auth.SignUp(c.Request.Context(), in.Email, in.Password, in.Name, in.PhotoURL)
			if err != nil {
				return signedIn{}, err
			}
			out := signedIn{Identity: res.Identity, ExistingUser: res.ExistingUser, Redirect: h.Paths.PostLoginTarget(in.From)}
			if res.EnsureErr != nil {
				out.Warning = domain.UserMessage(res.EnsureErr)
			}
			return out, nil
		},
	})

	ez.RegisterAction(e, ez.Action[loginIn, signedIn]{
		Method: http.MethodPost,
		Path:   "/login",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *loginIn) (signedIn, error) {
			id, err := h.Auth.Login(c.Request.Context(), in.Email, in.Password)
			if err != nil {
				return signedIn{}, err
			}
			return signedIn{Identity: id, ExistingUser: true, Redirect: h.Paths.PostLoginTarget(in.From)}, nil
		},
	})

	ez.RegisterAction(e, ez.Action[federatedIn, signedIn]{
		Method: http.MethodPost,
		Path:   "/google",
		Binder: ez.BindJSON,
		Handler: func(c *gin.Context, in *federatedIn) (signedIn, error) {
			ctx := identity.WithFederatedCredential(c.Request.Context(), identity.FederatedCredential{
				IDToken: in.IDToken, Email: in.Email, DisplayName: in.DisplayName, PhotoURL: in.PhotoURL,
			})
			res, err := h.Auth.SignInWithFederatedProvider(ctx)
			if err != nil {
				return signedIn{}, err
			}
			out := signedIn{Identity: res.Identity, ExistingUser: res.ExistingUser, Redirect: h.Paths.PostLoginTarget(in.From)}
			if res.EnsureErr != nil {
				out.Warning = domain.UserMessage(res.EnsureErr)
			}
			return out, nil
		},
	})

	ez.RegisterAction(e, ez.Action[struct{}, gin.H]{
		Method: http.MethodPost,
		Path:   "/logout",
		Binder: ez.BindNone,
		Handler: func(c *gin.Context, _ *struct{}) (gin.H, error) {
			out := gin.H{"redirect": h.Paths.Home}
			if err := h.Auth.Logout(c.Request.Context()); err != nil {
				// the local session is already cleared
				out["warning"] = err.Error()
			}
			return out, nil
		},
	})
}
