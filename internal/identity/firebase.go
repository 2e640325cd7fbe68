package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"estate-portal/internal/core/auth"
	"estate-portal/internal/domain"
)

const (
	defaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com/v1"
	defaultSecureTokenURL     = "https://securetoken.googleapis.com/v1"

	// tokens closer than this to expiry are refreshed before being handed out
	tokenRefreshMargin = time.Minute
)

// FirebaseOptions configures the Firebase Auth REST provider.
type FirebaseOptions struct {
	APIKey         string
	IdentityURL    string // Identity Toolkit base, default https://identitytoolkit.googleapis.com/v1
	SecureTokenURL string // Secure Token base, default https://securetoken.googleapis.com/v1
	RequestURI     string // continue URI sent with signInWithIdp, default http://localhost
	HTTPClient     *http.Client
	Prompter       Prompter
	Logger         *zap.Logger
}

// Firebase talks to Firebase Authentication over its REST API. The ID token and refresh
// token are held in memory only, the way the browser SDK holds them for the page lifetime.
type Firebase struct {
	opts FirebaseOptions
	hc   *http.Client
	log  *zap.Logger

	mu           sync.Mutex
	current      *domain.Identity
	idToken      string
	refreshToken string

	obs observers
}

func NewFirebase(o FirebaseOptions) *Firebase {
	if o.IdentityURL == "" {
		o.IdentityURL = defaultIdentityToolkitURL
	}
	if o.SecureTokenURL == "" {
		o.SecureTokenURL = defaultSecureTokenURL
	}
	if o.RequestURI == "" {
		o.RequestURI = "http://localhost"
	}
	hc := o.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return &Firebase{opts: o, hc: hc, log: o.Logger}
}

// accountResponse covers signUp, signInWithPassword, signInWithIdp and update answers.
type accountResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	ProviderID   string `json:"providerId"`
}

type lookupResponse struct {
	Users []struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
		PhotoURL    string `json:"photoUrl"`
		CreatedAt   string `json:"createdAt"` // epoch millis as string
	} `json:"users"`
}

type firebaseErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (f *Firebase) CreateAccount(ctx context.Context, email, password string) (domain.Identity, error) {
	var out accountResponse
	err := f.post(ctx, f.opts.IdentityURL+"/accounts:signUp", map[string]any{
		"email": email, "password": password, "returnSecureToken": true,
	}, &out)
	if err != nil {
		return domain.Identity{}, err
	}
	return f.signedIn(ctx, out, "password", time.Now().UTC())
}

func (f *Firebase) Authenticate(ctx context.Context, email, password string) (domain.Identity, error) {
	var out accountResponse
	err := f.post(ctx, f.opts.IdentityURL+"/accounts:signInWithPassword", map[string]any{
		"email": email, "password": password, "returnSecureToken": true,
	}, &out)
	if err != nil {
		return domain.Identity{}, err
	}
	return f.signedIn(ctx, out, "password", time.Time{})
}

func (f *Firebase) AuthenticateFederated(ctx context.Context) (domain.Identity, error) {
	if f.opts.Prompter == nil {
		return domain.Identity{}, fmt.Errorf("%w: no federated prompt configured", domain.ErrPopupClosed)
	}
	cred, err := f.opts.Prompter.Prompt(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	if cred.IDToken == "" {
		return domain.Identity{}, domain.ErrPopupClosed
	}
	postBody := url.Values{"id_token": {cred.IDToken}, "providerId": {"google.com"}}
	var out accountResponse
	err = f.post(ctx, f.opts.IdentityURL+"/accounts:signInWithIdp", map[string]any{
		"postBody":            postBody.Encode(),
		"requestUri":          f.opts.RequestURI,
		"returnIdpCredential": true,
		"returnSecureToken":   true,
	}, &out)
	if err != nil {
		return domain.Identity{}, err
	}
	return f.signedIn(ctx, out, "google.com", time.Time{})
}

func (f *Firebase) UpdateProfile(ctx context.Context, displayName, photoURL string) (domain.Identity, error) {
	tok, err := f.Token(ctx)
	if err != nil {
		return domain.Identity{}, err
	}
	body := map[string]any{"idToken": tok, "displayName": displayName, "returnSecureToken": true}
	if photoURL != "" {
		body["photoUrl"] = photoURL
	} else {
		body["deleteAttribute"] = []string{"PHOTO_URL"}
	}
	var out accountResponse
	if err := f.post(ctx, f.opts.IdentityURL+"/accounts:update", body, &out); err != nil {
		return domain.Identity{}, err
	}

	f.mu.Lock()
	if f.current == nil {
		f.mu.Unlock()
		return domain.Identity{}, ErrSignedOut
	}
	f.current.DisplayName = out.DisplayName
	f.current.PhotoURL = out.PhotoURL
	if out.IDToken != "" {
		f.idToken = out.IDToken
	}
	if out.RefreshToken != "" {
		f.refreshToken = out.RefreshToken
	}
	id := *f.current
	f.mu.Unlock()

	f.obs.notify(&id)
	return id, nil
}

func (f *Firebase) SignOut(context.Context) error {
	f.mu.Lock()
	f.current = nil
	f.idToken = ""
	f.refreshToken = ""
	f.mu.Unlock()
	f.obs.notify(nil)
	return nil
}

func (f *Firebase) ObserveState(fn StateFunc) func() {
	unsubscribe := f.obs.add(fn)
	f.mu.Lock()
	var cur *domain.Identity
	if f.current != nil {
		id := *f.current
		cur = &id
	}
	f.mu.Unlock()
	fn(cur)
	return unsubscribe
}

// Token returns the cached ID token while it is comfortably valid and refreshes it otherwise.
func (f *Firebase) Token(ctx context.Context) (string, error) {
	f.mu.Lock()
	idToken, refresh := f.idToken, f.refreshToken
	signedIn := f.current != nil
	f.mu.Unlock()
	if !signedIn {
		return "", ErrSignedOut
	}

	if c, err := auth.Inspect(idToken); err == nil && !c.ExpiresWithin(time.Now(), tokenRefreshMargin) {
		return idToken, nil
	}

	form := url.Values{"grant_type": {"refresh_token"}, "refresh_token": {refresh}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		f.opts.SecureTokenURL+"/token?key="+url.QueryEscape(f.opts.APIKey), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var out struct {
		IDToken      string `json:"id_token"`
		RefreshToken string `json:"refresh_token"`
		UserID       string `json:"user_id"`
	}
	if err := f.do(req, &out); err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil || f.current.UID != out.UserID {
		return "", ErrSignedOut
	}
	f.idToken, f.refreshToken = out.IDToken, out.RefreshToken
	f.log.Debug("id token refreshed", zap.String("uid", out.UserID))
	return out.IDToken, nil
}

// signedIn stores the new tokens, completes the profile with accounts:lookup and notifies observers.
func (f *Firebase) signedIn(ctx context.Context, r accountResponse, providerID string, createdAt time.Time) (domain.Identity, error) {
	id := domain.Identity{
		UID:         r.LocalID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		PhotoURL:    r.PhotoURL,
		ProviderID:  providerID,
		CreatedAt:   createdAt,
	}
	if createdAt.IsZero() {
		var lk lookupResponse
		if err := f.post(ctx, f.opts.IdentityURL+"/accounts:lookup", map[string]any{"idToken": r.IDToken}, &lk); err != nil {
			f.log.Warn("account lookup failed", zap.String("uid", r.LocalID), zap.Error(err))
		} else if len(lk.Users) > 0 {
			u := lk.Users[0]
			if id.DisplayName == "" {
				id.DisplayName = u.DisplayName
			}
			if id.PhotoURL == "" {
				id.PhotoURL = u.PhotoURL
			}
			if ms, err := strconv.ParseInt(u.CreatedAt, 10, 64); err == nil {
				id.CreatedAt = time.UnixMilli(ms).UTC()
			}
		}
	}

	f.mu.Lock()
	cp := id
	f.current = &cp
	f.idToken, f.refreshToken = r.IDToken, r.RefreshToken
	f.mu.Unlock()

	f.obs.notify(&id)
	return id, nil
}

func (f *Firebase) post(ctx context.Context, endpoint string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"?key="+url.QueryEscape(f.opts.APIKey), bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return f.do(req, out)
}

func (f *Firebase) do(req *http.Request, out any) error {
	resp, err := f.hc.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read body: %v", domain.ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb firebaseErrorBody
		if json.Unmarshal(body, &eb) == nil && eb.Error.Message != "" {
			return mapFirebaseError(eb.Error.Message)
		}
		return fmt.Errorf("%w: identity provider status %d", domain.ErrNetwork, resp.StatusCode)
	}
	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%w: decode response: %v", domain.ErrNetwork, err)
		}
	}
	return nil
}

// mapFirebaseError translates Identity Toolkit error codes. Messages look like
// "WEAK_PASSWORD : Password should be at least 6 characters".
func mapFirebaseError(message string) error {
	code, detail, _ := strings.Cut(message, " : ")
	code = strings.TrimSpace(code)
	var kind error
	switch code {
	case "EMAIL_EXISTS", "INVALID_EMAIL", "MISSING_EMAIL", "MISSING_PASSWORD", "OPERATION_NOT_ALLOWED":
		kind = domain.ErrCredential
	case "WEAK_PASSWORD":
		kind = domain.ErrWeakPassword
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED", "INVALID_IDP_RESPONSE":
		kind = domain.ErrInvalidCredentials
	case "TOO_MANY_ATTEMPTS_TRY_LATER":
		kind = domain.ErrTooManyAttempts
	case "TOKEN_EXPIRED", "INVALID_ID_TOKEN", "USER_NOT_FOUND", "INVALID_REFRESH_TOKEN":
		kind = ErrSignedOut
	default:
		return fmt.Errorf("%w: identity provider: %s", domain.ErrNetwork, message)
	}
	if detail != "" {
		return fmt.Errorf("%w: %s", kind, detail)
	}
	return fmt.Errorf("%w (%s)", kind, strings.ToLower(code))
}

// IsProviderError reports whether err is one of the normalized sign-in failures.
func IsProviderError(err error) bool {
	for _, k := range []error{
		domain.ErrCredential, domain.ErrWeakPassword, domain.ErrInvalidCredentials,
		domain.ErrTooManyAttempts, domain.ErrPopupClosed,
	} {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}
