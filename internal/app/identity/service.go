package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nuid"
	"github.com/yellowbridge/lamentwall/internal/platform/auth"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// GitHubUserURL returns the signed-in user's profile.
const GitHubUserURL = "https://api.github.com/user"

var (
	ErrOAuthDisabled  = errors.New("sign-in is not configured")
	ErrStateMismatch  = errors.New("oauth state mismatch")
	ErrMissingCode    = errors.New("authorization code is required")
	ErrInvalidProfile = errors.New("identity provider returned an invalid profile")
)

// NewGitHubConfig builds the OAuth2 client for GitHub sign-in.
func NewGitHubConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     github.Endpoint,
		Scopes:       []string{"read:user"},
	}
}

type Service struct {
	OAuth       *oauth2.Config
	Repo        Repository
	AuthToken   auth.Manager
	UserInfoURL string
	NewState    func() string
	Now         func() time.Time
}

func NewService(oauth *oauth2.Config, repo Repository, tokenManager auth.Manager) *Service {
	return &Service{
		OAuth:       oauth,
		Repo:        repo,
		AuthToken:   tokenManager,
		UserInfoURL: GitHubUserURL,
		NewState:    nuid.Next,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Enabled() bool {
	return s != nil && s.OAuth != nil && s.OAuth.ClientID != ""
}

// BeginLogin returns a fresh state value and the provider URL to send the
// browser to. The caller keeps state until the callback.
func (s *Service) BeginLogin() (state, authURL string, err error) {
	if !s.Enabled() {
		return "", "", ErrOAuthDisabled
	}
	state = s.NewState()
	return state, s.OAuth.AuthCodeURL(state), nil
}

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
}

// CompleteLogin exchanges the callback code, records the account and returns
// a signed session token.
func (s *Service) CompleteLogin(ctx context.Context, expectedState, state, code string) (string, auth.Claims, error) {
	if !s.Enabled() {
		return "", auth.Claims{}, ErrOAuthDisabled
	}
	if expectedState == "" || state != expectedState {
		return "", auth.Claims{}, ErrStateMismatch
	}
	if strings.TrimSpace(code) == "" {
		return "", auth.Claims{}, ErrMissingCode
	}

	tok, err := s.OAuth.Exchange(ctx, code)
	if err != nil {
		return "", auth.Claims{}, fmt.Errorf("exchange code: %w", err)
	}
	user, err := s.fetchUser(ctx, tok)
	if err != nil {
		return "", auth.Claims{}, err
	}

	account := Account{
		ID:          strconv.FormatInt(user.ID, 10),
		Login:       user.Login,
		Name:        user.Name,
		LastLoginAt: s.Now(),
	}
	if err := s.Repo.UpsertAccount(ctx, account); err != nil {
		return "", auth.Claims{}, err
	}

	claims := auth.Claims{Subject: account.ID, Username: account.Login, Name: account.Name}
	token, err := s.AuthToken.Sign(claims)
	if err != nil {
		return "", auth.Claims{}, err
	}
	return token, claims, nil
}

func (s *Service) fetchUser(ctx context.Context, tok *oauth2.Token) (githubUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.UserInfoURL, nil)
	if err != nil {
		return githubUser{}, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := s.OAuth.Client(ctx, tok).Do(req)
	if err != nil {
		return githubUser{}, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return githubUser{}, fmt.Errorf("%w: status %d", ErrInvalidProfile, resp.StatusCode)
	}

	var user githubUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return githubUser{}, fmt.Errorf("%w: %v", ErrInvalidProfile, err)
	}
	if user.ID == 0 || user.Login == "" {
		return githubUser{}, ErrInvalidProfile
	}
	return user, nil
}
