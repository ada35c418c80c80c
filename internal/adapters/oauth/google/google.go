package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/Miraines/gentlemale/backend/internal/domain/auth/model"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type Provider struct {
	cfg         *oauth2.Config
	userInfoURL string
}

func New(clientID, clientSecret, redirectURL string) *Provider {
	return newProvider(&oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"email", "profile"},
		Endpoint:     googleoauth.Endpoint,
	}, userInfoURL)
}

func newProvider(cfg *oauth2.Config, infoURL string) *Provider {
	return &Provider{cfg: cfg, userInfoURL: infoURL}
}

// AuthURL asks for offline access and forces the consent screen.
func (p *Provider) AuthURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

type userInfo struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	VerifiedEmail bool   `json:"verified_email"`
}

// Exchange trades the authorization code for a token and reads the profile.
func (p *Provider) Exchange(ctx context.Context, code string) (model.OAuthProfile, error) {
	tok, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return model.OAuthProfile{}, fmt.Errorf("code exchange: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return model.OAuthProfile{}, err
	}
	resp, err := p.cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return model.OAuthProfile{}, fmt.Errorf("userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.OAuthProfile{}, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return model.OAuthProfile{}, fmt.Errorf("userinfo decode: %w", err)
	}
	return model.OAuthProfile{Email: info.Email, Name: info.Name, EmailVerified: info.VerifiedEmail}, nil
}
