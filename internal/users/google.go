package users

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserinfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleAuth оборачивает OAuth2-поток входа через Google.
type GoogleAuth struct {
	config *oauth2.Config
}

type GoogleProfile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

func NewGoogleAuth(clientID, clientSecret, redirectURL string) *GoogleAuth {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GoogleAuth{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (g *GoogleAuth) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode обменивает код авторизации на профиль пользователя Google.
func (g *GoogleAuth) ExchangeCode(ctx context.Context, code string) (*GoogleProfile, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("ошибка обмена кода авторизации: %w", err)
	}

	resp, err := g.config.Client(ctx, token).Get(googleUserinfoURL)
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса профиля Google: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения профиля Google: %w", err)
	}

	var profile GoogleProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("ошибка разбора профиля Google: %w", err)
	}
	if profile.Email == "" {
		return nil, errors.New("профиль Google не содержит email")
	}
	return &profile, nil
}
