package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/taskboard/internal/auth"
	"github.com/gosuda/taskboard/internal/domain"
)

type SignupInput struct {
	Body struct {
		Username       string `json:"username" minLength:"1" maxLength:"150" doc:"Login name"`
		Email          string `json:"email,omitempty" maxLength:"255" doc:"User email"`
		Password       string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: signup credential DTO
		FirstName      string `json:"first_name,omitempty" maxLength:"150" doc:"First name"`
		LastName       string `json:"last_name,omitempty" maxLength:"150" doc:"Last name"`
		OrganizationID *int64 `json:"organization_id,omitempty" doc:"Organization to join; the default organization when omitted or unknown"`
	}
}

type LoginInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" maxLength:"150" doc:"Login name"`
		Password string `json:"password" minLength:"1" maxLength:"128" doc:"Password"` //nolint:gosec // G117: login credential DTO
	}
}

// AuthOutput is returned by login and signup.
type AuthOutput struct {
	Body struct {
		User         *domain.User `json:"user"`
		AccessToken  string       `json:"access_token"`  //nolint:gosec // G117: auth response DTO
		RefreshToken string       `json:"refresh_token"` //nolint:gosec // G117: auth response DTO
	}
}

type RefreshInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token" minLength:"1" doc:"Refresh token"` //nolint:gosec // G117: token refresh DTO
	}
}

type RefreshOutput struct {
	Body struct {
		AccessToken string `json:"access_token"` //nolint:gosec // G117: auth response DTO
	}
}

type LogoutInput struct {
	Body struct {
		RefreshToken string `json:"refresh_token,omitempty" doc:"Refresh token to revoke"` //nolint:gosec // G117: logout DTO
	}
}

func authOutput(u *domain.User, tokens auth.Tokens) *AuthOutput {
	out := &AuthOutput{}
	out.Body.User = u
	out.Body.AccessToken = tokens.Access
	out.Body.RefreshToken = tokens.Refresh
	return out
}

// RegisterAuthRoutes registers the unauthenticated login, signup and refresh
// operations.
func RegisterAuthRoutes(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID:   "signup",
		Method:        http.MethodPost,
		Path:          "/auth/signup",
		Summary:       "Create an account",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusCreated,
	}, func(ctx context.Context, input *SignupInput) (*AuthOutput, error) {
		user, tokens, err := authSvc.Signup(ctx, auth.NewUser{
			Username:       input.Body.Username,
			Email:          input.Body.Email,
			Password:       input.Body.Password,
			FirstName:      input.Body.FirstName,
			LastName:       input.Body.LastName,
			OrganizationID: input.Body.OrganizationID,
		})
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrUserAlreadyExists):
				return nil, huma.Error409Conflict("username already taken")
			case errors.Is(err, domain.ErrValidation):
				return nil, huma.Error422UnprocessableEntity("username and password are required")
			}
			return nil, huma.Error500InternalServerError("failed to sign up", err)
		}

		return authOutput(user, tokens), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Summary:     "Login with username and password",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *LoginInput) (*AuthOutput, error) {
		user, tokens, err := authSvc.Login(ctx, input.Body.Username, input.Body.Password)
		if err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				return nil, huma.Error401Unauthorized("invalid username or password")
			}
			return nil, huma.Error500InternalServerError("login failed", err)
		}

		return authOutput(user, tokens), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "refresh-token",
		Method:      http.MethodPost,
		Path:        "/auth/refresh",
		Summary:     "Refresh access token",
		Tags:        []string{"Auth"},
	}, func(ctx context.Context, input *RefreshInput) (*RefreshOutput, error) {
		accessToken, err := authSvc.RefreshToken(ctx, input.Body.RefreshToken)
		if err != nil {
			return nil, huma.Error401Unauthorized("invalid or expired refresh token")
		}

		out := &RefreshOutput{}
		out.Body.AccessToken = accessToken
		return out, nil
	})
}

// RegisterLogoutRoute registers logout on the authenticated API.
func RegisterLogoutRoute(api huma.API, authSvc AuthService) {
	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/auth/logout",
		Summary:       "Revoke the session's refresh token",
		Tags:          []string{"Auth"},
		DefaultStatus: http.StatusNoContent,
	}, func(ctx context.Context, input *LogoutInput) (*struct{}, error) {
		if _, err := currentUser(ctx); err != nil {
			return nil, err
		}
		if err := authSvc.Logout(ctx, input.Body.RefreshToken); err != nil {
			if errors.Is(err, auth.ErrInvalidToken) {
				return nil, huma.Error400BadRequest("invalid refresh token")
			}
			log.Warn().Err(err).Msg("logout: failed to revoke refresh token")
			return nil, huma.Error500InternalServerError("failed to log out", err)
		}
		return nil, nil
	})
}
