package echoapi

import (
	"net/http"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/auth"
	"github.com/trezcool/elimu/core/user"
)

var (
	// appJWTConfig is the default JWT auth middleware config.
	appJWTConfig = middleware.JWTConfig{
		SigningKey:    core.Conf.SecretKey,
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    "userToken",
		Claims:        new(Claims),
	}
	contextUserKey = "user"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Role      string `json:"role,omitempty"`
	GroupID   string `json:"group_id,omitempty"`
}

func GetUserClaims(usr user.User) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Email:     usr.Email,
		FirstName: usr.FirstName,
		LastName:  usr.LastName,
		Role:      usr.Role,
		GroupID:   usr.GroupID,
	}
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(appJWTConfig.SigningMethod)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString(appJWTConfig.SigningKey)
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

// generateRefreshToken builds a fresh refresh JWT for the user. The Id claim
// makes each issuance distinct so the token can serve as a storage key.
func generateRefreshToken(usr user.User) (string, error) {
	now := time.Now()
	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    core.Conf.AppName,
			Subject:   usr.ID,
			ExpiresAt: now.Add(core.Conf.Server.JWTRefreshExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
	}
	return GenerateToken(claims)
}

func authenticate(email, pwd string, svc *user.Service) (user.User, error) {
	usr, err := svc.GetByEmail(email)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return user.User{}, errAuthenticationFailed
		}
		return user.User{}, errors.Wrap(err, "finding user by email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return user.User{}, errAuthenticationFailed
	}
	return usr, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(appJWTConfig.ContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc *user.Service) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return user.User{}, errors.Wrap(err, "getting context claims")
	}

	usr, err := svc.GetByID(claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

type authApi struct {
	usrSvc  *user.Service
	authSvc *auth.Service
}

func registerAuthAPI(g *echo.Group, api authApi) {
	g.POST("/login", api.login)
	g.POST("/refresh", api.refresh)
	g.POST("/signup", api.signup)
}

func (api *authApi) issueTokens(usr user.User) (TokenResponse, error) {
	access, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return TokenResponse{}, errors.Wrap(err, "generating access token")
	}
	refresh, err := generateRefreshToken(usr)
	if err != nil {
		return TokenResponse{}, errors.Wrap(err, "generating refresh token")
	}
	if _, err = api.authSvc.Save(refresh, usr.ID); err != nil {
		return TokenResponse{}, errors.Wrap(err, "saving refresh token")
	}
	return TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

func (api *authApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	usr, err := authenticate(data.Email, data.Password, api.usrSvc)
	if err != nil {
		return err
	}
	tokens, err := api.issueTokens(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, tokens)
}

func (api *authApi) refresh(ctx echo.Context) error {
	var data RefreshRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to RefreshRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	userID, err := api.authSvc.Validate(data.RefreshToken)
	if err != nil {
		if errors.Cause(err) == auth.ErrInvalidToken {
			return errRefreshExpired
		}
		return errors.Wrap(err, "validating refresh token")
	}

	usr, err := api.usrSvc.GetByID(userID)
	if err != nil {
		return errors.Wrap(err, "finding user by ID")
	}

	access, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		return errors.Wrap(err, "generating access token")
	}
	return ctx.JSON(http.StatusOK, TokenResponse{
		AccessToken:  access,
		RefreshToken: data.RefreshToken,
	})
}

func (api *authApi) signup(ctx echo.Context) error {
	var data user.NewUser
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewUser")
	}
	if err := data.Validate(api.usrSvc); err != nil {
		return err
	}

	usr, err := api.usrSvc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating user")
	}
	tokens, err := api.issueTokens(usr)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SignupResponse{User: usr, TokenResponse: tokens})
}
