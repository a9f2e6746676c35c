package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core"
	"github.com/profpay/profpay/core/audit"
	"github.com/profpay/profpay/core/user"
)

const (
	tokenContextKey = "userToken"
	userContextKey  = "user"

	accessCookie  = "access_token"
	refreshCookie = "refresh_token"

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	UserID   int    `json:"uid"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role,omitempty"`
	Type     string `json:"type"`
}

type tokenIssuer struct {
	conf *core.Config
}

func (ti tokenIssuer) jwtConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(ti.conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

func (ti tokenIssuer) claims(usr user.User, typ string) *Claims {
	ttl := ti.conf.Server.AccessTokenTTL
	if typ == tokenTypeRefresh {
		ttl = ti.conf.Server.RefreshTokenTTL
	}
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Id:        uuid.New().String(),
			Issuer:    ti.conf.AppName,
			Subject:   strconv.Itoa(usr.ID),
			ExpiresAt: now.Add(ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		UserID:   usr.ID,
		Username: usr.Username,
		Role:     usr.Role,
		Type:     typ,
	}
}

// sign generates a signed JWT token string representing the Claims.
func (ti tokenIssuer) sign(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(ti.conf.SecretKey))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (ti tokenIssuer) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != middleware.AlgorithmHS256 {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(ti.conf.SecretKey), nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// TokenPair is the login and refresh response.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

func (ti tokenIssuer) issue(usr user.User) (TokenPair, error) {
	access, err := ti.sign(ti.claims(usr, tokenTypeAccess))
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := ti.sign(ti.claims(usr, tokenTypeRefresh))
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// GenerateTokens issues the access and refresh tokens of usr.
func GenerateTokens(conf *core.Config, usr user.User) (TokenPair, error) {
	return tokenIssuer{conf: conf}.issue(usr)
}

func (ti tokenIssuer) setCookies(ctx echo.Context, pair TokenPair) {
	ctx.SetCookie(ti.cookie(accessCookie, pair.AccessToken, ti.conf.Server.AccessTokenTTL))
	ctx.SetCookie(ti.cookie(refreshCookie, pair.RefreshToken, ti.conf.Server.RefreshTokenTTL))
}

func (ti tokenIssuer) clearCookies(ctx echo.Context) {
	ctx.SetCookie(ti.cookie(accessCookie, "", -1))
	ctx.SetCookie(ti.cookie(refreshCookie, "", -1))
}

func (ti tokenIssuer) cookie(name, value string, ttl time.Duration) *http.Cookie {
	ck := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   ti.conf.Server.CookieSecure,
		SameSite: sameSite(ti.conf.Server.CookieSameSite),
	}
	if ttl < 0 {
		ck.MaxAge = -1
	} else {
		ck.MaxAge = int(ttl.Seconds())
	}
	return ck
}

func sameSite(s string) http.SameSite {
	switch s {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context) (user.User, error) {
	if usr, ok := ctx.Get(userContextKey).(user.User); ok {
		return usr, nil
	}
	return user.User{}, errUnauthorized
}

// actorOf returns the audit actor of the request.
func actorOf(ctx echo.Context) audit.Actor {
	a := audit.Actor{IPAddress: ctx.RealIP(), UserAgent: ctx.Request().UserAgent()}
	if claims, err := getContextClaims(ctx); err == nil {
		a.UserID = claims.UserID
	}
	return a
}
