package handler

import (
	"time"

	"tubequiz/internal/config"
	"tubequiz/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

func jwtCookie(cfg config.CookieConfig, name, value string) *fiber.Cookie {
	path := cfg.Path
	if path == "" {
		path = "/"
	}
	sameSite := cfg.SameSite
	if sameSite == "" {
		sameSite = fiber.CookieSameSiteLaxMode
	}
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   cfg.Domain,
		HTTPOnly: true,
		Secure:   cfg.Secure,
		SameSite: sameSite,
	}
}

func setAccessCookie(c *fiber.Ctx, cfg config.CookieConfig, token string) {
	c.Cookie(jwtCookie(cfg, middleware.AccessTokenCookie, token))
}

func setRefreshCookie(c *fiber.Ctx, cfg config.CookieConfig, token string) {
	c.Cookie(jwtCookie(cfg, middleware.RefreshTokenCookie, token))
}

func clearJWTCookies(c *fiber.Ctx, cfg config.CookieConfig) {
	for _, name := range []string{middleware.AccessTokenCookie, middleware.RefreshTokenCookie} {
		cookie := jwtCookie(cfg, name, "")
		cookie.Expires = time.Unix(0, 0)
		c.Cookie(cookie)
	}
}
