package middleware

import (
	"crypto/subtle"
	"os"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// AdminBasicAuth は /admin 配下のエンドポイント用の Basic 認証ミドルウェア
// 環境変数 ADMIN_USER と ADMIN_PASSWORD が設定されている場合のみ認証を要求
// 設定されていない場合は認証をスキップ（ローカル開発用）
func AdminBasicAuth() echo.MiddlewareFunc {
	expectedUser := os.Getenv("ADMIN_USER")
	expectedPass := os.Getenv("ADMIN_PASSWORD")

	if expectedUser == "" || expectedPass == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return next(c)
			}
		}
	}

	return middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
		userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(expectedUser)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(expectedPass)) == 1

		return userMatch && passMatch, nil
	})
}
