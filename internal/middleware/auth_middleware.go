package middleware

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/kishoreUdatha/HRM-sub003/internal/shared/contextutil"
	"github.com/kishoreUdatha/HRM-sub003/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// AuthClaims adalah claims yang dibawa setiap HRM access token.
// Layer distribusi tidak pernah menerbitkan token, hanya memvalidasi.
type AuthClaims struct {
	UserID     string
	TenantID   string
	EmployeeID string
	Role       string
}

func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := BearerToken(c)
		if tokenString == "" {
			response.Error(c, http.StatusUnauthorized, "UNAUTHORIZED", "Token not found", nil)
			c.Abort()
			return
		}

		claims, err := ParseAuthClaims(tokenString)
		if err != nil {
			code := "INVALID_TOKEN"
			if strings.Contains(err.Error(), "expired") {
				code = "TOKEN_EXPIRED"
			}
			response.Error(c, http.StatusUnauthorized, code, "Invalid or expired token", nil)
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("employee_id", claims.EmployeeID)
		c.Set("company_id", claims.TenantID)
		c.Set("role", claims.Role)

		// Identitas ikut masuk ke standard context dan logger request
		ctx := contextutil.WithUserID(c.Request.Context(), claims.UserID)
		reqLogger := contextutil.GetLogger(ctx, zap.L()).With(zap.String("user_id", claims.UserID))
		c.Request = c.Request.WithContext(contextutil.WithLogger(ctx, reqLogger))

		c.Next()
	}
}

// BearerToken mengambil credential dari Authorization header, cookie
// access_token, atau query param token (websocket handshake dari browser
// tidak bisa set custom header).
func BearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if tokenString, found := strings.CutPrefix(authHeader, "Bearer "); found && tokenString != "" {
		return tokenString
	}
	if cookie, err := c.Cookie("access_token"); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

func ParseAuthClaims(tokenString string) (AuthClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return []byte(os.Getenv("JWT_SECRET")), nil
	})
	if err != nil {
		return AuthClaims{}, err
	}
	if !token.Valid {
		return AuthClaims{}, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return AuthClaims{}, fmt.Errorf("invalid token claims")
	}

	userID, _ := claims["user_id"].(string)
	tenantID, _ := claims["company_id"].(string)
	if userID == "" || tenantID == "" {
		return AuthClaims{}, fmt.Errorf("user_id and company_id claims are required")
	}

	employeeID, _ := claims["employee_id"].(string)
	role, _ := claims["role"].(string)

	return AuthClaims{
		UserID:     userID,
		TenantID:   tenantID,
		EmployeeID: employeeID,
		Role:       role,
	}, nil
}

func RoleMiddleware(allowedRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userRole, exists := c.Get("role")
		if !exists {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource", nil)
			c.Abort()
			return
		}

		isAllowed := false
		for _, role := range allowedRoles {
			if userRole == role {
				isAllowed = true
				break
			}
		}

		if !isAllowed {
			response.Error(c, http.StatusForbidden, "FORBIDDEN", "You do not have permission to access this resource", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
