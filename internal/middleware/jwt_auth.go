package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// ==================== JWT 配置 ====================

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey      string        // 签名密钥
	AccessTokenTTL time.Duration // Access Token 有效期
	Issuer         string        // 签发者
}

// DefaultJWTConfig 默认配置
func DefaultJWTConfig() *JWTConfig {
	return &JWTConfig{
		SecretKey:      "listhub-secret-key-change-in-production",
		AccessTokenTTL: 2 * time.Hour,
		Issuer:         "listhub",
	}
}

// ==================== Claims 定义 ====================

// SellerClaims 卖家声明：身份 + 订阅套餐
// 套餐随 token 下发，表单配额检查不需要再查订阅服务
type SellerClaims struct {
	SellerID int64  `json:"seller_id"`
	Plan     string `json:"plan"`
	jwt.RegisteredClaims
}

// ==================== 认证器 ====================

// Authenticator JWT 认证器，配置显式注入而非全局查找
type Authenticator struct {
	cfg *JWTConfig
}

// NewAuthenticator 创建认证器
func NewAuthenticator(cfg *JWTConfig) *Authenticator {
	if cfg == nil {
		cfg = DefaultJWTConfig()
	}
	return &Authenticator{cfg: cfg}
}

// GenerateToken 签发 Access Token
func (a *Authenticator) GenerateToken(sellerID int64, plan string) (string, error) {
	now := time.Now()
	claims := &SellerClaims{
		SellerID: sellerID,
		Plan:     plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			Subject:   "access",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.AccessTokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.SecretKey))
}

// ParseToken 解析并校验 Token
func (a *Authenticator) ParseToken(tokenString string) (*SellerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SellerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(a.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SellerClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeySellerID = "seller_id"
	ContextKeyPlan     = "plan"
)

// Auth JWT 认证中间件
func (a *Authenticator) Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "未提供认证信息",
			})
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "认证格式错误，应为 Bearer {token}",
			})
			c.Abort()
			return
		}

		claims, err := a.ParseToken(parts[1])
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Token 无效或已过期",
			})
			c.Abort()
			return
		}

		if claims.Subject != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"code":    401,
				"message": "Token 类型错误",
			})
			c.Abort()
			return
		}

		c.Set(ContextKeySellerID, claims.SellerID)
		c.Set(ContextKeyPlan, claims.Plan)

		c.Next()
	}
}

// ==================== 辅助函数 ====================

// GetSellerID 从 Context 获取卖家 ID
func GetSellerID(c *gin.Context) int64 {
	if id, exists := c.Get(ContextKeySellerID); exists {
		return id.(int64)
	}
	return 0
}

// GetPlan 从 Context 获取订阅套餐
func GetPlan(c *gin.Context) string {
	if plan, exists := c.Get(ContextKeyPlan); exists {
		return plan.(string)
	}
	return ""
}
