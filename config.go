package accounts

// SimpleConfig is a plain struct implementation of Config for callers that
// do not bring their own configuration layer.
type SimpleConfig struct {
	SigningKey            string   `json:"signing_key"`
	SigningMethod         string   `json:"signing_method"`
	ContextKey            string   `json:"context_key"`
	TokenExpiration       int      `json:"token_expiration"`
	ExtendedTokenDuration int      `json:"extended_token_duration"`
	TokenLookup           string   `json:"token_lookup"`
	AuthScheme            string   `json:"auth_scheme"`
	Issuer                string   `json:"issuer"`
	Audience              []string `json:"audience"`
	RejectedRouteKey      string   `json:"rejected_route_key"`
	RejectedRouteDefault  string   `json:"rejected_route_default"`
}

type ConfigOption func(*SimpleConfig)

// NewConfig builds a SimpleConfig with working defaults. The signing key has
// no default, pass WithSigningKey or set the field before use.
func NewConfig(opts ...ConfigOption) *SimpleConfig {
	c := &SimpleConfig{
		SigningMethod:         "HS256",
		ContextKey:            "user",
		TokenExpiration:       24,
		ExtendedTokenDuration: 168,
		TokenLookup:           "cookie:user",
		AuthScheme:            "Bearer",
		Issuer:                "accounts",
		Audience:              []string{"accounts"},
		RejectedRouteKey:      "rejected_route",
		RejectedRouteDefault:  "/",
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func WithSigningKey(key string) ConfigOption {
	return func(c *SimpleConfig) {
		c.SigningKey = key
	}
}

func WithIssuer(issuer string) ConfigOption {
	return func(c *SimpleConfig) {
		c.Issuer = issuer
	}
}

func WithAudience(audience ...string) ConfigOption {
	return func(c *SimpleConfig) {
		c.Audience = audience
	}
}

func WithContextKey(key string) ConfigOption {
	return func(c *SimpleConfig) {
		c.ContextKey = key
		c.TokenLookup = "cookie:" + key
	}
}

func WithTokenExpiration(hours int) ConfigOption {
	return func(c *SimpleConfig) {
		c.TokenExpiration = hours
	}
}

func WithExtendedTokenDuration(hours int) ConfigOption {
	return func(c *SimpleConfig) {
		c.ExtendedTokenDuration = hours
	}
}

func WithTokenLookup(lookup string) ConfigOption {
	return func(c *SimpleConfig) {
		c.TokenLookup = lookup
	}
}

func (c *SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c *SimpleConfig) GetSigningMethod() string { return c.SigningMethod }

func (c *SimpleConfig) GetContextKey() string { return c.ContextKey }

func (c *SimpleConfig) GetTokenExpiration() int { return c.TokenExpiration }

func (c *SimpleConfig) GetExtendedTokenDuration() int { return c.ExtendedTokenDuration }

func (c *SimpleConfig) GetTokenLookup() string { return c.TokenLookup }

func (c *SimpleConfig) GetAuthScheme() string { return c.AuthScheme }

func (c *SimpleConfig) GetIssuer() string { return c.Issuer }

func (c *SimpleConfig) GetAudience() []string { return c.Audience }

func (c *SimpleConfig) GetRejectedRouteKey() string { return c.RejectedRouteKey }

func (c *SimpleConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }

var _ Config = (*SimpleConfig)(nil)
