package service

type Config struct {
	DatabaseUri             string  `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int     `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int     `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int     `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	SentryDSN               string  `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate  float64 `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string  `envconfig:"LOG_FILE_PATH"`
	JWTSecret               []byte  `envconfig:"JWT_SECRET" required:"true"`
	JWTAccessTokenExpiry    int     `envconfig:"JWT_ACCESS_EXPIRY" default:"172800"` // in seconds, default 2 days
	AdminToken              string  `envconfig:"ADMIN_TOKEN"`
	Host                    string  `envconfig:"HOST" default:"localhost:3000"`
	Port                    int     `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int     `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	StrictRateLimit         int     `envconfig:"STRICT_RATE_LIMIT" default:"10"`
	BurstRateLimit          int     `envconfig:"BURST_RATE_LIMIT" default:"1"`
	AllowAccountCreation    bool    `envconfig:"ALLOW_ACCOUNT_CREATION" default:"true"`

	// On-chain payment settings. The xpub is the only key material the
	// server ever sees; it cannot spend from the derived addresses.
	PayEnabled          bool   `envconfig:"USDT_PAY_ENABLED" default:"true"`
	Xpub                string `envconfig:"USDT_TRC20_XPUB" required:"true"`
	TronGridBaseUrl     string `envconfig:"TRONGRID_BASE_URL" default:"https://api.trongrid.io"`
	TronGridApiKey      string `envconfig:"TRONGRID_API_KEY"`
	UsdtContractAddress string `envconfig:"USDT_TRC20_CONTRACT" default:"TXLAQ63Xg1NAzckPwKHvzw7CSEmLMEqcdj"`
	ConfirmationDepth   int64  `envconfig:"USDT_PAY_CONFIRMATION_DEPTH" default:"1"`
	// ToleranceBps permits slight underpayment (sender-side fee rounding),
	// in basis points. 100 = a transfer down to 99% of the expected amount
	// still settles the order. Overpayment is always accepted.
	ToleranceBps             int64 `envconfig:"USDT_PAY_TOLERANCE_BPS" default:"100"`
	OrderExpiryMinutes       int   `envconfig:"USDT_PAY_EXPIRE_MINUTES" default:"30"`
	ReconcilerInterval       int   `envconfig:"RECONCILER_INTERVAL" default:"60"` // in seconds
	ReconcilerMaxConcurrency int   `envconfig:"RECONCILER_MAX_CONCURRENCY" default:"5"`
	SweeperInterval          int   `envconfig:"SWEEPER_INTERVAL" default:"60"` // in seconds
	OracleTimeout            int   `envconfig:"ORACLE_TIMEOUT" default:"30"`  // in seconds
	// RefreshTimeout bounds the user-triggered refresh. When the oracle is
	// slower than this the request falls back to the last persisted state.
	RefreshTimeout int `envconfig:"REFRESH_TIMEOUT" default:"5"` // in seconds

	// Membership plan catalog. Prices are in USDT, fixed when an order is
	// created and never re-evaluated afterwards.
	PlanMonthlyPrice    string `envconfig:"PLAN_MONTHLY_PRICE" default:"19.90"`
	PlanMonthlyCredits  int64  `envconfig:"PLAN_MONTHLY_CREDITS" default:"1000"`
	PlanYearlyPrice     string `envconfig:"PLAN_YEARLY_PRICE" default:"199.00"`
	PlanYearlyCredits   int64  `envconfig:"PLAN_YEARLY_CREDITS" default:"15000"`
	PlanLifetimePrice   string `envconfig:"PLAN_LIFETIME_PRICE" default:"499.00"`
	PlanLifetimeCredits int64  `envconfig:"PLAN_LIFETIME_CREDITS" default:"60000"`
}
