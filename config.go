package orderagent

type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type CounterConfig struct {
	MenuPath           string `env:"MENU_PATH"`
	OrdersDir          string `env:"ORDERS_DIR,default=artifacts/orders"`
	BaseOllamaEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	MaxIterations      int    `env:"MAX_ITERATIONS,default=6"`
	HistoryTurns       int    `env:"HISTORY_TURNS,default=12"`
	MaxExtraShots      int    `env:"MAX_EXTRA_SHOTS"`
	MaxSyrupPumps      int    `env:"MAX_SYRUP_PUMPS"`
	KitchenWebhookURL  string `env:"KITCHEN_WEBHOOK_URL"`
	KitchenChannel     string `env:"KITCHEN_CHANNEL,default=#kitchen"`
}

type S3Config struct {
	Bucket       string `env:"ARTIFACTS_S3_BUCKET,required"`
	MenuKey      string `env:"MENU_S3_KEY,default=menu.yaml"`
	OrdersPrefix string `env:"ORDERS_S3_PREFIX,default=orders"`
}
