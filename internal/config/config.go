package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	AppConfig     *AppConfig
	AIConfig      *AIConfig
	AgentConfig   *AgentConfig
	BrowserConfig *BrowserConfig
	SandboxConfig *SandboxConfig
	DesktopConfig *DesktopConfig
	AndroidConfig *AndroidConfig
}

type AppConfig struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	LogFile     string `envconfig:"LOG_FILE"`
	TraceFile   string `envconfig:"TRACE_FILE"`
	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9464"`
}

type AIConfig struct {
	APIKey      string  `envconfig:"AI_API_KEY" required:"true"`
	BaseURL     string  `envconfig:"AI_BASE_URL"`
	Model       string  `envconfig:"AI_MODEL" default:"ui-tars-1.5"`
	Temperature float32 `envconfig:"AI_TEMPERATURE" default:"0"`
	MaxTokens   int     `envconfig:"AI_MAX_TOKENS" default:"4096"`
}

type AgentConfig struct {
	Mode              string        `envconfig:"AGENT_MODE" default:"gui"`
	BrowserMode       string        `envconfig:"AGENT_BROWSER_MODE" default:"hybrid"`
	Link              string        `envconfig:"AGENT_LINK"`
	LoopInterval      time.Duration `envconfig:"AGENT_LOOP_INTERVAL" default:"500ms"`
	MaxIterations     int           `envconfig:"AGENT_MAX_ITERATIONS" default:"100"`
	CoordinateDivisor float64       `envconfig:"AGENT_COORDINATE_DIVISOR" default:"1000"`
	SystemPrompt      string        `envconfig:"AGENT_SYSTEM_PROMPT"`
	InitTimeout       time.Duration `envconfig:"AGENT_INIT_TIMEOUT" default:"60s"`
}

type BrowserConfig struct {
	Headless           bool   `envconfig:"BROWSER_HEADLESS" default:"false"`
	SlowMo             int    `envconfig:"BROWSER_SLOW_MO" default:"0"`
	Timeout            int    `envconfig:"BROWSER_TIMEOUT" default:"30000"`
	UserDataDir        string `envconfig:"BROWSER_USER_DATA_DIR"`
	WSEndpoint         string `envconfig:"BROWSER_WS_ENDPOINT"`
	SearchEngine       string `envconfig:"BROWSER_SEARCH_ENGINE" default:"google"`
	ViewportWidth      int    `envconfig:"BROWSER_VIEWPORT_WIDTH" default:"1280"`
	ViewportHeight     int    `envconfig:"BROWSER_VIEWPORT_HEIGHT" default:"1024"`
	ShowActionInfo     bool   `envconfig:"BROWSER_SHOW_ACTION_INFO" default:"false"`
	ShowWaterFlow      bool   `envconfig:"BROWSER_SHOW_WATER_FLOW" default:"false"`
	HighlightClickable bool   `envconfig:"BROWSER_HIGHLIGHT_CLICKABLE" default:"false"`
}

type SandboxConfig struct {
	URL       string        `envconfig:"SANDBOX_URL" default:"http://localhost:8080"`
	Timeout   time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"10s"`
	RateLimit float64       `envconfig:"SANDBOX_RATE_LIMIT" default:"20"`
	Burst     int           `envconfig:"SANDBOX_BURST" default:"5"`
}

type DesktopConfig struct {
	Display   string `envconfig:"DESKTOP_DISPLAY" default:":0"`
	Xdotool   string `envconfig:"DESKTOP_XDOTOOL" default:"xdotool"`
	ImportBin string `envconfig:"DESKTOP_IMPORT" default:"import"`
}

type AndroidConfig struct {
	ADB    string `envconfig:"ANDROID_ADB" default:"adb"`
	Serial string `envconfig:"ANDROID_SERIAL"`
}

func GetConfig() (*Config, error) {
	_ = godotenv.Load()

	var conf Config

	if err := envconfig.Process("", &conf); err != nil {
		return nil, fmt.Errorf("read config from env vars: %w", err)
	}

	return &conf, nil
}
