package entities

import "time"

// Backend names a driver implementation
type Backend string

const (
	BackendSelenium   Backend = "selenium"
	BackendPlaywright Backend = "playwright"
)

const (
	DefaultTimeout      = 4 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// Config holds browser and wait settings
type Config struct {
	Timeout      time.Duration `json:"timeout" envconfig:"SELENE_TIMEOUT" default:"4s"`
	PollInterval time.Duration `json:"poll_interval" envconfig:"SELENE_POLL_INTERVAL" default:"100ms"`

	Backend       Backend `json:"backend" envconfig:"SELENE_BACKEND" default:"selenium"`
	BrowserName   string  `json:"browser_name" envconfig:"SELENE_BROWSER" default:"chrome"`
	RemoteURL     string  `json:"remote_url,omitempty" envconfig:"SELENE_REMOTE_URL"`
	DriverPath    string  `json:"driver_path,omitempty" envconfig:"BROWSER_DRIVER_PATH"`
	DriverPort    int     `json:"driver_port" envconfig:"SELENE_DRIVER_PORT" default:"9515"`
	BrowserBinary string  `json:"browser_binary,omitempty" envconfig:"CHROME_BINARY_PATH"`
	Headless      bool    `json:"headless" envconfig:"SELENE_HEADLESS" default:"true"`
	BaseURL       string  `json:"base_url,omitempty" envconfig:"SELENE_BASE_URL"`

	ReportsDir              string `json:"reports_dir" envconfig:"SELENE_REPORTS_DIR"`
	SaveScreenshotOnFailure bool   `json:"save_screenshot_on_failure" envconfig:"SELENE_SAVE_SCREENSHOT" default:"true"`
	SavePageSourceOnFailure bool   `json:"save_page_source_on_failure" envconfig:"SELENE_SAVE_PAGE_SOURCE" default:"true"`

	// SetValueByJS makes SetValue assign the value property directly instead of typing
	SetValueByJS bool `json:"set_value_by_js" envconfig:"SELENE_SET_VALUE_BY_JS"`

	LogLevel    string `json:"log_level" envconfig:"SELENE_LOG_LEVEL" default:"info"`
	MetricsAddr string `json:"metrics_addr,omitempty" envconfig:"SELENE_METRICS_ADDR"`
}
