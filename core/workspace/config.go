package workspace

// Config holds configuration for the workspace API.
type Config struct {
	// ApiKey is the integration token.
	ApiKey string `mapstructure:"api_key" default:""`
	// BaseURL is the API root.
	BaseURL string `mapstructure:"base_url" default:"https://api.notion.com/v1"`
	// Version is sent as the Notion-Version header.
	Version string `mapstructure:"version" default:"2022-06-28"`
	// PageSize is the number of records requested per API call (max 100).
	PageSize int `mapstructure:"page_size" default:"100"`
	// RetryMax is the number of HTTP-level retries for 429/5xx responses.
	// The sync command zeroes it when the engine retries fetches itself.
	RetryMax int `mapstructure:"retry_max" default:"3"`
	// TimeoutSeconds is the per-request timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
