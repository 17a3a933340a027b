package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment is the operator configuration. It never comes from the
// browser-side settings; the cloud credential lives only here.
type Environment struct {
	LogLevel string
	DBPath   string

	Gemini GeminiEnv
	Relay  RelayEnv
	Kernel KernelEnv
	Stream StreamEnv

	// LocalTimeout bounds non-streamed calls from the local client to the relay.
	LocalTimeout time.Duration
}

// GeminiEnv configures the cloud client.
type GeminiEnv struct {
	APIKey     string
	TextModel  string
	ImageModel string
	EditModel  string
}

// RelayEnv configures the relay process.
type RelayEnv struct {
	Addr           string
	AllowedOrigins []string
	ConnectTimeout time.Duration // dial to the private server
	HeaderTimeout  time.Duration // wait for the private server's response headers
	IdleTimeout    time.Duration // max silence between streamed chunks
	RateLimit      float64       // requests per second, 0 disables
	RateBurst      int
}

// KernelEnv configures the browser-facing API.
type KernelEnv struct {
	Addr           string
	AllowedOrigins []string
}

// StreamEnv names the JSON fields carrying incremental text.
type StreamEnv struct {
	ChatField     string
	GenerateField string
}

// LoadEnvironment reads an optional .env file (or the given files) and then
// the process environment. Variables use the EXPERT_ prefix, except the
// credential which is GEMINI_API_KEY with API_KEY as a fallback.
func LoadEnvironment(envFiles ...string) (*Environment, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("EXPERT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.BindEnv("gemini.api_key", "GEMINI_API_KEY", "API_KEY"); err != nil {
		return nil, fmt.Errorf("bind credential env: %w", err)
	}

	env := &Environment{
		LogLevel: v.GetString("log_level"),
		DBPath:   v.GetString("db_path"),
		Gemini: GeminiEnv{
			APIKey:     strings.TrimSpace(v.GetString("gemini.api_key")),
			TextModel:  v.GetString("gemini.text_model"),
			ImageModel: v.GetString("gemini.image_model"),
			EditModel:  v.GetString("gemini.edit_model"),
		},
		Relay: RelayEnv{
			Addr:           v.GetString("relay.addr"),
			AllowedOrigins: splitList(v.GetString("relay.allowed_origins")),
			ConnectTimeout: v.GetDuration("relay.connect_timeout"),
			HeaderTimeout:  v.GetDuration("relay.header_timeout"),
			IdleTimeout:    v.GetDuration("relay.idle_timeout"),
			RateLimit:      v.GetFloat64("relay.rate_limit"),
			RateBurst:      v.GetInt("relay.rate_burst"),
		},
		Kernel: KernelEnv{
			Addr:           v.GetString("kernel.addr"),
			AllowedOrigins: splitList(v.GetString("kernel.allowed_origins")),
		},
		Stream: StreamEnv{
			ChatField:     v.GetString("stream.chat_field"),
			GenerateField: v.GetString("stream.generate_field"),
		},
		LocalTimeout: v.GetDuration("local.timeout"),
	}

	if env.Relay.RateLimit < 0 {
		return nil, fmt.Errorf("relay rate limit must not be negative, got %v", env.Relay.RateLimit)
	}
	return env, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "expert.db")

	v.SetDefault("gemini.text_model", "gemini-2.5-flash")
	v.SetDefault("gemini.image_model", "imagen-4.0-generate-001")
	v.SetDefault("gemini.edit_model", "gemini-2.5-flash-image")

	v.SetDefault("relay.addr", ":3001")
	v.SetDefault("relay.allowed_origins", "*")
	v.SetDefault("relay.connect_timeout", 10*time.Second)
	v.SetDefault("relay.header_timeout", 5*time.Minute)
	v.SetDefault("relay.idle_timeout", 2*time.Minute)
	v.SetDefault("relay.rate_limit", 0)
	v.SetDefault("relay.rate_burst", 20)

	v.SetDefault("kernel.addr", ":8080")
	v.SetDefault("kernel.allowed_origins", "http://localhost:5173")

	v.SetDefault("stream.chat_field", "message.content")
	v.SetDefault("stream.generate_field", "response")

	v.SetDefault("local.timeout", 5*time.Minute)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
