package run

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/igolaizola/senryu/internal/generate"
	"github.com/igolaizola/senryu/internal/llm"
	"github.com/igolaizola/senryu/internal/reading"
	"github.com/igolaizola/senryu/internal/recovery"
	"github.com/igolaizola/senryu/internal/scoring"
)

var validate = validator.New()

type Config struct {
	Originals  string           `yaml:"originals" validate:"required"`
	Verbose    bool             `yaml:"verbose"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Scoring    ScoringConfig    `yaml:"scoring"`
	Reading    ReadingConfig    `yaml:"reading"`
	Output     OutputConfig     `yaml:"output"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider" validate:"oneof=ollama openai copilot"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url" validate:"omitempty,url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
}

type GenerationConfig struct {
	N                int `yaml:"n" validate:"gte=1"`
	BatchSize        int `yaml:"batch_size" validate:"gte=1"`
	MaxRetries       int `yaml:"max_retries" validate:"gte=1"`
	MaxParseAttempts int `yaml:"max_parse_attempts" validate:"gte=1"`
}

type ScoringConfig struct {
	Keep  int  `yaml:"keep" validate:"gte=1"`
	Judge bool `yaml:"judge"`
}

type ReadingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dict    string `yaml:"dict" validate:"oneof=ipa uni"`
}

type OutputConfig struct {
	Dir  string `yaml:"dir" validate:"required"`
	Show bool   `yaml:"show"`
}

func DefaultConfig() Config {
	return Config{
		Originals: "originals.txt",
		LLM: LLMConfig{
			Provider:    llm.ProviderOllama,
			Temperature: 0.9,
		},
		Generation: GenerationConfig{
			N:                300,
			BatchSize:        generate.BatchSize,
			MaxRetries:       generate.MaxRetries,
			MaxParseAttempts: recovery.MaxAttempts,
		},
		Scoring: ScoringConfig{
			Keep:  scoring.DefaultKeep,
			Judge: true,
		},
		Reading: ReadingConfig{
			Enabled: true,
			Dict:    reading.DictIPA,
		},
		Output: OutputConfig{Dir: "out"},
	}
}

// LoadFile overlays the YAML file at path onto c. Unknown keys are errors.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays the supported environment variables onto c.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	return c.ApplyEnvFor(getenv, "")
}

// ApplyEnvFor is ApplyEnv with the provider already chosen by a layer of
// higher precedence, such as a command line flag. A non-empty provider wins
// over LLM_PROVIDER and selects which backend specific variables apply.
func (c *Config) ApplyEnvFor(getenv func(string) string, provider string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("LLM_PROVIDER", &c.LLM.Provider)
	if provider != "" {
		c.LLM.Provider = provider
	}
	switch c.LLM.Provider {
	case llm.ProviderOllama:
		str("OLLAMA_MODEL", &c.LLM.Model)
		if v := strings.TrimSpace(getenv("OLLAMA_HOST")); v != "" {
			if !strings.Contains(v, "://") {
				v = "http://" + v
			}
			c.LLM.BaseURL = v
		}
	case llm.ProviderOpenAI:
		str("OPENAI_BASE_URL", &c.LLM.BaseURL)
		str("OPENAI_MODEL", &c.LLM.Model)
	}
	str("OPENAI_API_KEY", &c.LLM.APIKey)

	var errs []error
	integer := func(key string, dst *int) {
		v := strings.TrimSpace(getenv(key))
		if v == "" {
			return
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
	integer("N_GENERATE", &c.Generation.N)
	integer("N_KEEP", &c.Scoring.Keep)

	if v := strings.TrimSpace(getenv("TEMPERATURE")); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("TEMPERATURE: %w", err))
		} else {
			c.LLM.Temperature = t
		}
	}
	if v, ok := lookup(getenv, "ENABLE_LLM_JUDGE"); ok {
		c.Scoring.Judge = !(v == "0" || strings.EqualFold(v, "false"))
	}
	return errors.Join(errs...)
}

func lookup(getenv func(string) string, key string) (string, bool) {
	v := strings.TrimSpace(getenv(key))
	return v, v != ""
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
