package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spigell/resume-optimizer/internal/ai"
	"github.com/spigell/resume-optimizer/internal/api"
	"github.com/spigell/resume-optimizer/internal/credentials"
)

const (
	app = "resume-optimizer"
)

type Config struct {
	TokenFile string          `mapstructure:"token-file"`
	UserAgent string          `mapstructure:"user-agent"`
	Timeout   time.Duration   `mapstructure:"timeout" validate:"gte=0"`
	Auth      *EndpointConfig `mapstructure:"auth"`
	Resume    *EndpointConfig `mapstructure:"resume"`
	Optimize  *OptimizeConfig `mapstructure:"optimize"`
	AI        *AIConfig       `mapstructure:"ai"`
}

type EndpointConfig struct {
	APIURL string `mapstructure:"api-url" validate:"omitempty,url"`
}

type OptimizeConfig struct {
	Model       string `mapstructure:"model"`
	KeepOnePage bool   `mapstructure:"keep-one-page"`
}

type AIConfig struct {
	Backend string        `mapstructure:"backend" validate:"omitempty,oneof=remote gemini"`
	Gemini  *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKeyFile   string `mapstructure:"api-key-file"`
	Model        string `mapstructure:"model"`
	MaxRetries   int    `mapstructure:"max-retries" validate:"gte=0"`
	MaxLogLength int    `mapstructure:"max-log-length" validate:"gte=0"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "resume-optimizer tailors your resume to a job description with the AI model of your choice",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	for key, env := range map[string]string{
		"token-file":             "RESUME_OPTIMIZER_TOKEN_FILE",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"ai.backend":             "RESUME_OPTIMIZER_BACKEND",
	} {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	viper.SetDefault("timeout", 30*time.Second)
	viper.SetDefault("auth.api-url", api.DefaultAuthURL)
	viper.SetDefault("resume.api-url", api.DefaultResumeURL)
	viper.SetDefault("optimize.model", string(credentials.DefaultModel))
	viper.SetDefault("ai.backend", string(ai.Remote))

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is resume-optimizer.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")
	rootCmd.PersistentFlags().String("token-file", "", "file with the bearer token of the auth service")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	viper.BindPFlag("token-file", rootCmd.PersistentFlags().Lookup("token-file"))
}

func initConfig() {
	// .env is optional and only fills variables that are not set yet.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			// We can't proceed if the config file parsed with error.
			log.Fatal(err)
		}
	}
}

var validate = validator.New()

func getConfig() (*Config, error) {
	var config *Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.Auth == nil {
		config.Auth = &EndpointConfig{}
	}
	if config.Resume == nil {
		config.Resume = &EndpointConfig{}
	}
	if config.Optimize == nil {
		config.Optimize = &OptimizeConfig{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}

	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return config, nil
}
