package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	OCR      OCRConfig
	Azure    AzureConfig
	Pipeline PipelineConfig
	Files    FilesConfig
	LogLevel string
}

// OCRConfig holds text recovery configuration
type OCRConfig struct {
	Engine               string // tesseract | tesseract-cli | azure
	TesseractBin         string
	TesseractLang        string
	TessdataDir          string
	PSM                  int
	DPI                  int
	MaxPages             int
	MinTextLayerChars    int
	OrientationThreshold float64
	Enhance              bool
}

// AzureConfig holds Azure Computer Vision credentials
type AzureConfig struct {
	Endpoint          string
	APIKey            string
	Language          string
	AssumedConfidence float64
}

// PipelineConfig holds batch and review configuration
type PipelineConfig struct {
	Workers         int
	DocumentTimeout time.Duration
	ReviewThreshold float64
}

// FilesConfig points at optional mapping and rule files
type FilesConfig struct {
	MappingFile string
	RulesFile   string
}

// LoadConfig loads configuration from environment variables. A .env file in the
// working directory is read first when present; real environment values win.
func LoadConfig() *Config {
	_ = godotenv.Load()

	return &Config{
		OCR: OCRConfig{
			Engine:               strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
			TesseractBin:         getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:        getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:          getEnv("TESSDATA_PREFIX", ""),
			PSM:                  getEnvAsInt("TESSERACT_PSM", 0),
			DPI:                  getEnvAsInt("OCR_DPI", 300),
			MaxPages:             getEnvAsInt("OCR_MAX_PAGES", 0),
			MinTextLayerChars:    getEnvAsInt("PDF_MIN_TEXT_CHARS", 20),
			OrientationThreshold: getEnvAsFloat64("ORIENTATION_THRESHOLD", 0.45),
			Enhance:              getEnvAsBool("OCR_ENHANCE", false),
		},
		Azure: AzureConfig{
			Endpoint:          getEnv("AZURE_VISION_ENDPOINT", ""),
			APIKey:            getEnv("AZURE_VISION_KEY", ""),
			Language:          getEnv("AZURE_VISION_LANGUAGE", "en"),
			AssumedConfidence: getEnvAsFloat64("AZURE_ASSUMED_CONFIDENCE", 0.85),
		},
		Pipeline: PipelineConfig{
			Workers:         getEnvAsInt("BATCH_WORKERS", 4),
			DocumentTimeout: getEnvAsDuration("DOCUMENT_TIMEOUT", 2*time.Minute),
			ReviewThreshold: getEnvAsFloat64("REVIEW_THRESHOLD", 0.60),
		},
		Files: FilesConfig{
			MappingFile: getEnv("MAPPING_FILE", ""),
			RulesFile:   getEnv("RULES_FILE", ""),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OCR_ENGINE", c.OCR.Engine, OneOf("tesseract", "tesseract-cli", "azure")).
		Field("ORIENTATION_THRESHOLD", c.OCR.OrientationThreshold, UnitInterval).
		Field("REVIEW_THRESHOLD", c.Pipeline.ReviewThreshold, UnitInterval).
		Field("AZURE_ASSUMED_CONFIDENCE", c.Azure.AssumedConfidence, UnitInterval).
		Field("BATCH_WORKERS", c.Pipeline.Workers, Positive).
		Field("OCR_DPI", c.OCR.DPI, Positive)
	if c.OCR.Engine == "azure" {
		v.Field("AZURE_VISION_ENDPOINT", c.Azure.Endpoint, Required).
			Field("AZURE_VISION_KEY", c.Azure.APIKey, Required)
	}
	if v.HasErrors() {
		return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
