package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 int
	ModelPath            string
	ModelURL             string
	ModelDownloadRetries int
	ModelInputSize       int
	DetectorBackend      string // "onnx" albo "gocv"
	OnnxRuntimeLib       string
	ConfThreshold        float64
	IoUThreshold         float64
	DiseaseTable         string // "minimal", "extended" albo ścieżka do pliku JSON
	TempDirectory        string
	MaxUploadSize        int64 // w bajtach
	MaxImagePixels       int64 // szerokość * wysokość po dekodowaniu
	DBDriver             string
	DBDSN                string
	LogDirectory         string
	AdminToken           string
	TelegramToken        string
}

func Load() *Config {
	// .env jest opcjonalny
	_ = godotenv.Load()

	return &Config{
		Port:                 getEnvAsInt("PORT", 8080),
		ModelPath:            getEnv("MODEL_PATH", filepath.Join(".", "models", "best.onnx")),
		ModelURL:             getEnv("MODEL_URL", ""),
		ModelDownloadRetries: getEnvAsInt("MODEL_DOWNLOAD_RETRIES", 3),
		ModelInputSize:       getEnvAsInt("MODEL_INPUT_SIZE", 640),
		DetectorBackend:      getEnv("DETECTOR_BACKEND", "onnx"),
		OnnxRuntimeLib:       getEnv("ONNXRUNTIME_LIB", ""),
		ConfThreshold:        getEnvAsFloat("CONF_THRESHOLD", 0.25),
		IoUThreshold:         getEnvAsFloat("IOU_THRESHOLD", 0.45),
		DiseaseTable:         getEnv("DISEASE_TABLE", "extended"),
		TempDirectory:        getEnv("TEMP_DIR", filepath.Join(os.TempDir(), "leafdoctor")),
		MaxUploadSize:        getEnvAsInt64("MAX_UPLOAD_MB", 10) << 20,
		MaxImagePixels:       getEnvAsInt64("MAX_IMAGE_PIXELS", 1<<26),
		DBDriver:             getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:                getEnv("DB_DSN", filepath.Join(".", "data", "predictions.db")),
		LogDirectory:         getEnv("LOG_DIR", filepath.Join(".", "logs")),
		AdminToken:           getEnv("ADMIN_TOKEN", ""),
		TelegramToken:        getEnv("TELEGRAM_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
