package config

import "os"

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
}

type Config struct {
	PostgresURI         string
	RedisURI            string
	BaseURL             string
	FrontendURL         string
	CronSecret          string
	SecretKey           string
	TiktokClientKey     string
	TiktokClientSecret  string
	TiktokRedirectURI   string
	YoutubeAPIKey       string
	YoutubeClientID     string
	YoutubeClientSecret string
	YoutubeRedirectURI  string
	R2                  R2
}

func LoadConfig() *Config {
	return &Config{
		PostgresURI:         getEnv("POSTGRES_URI", ""),
		RedisURI:            getEnv("REDIS_URI", "localhost:6379"),
		BaseURL:             getEnv("BASE_URL", "http://localhost:3000"),
		FrontendURL:         getEnv("FRONTEND_URL", "http://localhost:5173"),
		CronSecret:          getEnv("CRON_SECRET", ""),
		SecretKey:           getEnv("SECRET_KEY", ""),
		TiktokClientKey:     getEnv("TIKTOK_CLIENT_KEY", ""),
		TiktokClientSecret:  getEnv("TIKTOK_CLIENT_SECRET", ""),
		TiktokRedirectURI:   getEnv("TIKTOK_REDIRECT_URI", ""),
		YoutubeAPIKey:       getEnv("YOUTUBE_API_KEY", ""),
		YoutubeClientID:     getEnv("YOUTUBE_OAUTH_CLIENT_ID", ""),
		YoutubeClientSecret: getEnv("YOUTUBE_OAUTH_CLIENT_SECRET", ""),
		YoutubeRedirectURI:  getEnv("YOUTUBE_OAUTH_REDIRECT_URI", ""),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
