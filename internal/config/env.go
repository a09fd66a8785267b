package config

import (
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// LoadEnv seeds the process environment from .env files without overriding
// variables already set by the operator. Search order: ./.env, ~/.pilot/.env.
// Missing files are not an error; credentials may already be in the environment.
func LoadEnv() {
	candidates := []string{".env"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".pilot", ".env"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
		}
	}
}
