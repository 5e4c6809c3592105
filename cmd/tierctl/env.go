package main

import (
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// env holds flag defaults read from TIERCTL_* variables.
type env struct {
	Config    string `envconfig:"CONFIG" default:"tiercache.yaml"`
	Namespace string `envconfig:"NAMESPACE" default:""`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"warn"`
}

func loadEnv() (env, error) {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()

	var e env
	if err := envconfig.Process("tierctl", &e); err != nil {
		return env{}, err
	}
	return e, nil
}
