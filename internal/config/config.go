package config

import (
	"crypto/rsa"
	"encoding/base64"
	"os"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/poofware/apikey-service/internal/utils"
)

const AppName = "apikey-service"

// Bounds for the outbound identity-provider HTTP timeout. A hung
// provider must not hang the request indefinitely.
const (
	DefaultProviderTimeout = 10 * time.Second
	MaxProviderTimeout     = 60 * time.Second
)

// ProviderConfig holds the identity-provider connection settings, fixed
// at process start. The provider client is constructed once from this
// and injected into the service layer.
type ProviderConfig struct {
	BaseURL      string
	Realm        string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Config holds all application configuration.
type Config struct {
	AppName      string
	AppPort      string
	AppUrl       string
	DBUrl        string
	RSAPublicKey *rsa.PublicKey
	Provider     ProviderConfig
}

// LoadConfig reads everything from the environment once at startup and
// fails fast on anything missing or malformed.
func LoadConfig() *Config {
	utils.Logger.Info("Loading config for app: ", AppName)

	//----------------------------------------------------------------------
	// Runtime environment vars
	//----------------------------------------------------------------------
	appPort := os.Getenv("APP_PORT")
	if appPort == "" {
		utils.Logger.Fatal("APP_PORT env var is missing")
	}
	appUrl := os.Getenv("APP_URL_FROM_ANYWHERE")
	if appUrl == "" {
		utils.Logger.Fatal("APP_URL_FROM_ANYWHERE env var is missing")
	}
	dbUrl := os.Getenv("DB_URL")
	if dbUrl == "" {
		utils.Logger.Fatal("DB_URL env var is missing")
	}

	//----------------------------------------------------------------------
	// RSA public key for verifying caller access tokens
	//----------------------------------------------------------------------
	publicKeyBase64 := os.Getenv("RSA_PUBLIC_KEY_BASE64")
	if publicKeyBase64 == "" {
		utils.Logger.Fatal("RSA_PUBLIC_KEY_BASE64 env var is missing")
	}
	publicKeyPEM, err := base64.StdEncoding.DecodeString(publicKeyBase64)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to decode base64 public key")
	}
	publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if err != nil {
		utils.Logger.WithError(err).Fatal("Failed to parse RSA public key")
	}

	//----------------------------------------------------------------------
	// Identity provider settings
	//----------------------------------------------------------------------
	providerURL := os.Getenv("PROVIDER_URL")
	if providerURL == "" {
		utils.Logger.Fatal("PROVIDER_URL env var is missing")
	}
	providerRealm := os.Getenv("PROVIDER_REALM")
	if providerRealm == "" {
		utils.Logger.Fatal("PROVIDER_REALM env var is missing")
	}
	providerClientID := os.Getenv("PROVIDER_CLIENT_ID")
	if providerClientID == "" {
		utils.Logger.Fatal("PROVIDER_CLIENT_ID env var is missing")
	}
	providerClientSecret := os.Getenv("PROVIDER_CLIENT_SECRET")
	if providerClientSecret == "" {
		utils.Logger.Fatal("PROVIDER_CLIENT_SECRET env var is missing")
	}

	providerTimeout := DefaultProviderTimeout
	if raw := os.Getenv("PROVIDER_TIMEOUT_SECONDS"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			utils.Logger.Fatalf("PROVIDER_TIMEOUT_SECONDS is not a positive integer: %q", raw)
		}
		providerTimeout = time.Duration(secs) * time.Second
		if providerTimeout > MaxProviderTimeout {
			utils.Logger.Warnf("PROVIDER_TIMEOUT_SECONDS capped at %v", MaxProviderTimeout)
			providerTimeout = MaxProviderTimeout
		}
	}

	return &Config{
		AppName:      AppName,
		AppPort:      appPort,
		AppUrl:       appUrl,
		DBUrl:        dbUrl,
		RSAPublicKey: publicKey,
		Provider: ProviderConfig{
			BaseURL:      providerURL,
			Realm:        providerRealm,
			ClientID:     providerClientID,
			ClientSecret: providerClientSecret,
			Timeout:      providerTimeout,
		},
	}
}
