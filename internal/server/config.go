package server

import (
	"time"

	"github.com/hlothaire/miniLastPass/internal/crypto"
	"github.com/hlothaire/miniLastPass/internal/keystore"
)

type Config struct {
	Addr string

	// Mongo settings. An empty URI selects the in-memory stores (dev and
	// tests).
	MongoURI           string
	MongoDB            string
	AccountsCollection string
	ItemsCollection    string

	// TokenSecret is the server-held signing secret; subkeys are derived
	// from it, it is never used raw.
	TokenSecret string
	TokenTTL    time.Duration

	// KeyTTL bounds the lifetime of cached vault keys independently of
	// TokenTTL.
	KeyTTL time.Duration

	KDF crypto.KDFParams
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MongoDB == "" {
		c.MongoDB = "minilastpass"
	}
	if c.AccountsCollection == "" {
		c.AccountsCollection = "accounts"
	}
	if c.ItemsCollection == "" {
		c.ItemsCollection = "vault_items"
	}
	if c.TokenTTL <= 0 {
		c.TokenTTL = 60 * time.Minute
	}
	if c.KeyTTL <= 0 {
		c.KeyTTL = keystore.DefaultTTL
	}
	if c.KDF == (crypto.KDFParams{}) {
		c.KDF = crypto.DefaultKDF()
	}
}
