package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"

	"github.com/wudi/accesspdf/providers"
)

// Credentials holds provider keys. Values from the process environment take
// precedence over .env files.
type Credentials map[string]string

// Get returns the value of key, empty when unset.
func (c Credentials) Get(key string) string { return c[key] }

// DefaultEnvFile is read when LoadCredentials gets no file names.
const DefaultEnvFile = ".env"

// LoadCredentials reads the provider keys once from the given .env files and
// the process environment. Missing files are skipped; later files do not
// override earlier ones.
func LoadCredentials(envFiles ...string) (Credentials, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	creds := Credentials{}
	for _, f := range envFiles {
		values, err := godotenv.Read(f)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for k, v := range values {
			if _, ok := creds[k]; !ok {
				creds[k] = v
			}
		}
	}
	for _, key := range providerKeys() {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			creds[key] = v
		}
	}
	return creds, nil
}

func providerKeys() []string {
	var keys []string
	for _, name := range providers.Names() {
		if info, ok := providers.Lookup(name); ok && info.KeyEnv != "" {
			keys = append(keys, info.KeyEnv)
		}
	}
	return keys
}
