package registry

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// validate checks that every certificate path is set when TLS is enabled.
func (c *TLSConfig) validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	for _, f := range []struct {
		name, path string
	}{
		{"cert_file", c.CertFile},
		{"key_file", c.KeyFile},
		{"ca_file", c.CAFile},
	} {
		if f.path == "" {
			return fmt.Errorf("registry TLS enabled but %s is not set", f.name)
		}
	}
	return nil
}

// clientConfig builds the client-side tls.Config for the etcd connection.
// It returns nil when TLS is disabled.
func (c *TLSConfig) clientConfig() (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	if err := c.validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load client key pair: %w", err)
	}

	caPEM, err := os.ReadFile(c.CAFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("CA file %s contains no PEM certificates", c.CAFile)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   tls.VersionTLS12,
	}, nil
}
