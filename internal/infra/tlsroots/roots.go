package tlsroots

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertsFound is returned for PEM input without any certificate.
var ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

// Pool is a set of trusted roots.
type Pool struct {
	certs *x509.CertPool
	added int
}

// NewPool starts from the system roots, or an empty pool where the
// platform has none.
func NewPool() *Pool {
	certs, err := x509.SystemCertPool()
	if err != nil {
		certs = x509.NewCertPool()
	}
	return &Pool{certs: certs}
}

// AddCertFile adds every certificate of a PEM file.
func (p *Pool) AddCertFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("tlsroots: read %s: %w", path, err)
	}
	if err := p.AddCertPEM(data); err != nil {
		return fmt.Errorf("tlsroots: %s: %w", path, err)
	}
	return nil
}

// AddCertPEM adds every CERTIFICATE block of data. Other block types are
// skipped.
func (p *Pool) AddCertPEM(data []byte) error {
	n := 0
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}
		p.certs.AddCert(cert)
		n++
	}
	if n == 0 {
		return ErrNoCertsFound
	}
	p.added += n
	return nil
}

// Added returns how many certificates were added on top of the system pool.
func (p *Pool) Added() int { return p.added }

// CertPool returns the underlying pool.
func (p *Pool) CertPool() *x509.CertPool { return p.certs }

// Options describe the TLS settings of the backend connection.
type Options struct {
	// CAFile is an extra PEM bundle of trusted roots.
	CAFile string
	// CertFile and KeyFile hold a client certificate for mutual TLS.
	CertFile string
	KeyFile  string
	// ServerName overrides the name checked against the server certificate.
	ServerName string
}

// Enabled reports whether any custom TLS setting is present.
func (o Options) Enabled() bool {
	return o.CAFile != "" || o.CertFile != "" || o.ServerName != ""
}

// ClientConfig builds a client tls.Config. When a client certificate is
// configured the returned ClientCert serves it and can be watched for
// rotation; otherwise it is nil.
func ClientConfig(o Options) (*tls.Config, *ClientCert, error) {
	cfg := &tls.Config{
		MinVersion: tls.VersionTLS12,
		ServerName: o.ServerName,
	}

	if o.CAFile != "" {
		pool := NewPool()
		if err := pool.AddCertFile(o.CAFile); err != nil {
			return nil, nil, err
		}
		cfg.RootCAs = pool.CertPool()
	}

	if (o.CertFile == "") != (o.KeyFile == "") {
		return nil, nil, errors.New("tlsroots: client_cert and client_key must be set together")
	}
	if o.CertFile == "" {
		return cfg, nil, nil
	}

	cc, err := LoadClientCert(o.CertFile, o.KeyFile)
	if err != nil {
		return nil, nil, err
	}
	cfg.GetClientCertificate = cc.GetClientCertificate
	return cfg, cc, nil
}
