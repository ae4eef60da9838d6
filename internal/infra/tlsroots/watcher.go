package tlsroots

import (
	"context"
	"crypto/tls"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/cepip-console/internal/telemetry/logger"
)

// ClientCert holds a client key pair that can be swapped at runtime.
type ClientCert struct {
	certFile string
	keyFile  string

	mu   sync.RWMutex
	cert *tls.Certificate
}

// LoadClientCert reads the key pair once.
func LoadClientCert(certFile, keyFile string) (*ClientCert, error) {
	c := &ClientCert{certFile: certFile, keyFile: keyFile}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload re-reads the key pair. On failure the previous pair stays active.
func (c *ClientCert) Reload() error {
	cert, err := tls.LoadX509KeyPair(c.certFile, c.keyFile)
	if err != nil {
		return fmt.Errorf("tlsroots: load client key pair: %w", err)
	}
	c.mu.Lock()
	c.cert = &cert
	c.mu.Unlock()
	return nil
}

// GetClientCertificate implements tls.Config.GetClientCertificate.
func (c *ClientCert) GetClientCertificate(*tls.CertificateRequestInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cert, nil
}

// Watch reloads the pair whenever one of its files is written or
// replaced, until ctx ends. It watches the parent directories so editors
// and tools that rename files into place are noticed.
func (c *ClientCert) Watch(ctx context.Context, log logger.Logger) error {
	if log == nil {
		log = logger.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("tlsroots: create watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]bool{filepath.Dir(c.certFile): true, filepath.Dir(c.keyFile): true}
	for dir := range dirs {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("tlsroots: watch %s: %w", dir, err)
		}
	}

	names := map[string]bool{filepath.Base(c.certFile): true, filepath.Base(c.keyFile): true}

	// Writers often touch cert and key in quick succession; reload once
	// things settle.
	const settle = 200 * time.Millisecond
	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !names[filepath.Base(ev.Name)] || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(settle, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})

		case <-reload:
			if err := c.Reload(); err != nil {
				log.Warn("client certificate reload failed", "cert_file", c.certFile, "error", err)
				continue
			}
			log.Info("client certificate reloaded", "cert_file", c.certFile)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("client certificate watcher error", "error", err)

		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		}
	}
}
