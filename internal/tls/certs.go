// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package tls generates and loads the mutual-TLS material that secures the
// host control API.
package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	cryptotls "crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/samber/oops"
)

// File names inside a certificates directory.
const (
	caCertFile = "root-ca.crt"
	caKeyFile  = "root-ca.key"
)

// CA holds a certificate authority certificate and private key.
type CA struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
}

// Cert holds a leaf certificate and private key saved as <Name>.crt/.key.
type Cert struct {
	Certificate *x509.Certificate
	PrivateKey  *ecdsa.PrivateKey
	Name        string
}

func serial() (*big.Int, error) {
	n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "generate serial")
	}
	return n, nil
}

// GenerateCA creates a root CA named "CoreSystem CA <cluster>".
func GenerateCA(cluster string) (*CA, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "generate CA key")
	}
	sn, err := serial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: sn,
		Subject: pkix.Name{
			Organization: []string{"CoreSystem"},
			CommonName:   "CoreSystem CA " + cluster,
		},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().AddDate(10, 0, 0),
		IsCA:                  true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "create CA certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "parse CA certificate")
	}
	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// GenerateServerCert creates a certificate for the engine's control
// listener, valid for localhost and hosts.
func GenerateServerCert(ca *CA, name string, hosts ...string) (*Cert, error) {
	return generate(ca, name, x509.ExtKeyUsageServerAuth, hosts)
}

// GenerateClientCert creates a certificate a game host presents.
func GenerateClientCert(ca *CA, name string) (*Cert, error) {
	return generate(ca, name, x509.ExtKeyUsageClientAuth, nil)
}

func generate(ca *CA, name string, usage x509.ExtKeyUsage, hosts []string) (*Cert, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, oops.In("tls").With("name", name).Wrapf(err, "generate key")
	}
	sn, err := serial()
	if err != nil {
		return nil, err
	}

	template := &x509.Certificate{
		SerialNumber: sn,
		Subject: pkix.Name{
			Organization: []string{"CoreSystem"},
			CommonName:   name,
		},
		NotBefore:   time.Now(),
		NotAfter:    time.Now().AddDate(1, 0, 0),
		KeyUsage:    x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage: []x509.ExtKeyUsage{usage},
	}
	if usage == x509.ExtKeyUsageServerAuth {
		template.DNSNames = []string{"localhost"}
		template.IPAddresses = []net.IP{net.ParseIP("127.0.0.1")}
		for _, h := range hosts {
			if ip := net.ParseIP(h); ip != nil {
				template.IPAddresses = append(template.IPAddresses, ip)
			} else {
				template.DNSNames = append(template.DNSNames, h)
			}
		}
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Certificate, &key.PublicKey, ca.PrivateKey)
	if err != nil {
		return nil, oops.In("tls").With("name", name).Wrapf(err, "create certificate")
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, oops.In("tls").With("name", name).Wrapf(err, "parse certificate")
	}
	return &Cert{Certificate: cert, PrivateKey: key, Name: name}, nil
}

// Save writes the CA as root-ca.crt/.key and each cert as <name>.crt/.key.
func Save(dir string, ca *CA, certs ...*Cert) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return oops.In("tls").With("dir", dir).Wrapf(err, "create certs directory")
	}
	if err := saveCert(filepath.Join(dir, caCertFile), ca.Certificate); err != nil {
		return err
	}
	if err := saveKey(filepath.Join(dir, caKeyFile), ca.PrivateKey); err != nil {
		return err
	}
	for _, c := range certs {
		if err := saveCert(filepath.Join(dir, c.Name+".crt"), c.Certificate); err != nil {
			return err
		}
		if err := saveKey(filepath.Join(dir, c.Name+".key"), c.PrivateKey); err != nil {
			return err
		}
	}
	return nil
}

// LoadCA loads the CA saved in dir.
func LoadCA(dir string) (*CA, error) {
	certPEM, err := os.ReadFile(filepath.Clean(filepath.Join(dir, caCertFile)))
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "read CA certificate")
	}
	keyPEM, err := os.ReadFile(filepath.Clean(filepath.Join(dir, caKeyFile)))
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "read CA key")
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, oops.In("tls").Errorf("decode CA certificate PEM")
	}
	cert, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "parse CA certificate")
	}
	block, _ = pem.Decode(keyPEM)
	if block == nil {
		return nil, oops.In("tls").Errorf("decode CA key PEM")
	}
	key, err := x509.ParseECPrivateKey(block.Bytes)
	if err != nil {
		return nil, oops.In("tls").Wrapf(err, "parse CA key")
	}
	return &CA{Certificate: cert, PrivateKey: key}, nil
}

// ServerConfig loads <name>.crt/.key from dir and requires clients to
// present a certificate signed by the directory's CA.
func ServerConfig(dir, name string) (*cryptotls.Config, error) {
	cert, pool, err := loadPair(dir, name)
	if err != nil {
		return nil, err
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{cert},
		ClientCAs:    pool,
		ClientAuth:   cryptotls.RequireAndVerifyClientCert,
		MinVersion:   cryptotls.VersionTLS13,
	}, nil
}

// ClientConfig loads <name>.crt/.key from dir and trusts the directory's CA
// for a server presenting serverName.
func ClientConfig(dir, name, serverName string) (*cryptotls.Config, error) {
	cert, pool, err := loadPair(dir, name)
	if err != nil {
		return nil, err
	}
	return &cryptotls.Config{
		Certificates: []cryptotls.Certificate{cert},
		RootCAs:      pool,
		MinVersion:   cryptotls.VersionTLS13,
		ServerName:   serverName,
	}, nil
}

func loadPair(dir, name string) (cryptotls.Certificate, *x509.CertPool, error) {
	cert, err := cryptotls.LoadX509KeyPair(
		filepath.Clean(filepath.Join(dir, name+".crt")),
		filepath.Clean(filepath.Join(dir, name+".key")),
	)
	if err != nil {
		return cryptotls.Certificate{}, nil, oops.In("tls").With("name", name).Wrapf(err, "load certificate")
	}
	caPEM, err := os.ReadFile(filepath.Clean(filepath.Join(dir, caCertFile)))
	if err != nil {
		return cryptotls.Certificate{}, nil, oops.In("tls").Wrapf(err, "read CA certificate")
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return cryptotls.Certificate{}, nil, oops.In("tls").Errorf("no certificates in %s", caCertFile)
	}
	return cert, pool, nil
}

func saveCert(path string, cert *x509.Certificate) error {
	return writePEM(path, &pem.Block{Type: "CERTIFICATE", Bytes: cert.Raw})
}

func saveKey(path string, key *ecdsa.PrivateKey) error {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return oops.In("tls").Wrapf(err, "marshal key")
	}
	return writePEM(path, &pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

func writePEM(path string, block *pem.Block) error {
	f, err := os.OpenFile(filepath.Clean(path), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return oops.In("tls").With("path", path).Wrapf(err, "create file")
	}
	if err := pem.Encode(f, block); err != nil {
		_ = f.Close()
		return oops.In("tls").With("path", path).Wrapf(err, "encode PEM")
	}
	if err := f.Close(); err != nil {
		return oops.In("tls").With("path", path).Wrapf(err, "close file")
	}
	return nil
}
