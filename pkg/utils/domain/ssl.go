package domain

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	"github.com/vit0-9/netecho/models"
)

// DescribeTLS summarises the TLS state of an inbound connection. It returns
// nil for plain-text connections.
func DescribeTLS(state *tls.ConnectionState) *models.TLSInfo {
	if state == nil || !state.HandshakeComplete {
		return nil
	}

	info := &models.TLSInfo{
		Version:            getTLSVersion(state.Version),
		CipherSuite:        tls.CipherSuiteName(state.CipherSuite),
		ServerName:         state.ServerName,
		NegotiatedProtocol: state.NegotiatedProtocol,
	}

	// Client certificates, only present with mutual TLS
	for _, cert := range state.PeerCertificates {
		info.PeerCertificates = append(info.PeerCertificates, describeCertificate(cert))
	}

	return info
}

// describeCertificate renders the subject and key of a certificate, e.g.
// "CN=client.example (ECDSA 256)".
func describeCertificate(cert *x509.Certificate) string {
	keySize := getKeySize(cert)
	if keySize == 0 {
		return fmt.Sprintf("%s (%s)", cert.Subject.String(), cert.PublicKeyAlgorithm)
	}
	return fmt.Sprintf("%s (%s %d)", cert.Subject.String(), cert.PublicKeyAlgorithm, keySize)
}

// getKeySize determines the key size based on public key type
func getKeySize(cert *x509.Certificate) int {
	switch pub := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return pub.N.BitLen()
	case *ecdsa.PublicKey:
		return pub.Curve.Params().BitSize
	case ed25519.PublicKey:
		return 256
	default:
		return 0
	}
}

// getTLSVersion converts TLS version constant to string
func getTLSVersion(version uint16) string {
	switch version {
	case tls.VersionTLS10:
		return "TLS 1.0"
	case tls.VersionTLS11:
		return "TLS 1.1"
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("Unknown (%d)", version)
	}
}
