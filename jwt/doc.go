// Package jwt issues and verifies the signed access and refresh tokens used by the admin area.
//
// Verification only checks the signature, the expiry and the issuer. Revocation (session rows and the
// blacklist) is layered on top by the engine.
package jwt
