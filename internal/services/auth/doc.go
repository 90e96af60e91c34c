// Package auth owns Baranex identities: sign-up, login, roles, MFA, email
// verification and profile images.
//
// Subpackages:
//   - user: user model, roles and input normalization
//   - token: access and MFA challenge tokens
//   - mfa: TOTP secrets and verification
//   - mailer: verification email delivery
//   - storage: persistence interfaces and the SQLite implementation
//   - service: auth use-cases
//   - api/httpapi: HTTP handlers
package auth
