// Package iam centralizes identity and access management for the marketplace API.
//
// It owns four concerns:
//
//   - Authentication: a chain of Authenticator implementations (session cookie,
//     bearer token, optional test-mode fallback) that turn an incoming request
//     into an immutable principal with pre-resolved roles.
//
//   - Role resolution: the union of explicit role grants, roles conferred by
//     org membership (an org's kind maps to advertiser or publisher), and
//     extra roles attached to orgs via org_role_mappings. Every authenticated
//     user holds at least the viewer role.
//
//   - Acting-role resolution: every request operates under exactly one role,
//     chosen by precedence (X-Acting-Role header, then the session's persisted
//     active role, then the user's stored preference, then the highest-ranked
//     grant). Authorization consults only the acting role, so a user acting as
//     viewer is limited to viewer capabilities regardless of what else they hold.
//
//   - Authorization: read-only Casbin policy evaluation against the acting
//     role. The request path never mutates Casbin state; policy and grant
//     mutations happen in out-of-band admin operations.
//
// Org-to-role mappings are served from an immutable snapshot cache
// (atomic.Value) so role resolution stays lock-free on the request path.
package iam
