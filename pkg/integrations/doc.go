// Package integrations provides the shared HTTP layer for upstream API clients.
//
// # Overview
//
// The proxy talks to one upstream, the GitHub REST API, through
// [github.com/gundaminthecode/showcase/pkg/integrations/github]. That client
// is built on [Client], which handles:
//   - default identification headers on every request
//   - an optional bearer credential (see [NewAuthHTTPClient])
//   - conditional requests via If-None-Match, surfacing 304 as
//     [Response.NotModified] rather than an error
//   - status mapping into the [errors] taxonomy (see [CheckStatus])
//   - request/response events through [observability.HTTP]
//
// # Retries
//
// [Client] never retries. A rate-limit response needs operator action
// (provisioning a credential), and other failures are reported to the
// caller, who decides whether a partial result is acceptable.
//
// [errors]: github.com/gundaminthecode/showcase/pkg/errors
// [observability.HTTP]: github.com/gundaminthecode/showcase/pkg/observability.HTTP
package integrations
