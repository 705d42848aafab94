package common

// AuthorizationHeaderName is the HTTP header (and gRPC metadata key) that
// carries the bearer access token.
const AuthorizationHeaderName = "authorization"

// BearerScheme prefixes the access token in AuthorizationHeaderName.
const BearerScheme = "Bearer"

// EnvPrefix prefixes every environment variable read by the server config.
const EnvPrefix = "JWTKEEPER_"
