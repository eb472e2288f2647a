package common

// AuthorizationHeader carries "Bearer <access token>" on protected requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the access token in AuthorizationHeader.
const BearerPrefix = "Bearer "
