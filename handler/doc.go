// Package handler serves the session API over HTTP.
//
// Routes:
//
//	POST     /login    JSON {"username","password"} -> {"token","token_type","token_expires"}
//	GET|POST /logout   revokes the presented bearer token
//	GET      /me       echoes the verified claims
//	POST     /ping     echoes the JSON body
//	GET      /metrics  Prometheus text, when a metrics handler is configured
//
// Every failure body is a sessiongate.ErrorResponse.
package handler
