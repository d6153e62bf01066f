// Package docs holds the hand-maintained OpenAPI description served by
// gin-swagger. A generator (swag init) would normally produce this file
// from handler annotations; it is authored directly here since the
// handler surface is small and stable.
package docs

import "github.com/swaggo/swag"

const doc = `{
    "swagger": "2.0",
    "info": {
        "title": "simtrader",
        "description": "Read-mostly HTTP facade over the embedded matching engine.",
        "version": "1.0"
    },
    "basePath": "/api/v1",
    "paths": {
        "/symbols/{symbol}/depth": {
            "get": {"summary": "Aggregated order book depth for a symbol", "parameters": [{"name": "symbol", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/symbols/{symbol}/trades": {
            "get": {"summary": "Recent trades for a symbol", "parameters": [{"name": "symbol", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/orders": {
            "post": {"summary": "Submit an order", "responses": {"201": {"description": "Created"}}}
        },
        "/orders/{id}/cancel": {
            "post": {"summary": "Cancel a resting order", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/traders/{id}/pnl": {
            "get": {"summary": "Realized/unrealized P&L for a trader", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        },
        "/traders/{id}/positions": {
            "get": {"summary": "Per-symbol positions and P&L for a trader", "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}], "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo registers the spec above under the name gin-swagger looks
// for by default ("swagger").
var SwaggerInfo = &swag.Spec{
	Version:     "1.0",
	Host:        "",
	BasePath:    "/api/v1",
	Schemes:     []string{"http"},
	Title:       "simtrader",
	Description: "Read-mostly HTTP facade over the embedded matching engine.",
	SwaggerTemplate: doc,
}

func init() {
	swag.Register(swag.Name, SwaggerInfo)
}
