// Package docs holds the OpenAPI description served at /swagger.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/portfolio": {
            "get": {
                "produces": ["application/json"],
                "tags": ["portfolio"],
                "summary": "Get the portfolio snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.PortfolioResponse"}}
                }
            }
        },
        "/breaker": {
            "get": {
                "produces": ["application/json"],
                "tags": ["portfolio"],
                "summary": "Get the loss breaker state",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.BreakerStatus"}}
                }
            }
        },
        "/scan/latest": {
            "get": {
                "produces": ["application/json"],
                "tags": ["scan"],
                "summary": "Get the latest scan cycle statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/dto.CycleStats"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/positions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "Get open positions",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}}
                }
            }
        },
        "/positions/{id}/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "Get the event journal of a position",
                "parameters": [
                    {"type": "string", "description": "Position ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/positions/{id}/close": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["positions"],
                "summary": "Close an open position at the current price",
                "parameters": [
                    {"type": "string", "description": "Position ID", "name": "id", "in": "path", "required": true},
                    {"description": "Exit reason, MANUAL when omitted", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/dto.ClosePositionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        },
        "/signals": {
            "get": {
                "produces": ["application/json"],
                "tags": ["signals"],
                "summary": "Get the most recent signals with their risk decisions",
                "parameters": [
                    {"type": "integer", "description": "Number of signals (default 50, max 500)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"type": "object"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/dto.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "dto.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        },
        "dto.ClosePositionRequest": {
            "type": "object",
            "properties": {"reason": {"type": "string", "example": "MANUAL"}}
        },
        "dto.BreakerStatus": {
            "type": "object",
            "properties": {
                "halted": {"type": "boolean"},
                "reason": {"type": "string"},
                "tripped_at": {"type": "string"},
                "resumes_at": {"type": "string"},
                "daily_halted": {"type": "boolean"},
                "weekly_halted": {"type": "boolean"}
            }
        },
        "dto.CycleStats": {
            "type": "object",
            "properties": {
                "cycle_id": {"type": "string"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "scanned": {"type": "integer"},
                "failed": {"type": "integer"},
                "movers": {"type": "integer"},
                "analyzed": {"type": "integer"},
                "no_trade": {"type": "integer"},
                "signals": {"type": "integer"},
                "approved": {"type": "integer"},
                "modified": {"type": "integer"},
                "rejections": {"type": "integer"},
                "skipped": {"type": "integer"}
            }
        },
        "dto.PortfolioResponse": {
            "type": "object",
            "properties": {
                "snapshot": {"type": "object"},
                "positions": {"type": "array", "items": {"type": "object"}},
                "breaker": {"$ref": "#/definitions/dto.BreakerStatus"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Momentum Trader API",
	Description:      "Paper-trading portfolio, positions and signal audit for the momentum trader.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
