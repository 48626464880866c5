// Package docs registers the OpenAPI description served under /swagger.
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
        "/packages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["packages"],
                "summary": "Table packages with price and people per table",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Active events ordered by date",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["events"],
                "summary": "Event detail",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/events/{id}/availability": {
            "get": {
                "produces": ["application/json"],
                "tags": ["availability"],
                "summary": "Remaining tables per package",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/reservations": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["reservations"],
                "summary": "Book tables for an event",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateReservationRequest"}}],
                "responses": {
                    "201": {"description": "Created"},
                    "400": {"description": "Validation failed or total mismatch"},
                    "404": {"description": "Event not found"},
                    "409": {"description": "posti non disponibili"},
                    "422": {"description": "Event not active"},
                    "429": {"description": "Rate limit exceeded"}
                }
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Staff sign-in",
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/auth/session": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current session, if any",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/staff/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["staff"],
                "summary": "All events, inactive included",
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["staff"],
                "summary": "Create an event",
                "responses": {"201": {"description": "Created"}}
            }
        },
        "/staff/events/{id}/packages": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "tags": ["staff"],
                "summary": "Set total tables per package",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Total below booked"}}
            }
        },
        "/staff/events/{id}/reservations": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["staff"],
                "summary": "Reservations of an event, newest first, with totals",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/staff/events/{id}/reservations/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/pdf"],
                "tags": ["staff"],
                "summary": "Reservation list as PDF",
                "parameters": [{"type": "string", "format": "uuid", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "CreateReservationRequest": {
            "type": "object",
            "required": ["event_id", "package", "tables", "name", "phone"],
            "properties": {
                "event_id": {"type": "string", "format": "uuid"},
                "package": {"type": "string", "enum": ["base", "premium", "elite"]},
                "tables": {"type": "integer", "minimum": 1},
                "name": {"type": "string"},
                "phone": {"type": "string"},
                "notes": {"type": "string"},
                "total": {"type": "number"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Sorso Club API",
	Description:      "Table reservations for Sorso Club events.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
