// Package docs registers the OpenAPI description of the status API.
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
        "/rooms": {
            "get": {
                "security": [{"TelegramInitData": []}],
                "description": "Summaries of every room the bot has seen, ordered by id.",
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "List rooms",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/http.RoomListResponse"}},
                    "401": {"description": "Missing or invalid init data", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "403": {"description": "Not an owner", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        },
        "/rooms/{id}": {
            "get": {
                "security": [{"TelegramInitData": []}],
                "description": "Full state of one room, in the persisted snapshot format.",
                "produces": ["application/json"],
                "tags": ["rooms"],
                "summary": "Get room",
                "parameters": [
                    {"type": "integer", "description": "Chat ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.RoomSnapshot"}},
                    "400": {"description": "Invalid id", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}},
                    "404": {"description": "Unknown room", "schema": {"$ref": "#/definitions/middleware.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "errors.AppError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "details": {"type": "object", "additionalProperties": true},
                "timestamp": {"type": "string"},
                "request_id": {"type": "string"},
                "user_id": {"type": "integer"}
            }
        },
        "middleware.ErrorResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "error": {"$ref": "#/definitions/errors.AppError"},
                "timestamp": {"type": "string"},
                "request_id": {"type": "string"},
                "path": {"type": "string"},
                "method": {"type": "string"}
            }
        },
        "http.RoomSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "type": {"type": "string"},
                "main": {"type": "boolean"},
                "keyboard": {"type": "string", "enum": ["NONE", "ATTEND", "DICE"]},
                "spam_detection": {"type": "boolean"},
                "users": {"type": "integer"},
                "attendees": {"type": "integer"},
                "absentees": {"type": "integer"},
                "events": {"type": "integer"}
            }
        },
        "http.RoomListResponse": {
            "type": "object",
            "properties": {
                "rooms": {"type": "array", "items": {"$ref": "#/definitions/http.RoomSummary"}},
                "total": {"type": "integer"}
            }
        },
        "models.UserSnapshot": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "name": {"type": "string"},
                "roll": {"type": "integer"},
                "jumbo": {"type": "boolean"},
                "alcoholic": {"type": "boolean"},
                "muted": {"type": "boolean"},
                "drink_name": {"type": "string"}
            }
        },
        "models.EventSnapshot": {
            "type": "object",
            "properties": {
                "timestamp": {"type": "string"},
                "attendees": {"type": "array", "items": {"$ref": "#/definitions/models.UserSnapshot"}},
                "absentees": {"type": "array", "items": {"$ref": "#/definitions/models.UserSnapshot"}}
            }
        },
        "models.RoomSnapshot": {
            "type": "object",
            "properties": {
                "id": {"type": "integer"},
                "title": {"type": "string"},
                "type": {"type": "string"},
                "spam_detection": {"type": "boolean"},
                "pinned_message_id": {"type": "integer"},
                "attend_message_id": {"type": "integer"},
                "dice_message_id": {"type": "integer"},
                "current_keyboard": {"type": "string"},
                "current_event": {"$ref": "#/definitions/models.EventSnapshot"},
                "events": {"type": "array", "items": {"$ref": "#/definitions/models.EventSnapshot"}},
                "users": {"type": "array", "items": {"$ref": "#/definitions/models.UserSnapshot"}}
            }
        }
    },
    "securityDefinitions": {
        "TelegramInitData": {
            "description": "Telegram Mini App init data of a bot owner",
            "type": "apiKey",
            "name": "X-Telegram-Init-Data",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "Dicers Bot Status API",
	Description:      "Read-only view of the rooms served by the dicers bot.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
