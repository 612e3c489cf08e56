package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "ClassTrack API",
        "description": "Live classroom occupancy, branch timetables and the class representative lobby.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Auth", "description": "Sign-up, sessions and the current profile"},
        {"name": "Rooms", "description": "Rooms, the live grid and status changes"},
        {"name": "Timetable", "description": "Weekly branch timetable, import, export and sync"},
        {"name": "Chat", "description": "Class representative lobby"},
        {"name": "Events", "description": "Server-Sent change notifications"}
    ],
    "paths": {
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create a profile",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SignUpRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Invalid CR code", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Email already registered", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/signin": {
            "post": {
                "tags": ["Auth"],
                "summary": "Exchange credentials for tokens",
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SignInRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "401": {"description": "Invalid credentials", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/auth/refresh": {
            "post": {
                "tags": ["Auth"],
                "summary": "Rotate a refresh token",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/auth/signout": {
            "post": {
                "tags": ["Auth"],
                "summary": "Revoke one refresh token or every session",
                "security": [{"BearerAuth": []}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/auth/me": {
            "get": {
                "tags": ["Auth"],
                "summary": "Current profile",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms": {
            "get": {
                "tags": ["Rooms"],
                "summary": "List rooms ordered by room number",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms/grid": {
            "get": {
                "tags": ["Rooms"],
                "summary": "Live occupancy grid",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rooms/{id}/status": {
            "put": {
                "tags": ["Rooms"],
                "summary": "Set a room status",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "id", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/SetRoomStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Room not found", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable": {
            "get": {
                "tags": ["Timetable"],
                "summary": "List branch slots ordered by day and start",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "query", "name": "day_of_week", "type": "integer", "minimum": 0, "maximum": 6}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Timetable"],
                "summary": "Add a slot",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"$ref": "#/definitions/CreateTimetableSlotRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetable/{id}": {
            "delete": {
                "tags": ["Timetable"],
                "summary": "Delete a slot of the caller's branch",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "path", "name": "id", "required": true, "type": "string"}],
                "responses": {"204": {"description": "No Content"}, "404": {"description": "Not found"}}
            }
        },
        "/timetable/sync": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Project today's slots onto occupancy",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "Per-slot outcomes", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetable/import/preview": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Validate a CSV or XLSX timetable upload",
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "parameters": [{"in": "formData", "name": "file", "required": true, "type": "file"}],
                "responses": {"200": {"description": "Preview", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/timetable/import/{importId}/commit": {
            "post": {
                "tags": ["Timetable"],
                "summary": "Insert the accepted rows of a preview",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"in": "path", "name": "importId", "required": true, "type": "string"},
                    {"in": "body", "name": "payload", "schema": {"type": "object", "properties": {"skip_rejected": {"type": "boolean"}}}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Preview has rejected rows", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/timetable/export": {
            "get": {
                "tags": ["Timetable"],
                "summary": "Download the branch timetable",
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [{"in": "query", "name": "format", "type": "string", "enum": ["csv", "pdf", "xlsx"]}],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/chat/messages": {
            "get": {
                "tags": ["Chat"],
                "summary": "Latest lobby messages in ascending order",
                "security": [{"BearerAuth": []}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Chat"],
                "summary": "Post a lobby message",
                "security": [{"BearerAuth": []}],
                "parameters": [{"in": "body", "name": "payload", "required": true, "schema": {"type": "object", "properties": {"message": {"type": "string"}}}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "429": {"description": "Rate limited", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "Stream collection change events",
                "security": [{"BearerAuth": []}],
                "produces": ["text/event-stream"],
                "parameters": [
                    {"in": "query", "name": "collection", "type": "array", "items": {"type": "string", "enum": ["classroom_occupancy", "timetable", "cr_chat_messages"]}, "collectionFormat": "multi"},
                    {"in": "query", "name": "access_token", "type": "string"}
                ],
                "responses": {"200": {"description": "Event stream"}}
            }
        }
    },
    "definitions": {
        "SignUpRequest": {
            "type": "object",
            "required": ["name", "email", "password", "role", "branch"],
            "properties": {
                "name": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string"},
                "role": {"type": "string", "enum": ["student", "cr"]},
                "branch": {"type": "string", "enum": ["CSE", "ECE", "IT", "MECH", "CIVIL", "EEE"]},
                "cr_code": {"type": "string"}
            }
        },
        "SignInRequest": {
            "type": "object",
            "required": ["email", "password"],
            "properties": {"email": {"type": "string"}, "password": {"type": "string"}}
        },
        "SetRoomStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "enum": ["vacant", "occupied", "reserved"]},
                "class_name": {"type": "string"},
                "subject": {"type": "string"},
                "purpose": {"type": "string"},
                "start_time": {"type": "string", "format": "date-time"},
                "end_time": {"type": "string", "format": "date-time"}
            }
        },
        "CreateTimetableSlotRequest": {
            "type": "object",
            "required": ["classroom_id", "day_of_week", "start_time", "end_time", "class_name", "subject"],
            "properties": {
                "classroom_id": {"type": "string"},
                "day_of_week": {"type": "integer", "minimum": 0, "maximum": 6},
                "start_time": {"type": "string", "example": "09:00"},
                "end_time": {"type": "string", "example": "10:00"},
                "class_name": {"type": "string"},
                "subject": {"type": "string"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"type": "object"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
