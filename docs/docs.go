// Package docs registers the OpenAPI document served at /openapi.json.
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
        "/resize": {
            "post": {
                "description": "Renders each requested size from one upload and returns them as a zip archive",
                "consumes": ["multipart/form-data"],
                "produces": ["application/zip"],
                "tags": ["Resize"],
                "summary": "Resize an image into many sizes",
                "parameters": [
                    {"type": "file", "description": "source image", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "description": "JSON array of size ids", "name": "sizeIds", "in": "formData", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "504": {"description": "Gateway Timeout", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/presets": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Presets"],
                "summary": "List presets",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/webapi.CategoryView"}}}
                }
            }
        },
        "/presets/{category}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Presets"],
                "summary": "List presets of a category",
                "parameters": [
                    {"type": "string", "description": "category id", "name": "category", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/sizes.SizeSpec"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/jobs": {
            "post": {
                "description": "Starts rendering in the background; progress is available on /ws/jobs/{id}",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Submit a resize job",
                "parameters": [
                    {"type": "file", "description": "source image", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "description": "JSON array of size ids", "name": "sizeIds", "in": "formData", "required": true},
                    {"type": "string", "description": "job to discard once this one is accepted", "name": "supersedes", "in": "formData"}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/job.Snapshot"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "429": {"description": "Too Many Requests", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/jobs/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Get a job",
                "parameters": [
                    {"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/job.Snapshot"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Jobs"],
                "summary": "Discard a job",
                "parameters": [
                    {"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/jobs/{id}/files/{filename}": {
            "get": {
                "produces": ["application/octet-stream"],
                "tags": ["Jobs"],
                "summary": "Download one output",
                "parameters": [
                    {"type": "string", "description": "job id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "output filename", "name": "filename", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/jobs/{id}/archive": {
            "get": {
                "produces": ["application/zip"],
                "tags": ["Jobs"],
                "summary": "Download all outputs",
                "parameters": [
                    {"type": "string", "description": "job id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Health probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.APIResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "error": {"type": "string"},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "sizes.SizeSpec": {
            "type": "object",
            "properties": {
                "category": {"type": "string"},
                "filename": {"type": "string"},
                "format": {"type": "string"},
                "height": {"type": "integer"},
                "iconResolutions": {"type": "array", "items": {"type": "integer"}},
                "id": {"type": "string"},
                "label": {"type": "string"},
                "maskable": {"type": "boolean"},
                "width": {"type": "integer"}
            }
        },
        "webapi.CategoryView": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "label": {"type": "string"},
                "sizes": {"type": "array", "items": {"$ref": "#/definitions/sizes.SizeSpec"}}
            }
        },
        "job.OutputInfo": {
            "type": "object",
            "properties": {
                "contentType": {"type": "string"},
                "filename": {"type": "string"},
                "handleId": {"type": "string"},
                "height": {"type": "integer"},
                "label": {"type": "string"},
                "size": {"type": "integer"},
                "specId": {"type": "string"},
                "width": {"type": "integer"}
            }
        },
        "job.Snapshot": {
            "type": "object",
            "properties": {
                "createdAt": {"type": "string"},
                "error": {"type": "string"},
                "failed": {"type": "integer"},
                "handleIds": {"type": "array", "items": {"type": "string"}},
                "id": {"type": "string"},
                "outputs": {"type": "array", "items": {"$ref": "#/definitions/job.OutputInfo"}},
                "progress": {
                    "type": "object",
                    "properties": {
                        "completed": {"type": "integer"},
                        "currentLabel": {"type": "string"},
                        "total": {"type": "integer"}
                    }
                },
                "state": {"type": "string"},
                "unrecognized": {"type": "array", "items": {"type": "string"}},
                "updatedAt": {"type": "string"},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "image-sizer API",
	Description:      "Resizes one source image into icon, favicon and social sizes",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
