// Package swagger registers the OpenAPI document served under /swagger.
package swagger

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
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    },
    "security": [
        {
            "ApiKeyAuth": []
        }
    ],
    "paths": {
        "/sync": {
            "post": {
                "description": "Reconciles every bound workspace container into its store table. Concurrent triggers share one run.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Trigger Sync",
                "parameters": [
                    {
                        "type": "boolean",
                        "description": "Compute the change sets without writing",
                        "name": "dry_run",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run Report",
                        "schema": {"$ref": "#/definitions/reconcile.RunReport"}
                    },
                    "500": {
                        "description": "Run Aborted",
                        "schema": {"type": "object", "additionalProperties": true}
                    }
                }
            }
        },
        "/sync/report": {
            "get": {
                "description": "Returns the report of the most recent sync run since the server started.",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Last Run Report",
                "responses": {
                    "200": {
                        "description": "Run Report",
                        "schema": {"$ref": "#/definitions/reconcile.RunReport"}
                    },
                    "404": {
                        "description": "No Run Yet",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/sync/reports": {
            "get": {
                "description": "Lists the keys of archived run reports, newest first.",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "List Archived Reports",
                "parameters": [
                    {
                        "type": "integer",
                        "description": "Maximum number of keys",
                        "name": "limit",
                        "in": "query"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Report Keys",
                        "schema": {"type": "object", "additionalProperties": true}
                    },
                    "404": {
                        "description": "Archiving Disabled",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        },
        "/sync/reports/{key}": {
            "get": {
                "description": "Returns an archived run report by key.",
                "produces": ["application/json"],
                "tags": ["sync"],
                "summary": "Get Archived Report",
                "parameters": [
                    {
                        "type": "string",
                        "description": "Report key (e.g. 'reports/20240501T120000Z-<run id>.json')",
                        "name": "key",
                        "in": "path",
                        "required": true
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Run Report",
                        "schema": {"$ref": "#/definitions/reconcile.RunReport"}
                    },
                    "404": {
                        "description": "Archiving Disabled",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    },
                    "500": {
                        "description": "Internal Server Error",
                        "schema": {"type": "object", "additionalProperties": {"type": "string"}}
                    }
                }
            }
        }
    },
    "definitions": {
        "reconcile.StatementReport": {
            "type": "object",
            "properties": {
                "phase": {"type": "string"},
                "name": {"type": "string"},
                "executed": {"type": "boolean"},
                "rows_affected": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "reconcile.TableReport": {
            "type": "object",
            "properties": {
                "table": {"type": "string"},
                "kind": {"type": "string"},
                "status": {"type": "string"},
                "stored_rows": {"type": "integer"},
                "source_records": {"type": "integer"},
                "degraded": {"type": "boolean"},
                "new": {"type": "integer"},
                "superseded": {"type": "integer"},
                "unchanged": {"type": "integer"},
                "reverse_sync_pending": {"type": "integer"},
                "unverified": {"type": "integer"},
                "deleted": {"type": "integer"},
                "inserted": {"type": "integer"},
                "error": {"type": "string"}
            }
        },
        "reconcile.RunReport": {
            "type": "object",
            "properties": {
                "run_id": {"type": "string"},
                "started_at": {"type": "string"},
                "finished_at": {"type": "string"},
                "dry_run": {"type": "boolean"},
                "labels": {"type": "integer"},
                "tables": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/reconcile.TableReport"}
                },
                "pre_work": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/reconcile.StatementReport"}
                },
                "post_work": {
                    "type": "array",
                    "items": {"$ref": "#/definitions/reconcile.StatementReport"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Workspace Sync API",
	Description:      "API for reconciling a Notion workspace into a tabular store.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
