package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Placement Engine API",
        "description": "Placement eligibility and application workflow engine",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Jobs", "description": "Job postings and their audiences"},
        {"name": "Applications", "description": "Student applications"},
        {"name": "Rounds", "description": "Shortlist and interview rounds"},
        {"name": "Students", "description": "Placement projections and resumes"}
    ],
    "paths": {
        "/jobs": {
            "post": {
                "tags": ["Jobs"],
                "summary": "Create job posting",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateJobRequest"}}
                ],
                "responses": {
                    "200": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "validationError", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{jobId}": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Get job posting",
                "parameters": [{"name": "jobId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "jobNotFound", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{jobId}/eligible-students": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Students currently eligible for the posting",
                "parameters": [{"name": "jobId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{jobId}/applicants": {
            "get": {
                "tags": ["Jobs"],
                "summary": "Applicants of the posting",
                "parameters": [{"name": "jobId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/applications": {
            "post": {
                "tags": ["Applications"],
                "summary": "Apply to a job",
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ApplyRequest"}}
                ],
                "responses": {
                    "200": {"description": "Applied", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "302": {"description": "closed", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "alreadyApplied, deadlinePassed, notEligible, studentPlaced, studentOptedOut", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "jobNotFound, studentNotFound", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{jobId}/shortlist": {
            "post": {
                "tags": ["Rounds"],
                "summary": "Publish the shortlist",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoundRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "shortlistAlreadyPublished", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{jobId}/rounds/{label}": {
            "post": {
                "tags": ["Rounds"],
                "summary": "Record an interview round",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"},
                    {"name": "label", "in": "path", "required": true, "type": "string", "description": "round_k or round_final"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RoundRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "302": {"description": "roundAlreadyRecorded", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "invalidRoundTransition", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/jobs/{jobId}/students/{studentId}/state": {
            "get": {
                "tags": ["Rounds"],
                "summary": "Round state of a student in a job",
                "parameters": [
                    {"name": "jobId", "in": "path", "required": true, "type": "string"},
                    {"name": "studentId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/placement": {
            "get": {
                "tags": ["Students"],
                "summary": "Placement projection across applied jobs",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/jobs/{jobId}": {
            "get": {
                "tags": ["Students"],
                "summary": "Placement projection for one job",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "jobId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/applied-jobs": {
            "get": {
                "tags": ["Students"],
                "summary": "Applied jobs, newest first",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/resume": {
            "put": {
                "tags": ["Students"],
                "summary": "Upload resume",
                "consumes": ["multipart/form-data"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "file", "in": "formData", "required": true, "type": "file"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "CreateJobRequest": {
            "type": "object",
            "required": ["company", "jobRole", "deadLine", "requiredSkills"],
            "properties": {
                "company": {"type": "string"},
                "jobRole": {"type": "string"},
                "description": {"type": "string"},
                "deadLine": {"type": "string", "format": "date-time"},
                "requiredSkills": {"type": "array", "items": {"type": "string"}},
                "minPercentage": {"type": "number"},
                "allowedPassoutYears": {"type": "array", "items": {"type": "string"}},
                "allowedDepartments": {"type": "array", "items": {"type": "string"}},
                "stack": {"type": "array", "items": {"type": "string"}}
            }
        },
        "ApplyRequest": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "jobId": {"type": "string"}
            }
        },
        "RoundRequest": {
            "type": "object",
            "properties": {
                "selectedIds": {"type": "array", "items": {"type": "string"}},
                "rejectedIds": {"type": "array", "items": {"type": "string"}},
                "selectedComment": {"type": "string"},
                "rejectedComment": {"type": "string"},
                "isFinal": {"type": "boolean"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"type": "string"},
                "message": {"type": "string"},
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
