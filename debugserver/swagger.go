package debugserver

// swaggerDoc is a hand-maintained OpenAPI document describing the handlers
// in server.go, served at /debug/swagger/doc.json for http-swagger's UI.
// Kept in sync by hand rather than generated, since this package has no
// build step to run `swag init` against.
const swaggerDoc = `{
  "swagger": "2.0",
  "info": {
    "title": "rotation-kernel debug API",
    "description": "Local inspection and driving surface for a running rotation.Character.",
    "version": "1.0"
  },
  "basePath": "/debug",
  "paths": {
    "/timer": {
      "get": {
        "summary": "Read the character's current simulated time",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/resources": {
      "get": {
        "summary": "List every registered resource's current snapshot",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/states": {
      "get": {
        "summary": "List every registered state's current stack count",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/operations": {
      "get": {
        "summary": "List every registered operation and its execution counter",
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}}
      }
    },
    "/step/greedy": {
      "post": {
        "summary": "Advance the character with driver B (greedy single-op loop)",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}, "400": {"description": "malformed request"}}
      }
    },
    "/step/meta": {
      "post": {
        "summary": "Advance the character with driver A (priority meta-operation loop)",
        "consumes": ["application/json"],
        "produces": ["application/json"],
        "responses": {"200": {"description": "OK"}, "400": {"description": "malformed request"}}
      }
    }
  }
}`
