package workflow

// documentSchema is the JSON schema for serialized workflow trees.
const documentSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["name", "nodes"],
  "properties": {
    "name": {
      "type": "string",
      "minLength": 1
    },
    "nodes": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["node_id", "plugin_type"],
        "properties": {
          "node_id": {
            "type": "integer",
            "minimum": 0
          },
          "parent_id": {
            "type": ["integer", "null"],
            "minimum": 0
          },
          "plugin_type": {
            "type": "string",
            "minLength": 1
          },
          "keep_results": {
            "type": "boolean"
          },
          "params": {
            "type": "object"
          }
        }
      }
    }
  }
}`
