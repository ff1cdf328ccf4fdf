package analysis

import "encoding/json"

// Result schemas. Every property a client reads is listed so that default
// filling produces a complete object.

var analysisSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"manipulativeTechniques": {"type": "array", "items": {"type": "string"}},
		"cognitiveBiases": {"type": "array", "items": {"type": "string"}},
		"unverifiableFacts": {"type": "array", "items": {"type": "string"}},
		"analysisSummary": {"type": "string"}
	},
	"required": ["manipulativeTechniques", "cognitiveBiases", "unverifiableFacts", "analysisSummary"]
}`)

var summarySchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"summary": {"type": "string"},
		"keyPoints": {"type": "array", "items": {"type": "string"}}
	},
	"required": ["summary", "keyPoints"]
}`)

var classificationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"classifiedCategories": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"type": {"type": "string", "default": "other"},
					"score": {"type": "number", "minimum": 0, "maximum": 1},
					"reasoning": {"type": "string"}
				},
				"required": ["type", "score", "reasoning"]
			}
		},
		"overallClassification": {
			"type": "object",
			"default": {"type": "other", "score": 0, "reasoning": ""},
			"properties": {
				"type": {"type": "string", "default": "other"},
				"score": {"type": "number", "minimum": 0, "maximum": 1},
				"reasoning": {"type": "string"}
			},
			"required": ["type", "score", "reasoning"]
		}
	},
	"required": ["classifiedCategories", "overallClassification"]
}`)

var narrativeSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"narratives": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"name": {"type": "string"},
					"description": {"type": "string"},
					"confidence": {"type": "number", "minimum": 0, "maximum": 1},
					"indicators": {"type": "array", "items": {"type": "string"}}
				},
				"required": ["name", "description", "confidence", "indicators"]
			}
		},
		"overallAssessment": {"type": "string"}
	},
	"required": ["narratives", "overallAssessment"]
}`)

var reformulationSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"reformulatedText": {"type": "string"}
	},
	"required": ["reformulatedText"]
}`)

var researchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"answer": {"type": "string"},
		"keyFindings": {"type": "array", "items": {"type": "string"}},
		"sources": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"title": {"type": "string"},
					"url": {"type": "string"}
				},
				"required": ["title", "url"]
			}
		}
	},
	"required": ["answer", "keyFindings", "sources"]
}`)

var personaSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"description": {"type": "string"},
		"traits": {"type": "array", "items": {"type": "string"}},
		"speakingStyle": {"type": "string"},
		"background": {"type": "string"}
	},
	"required": ["name", "description", "traits", "speakingStyle", "background"]
}`)

var chatSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"reply": {"type": "string"}
	},
	"required": ["reply"]
}`)
