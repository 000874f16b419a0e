package main

import (
	"log"
	"os"

	"github.com/ktr0731/mcp-server-weather/codegen"
)

// coordinatesInput is an unnamed struct so that its schema is reflected inline
// rather than behind a $ref.
var coordinatesInput struct {
	Latitude  *float64 `json:"latitude" jsonschema:"minimum=-90,maximum=90,description=Latitude of the location in decimal degrees"`
	Longitude *float64 `json:"longitude" jsonschema:"minimum=-180,maximum=180,description=Longitude of the location in decimal degrees"`
}

func main() {
	// Run from the weather package directory by go generate.
	f, err := os.Create("mcp.gen.go")
	if err != nil {
		log.Fatalf("Failed to create file: %v", err)
	}
	defer f.Close()

	if err := codegen.Generate(f, definition(), "weather"); err != nil {
		log.Fatalf("Failed to generate code: %v", err)
	}
}

func definition() *codegen.ServerDefinition {
	return &codegen.ServerDefinition{
		Capabilities: codegen.ServerCapabilities{
			Prompts:   &codegen.PromptCapability{},
			Resources: &codegen.ResourceCapability{},
			Tools:     &codegen.ToolCapability{},
			Logging:   &codegen.LoggingCapability{},
		},
		Implementation: codegen.Implementation{
			Name:    "mcp-weather",
			Version: "0.1.0",
		},
		Instructions: "Weather data from Open-Meteo. Use get_forecast for dates within the forecast horizon and get_current_weather otherwise. Coordinates are decimal degrees.",
		Prompts: []codegen.Prompt{
			{
				Name:        "trip_weather",
				Description: "Prepare a traveler for the weather at a destination on a given date",
				Arguments: []codegen.PromptArgument{
					{Name: "latitude", Description: "Latitude of the destination", Required: true},
					{Name: "longitude", Description: "Longitude of the destination", Required: true},
					{Name: "date", Description: "Trip start date (YYYY-MM-DD)", Required: true},
				},
			},
		},
		Tools: []codegen.Tool{
			{
				Name:        "get_current_weather",
				Description: "Get current weather conditions for a location",
				InputSchema: coordinatesInput,
				Annotations: &codegen.ToolAnnotations{
					Title:         "Current weather",
					ReadOnlyHint:  true,
					OpenWorldHint: true,
				},
			},
			{
				Name:        "get_forecast",
				Description: "Get daily weather forecast for a location",
				InputSchema: coordinatesInput,
				Annotations: &codegen.ToolAnnotations{
					Title:         "Daily forecast",
					ReadOnlyHint:  true,
					OpenWorldHint: true,
				},
			},
		},
		ResourceTemplates: []codegen.ResourceTemplate{
			{
				URITemplate: "weather://current/{latitude}/{longitude}",
				Name:        "Current Weather",
				Description: "Current weather conditions at the given coordinates",
				MimeType:    "application/json",
			},
			{
				URITemplate: "weather://forecast/{latitude}/{longitude}",
				Name:        "Daily Forecast",
				Description: "Daily weather forecast at the given coordinates",
				MimeType:    "application/json",
			},
		},
	}
}
