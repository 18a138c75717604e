package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	driver   string
	language string
	admin    bool
	events   bool
}

func NewInfoHandler(driver, language string, admin, events bool) *InfoHandler {
	return &InfoHandler{driver: driver, language: language, admin: admin, events: events}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"), operationID("get-info"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	Store    string   `json:"store" doc:"Location store driver" example:"duckdb"`
	Language string   `json:"language" doc:"UI language" example:"bn"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	features := []string{"map", "gps", "geojson", "share-qr"}
	if h.admin {
		features = append(features, "admin")
	}
	if h.events {
		features = append(features, "kafka-events")
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:     "plat-iftar",
		Version:  Version,
		Store:    h.driver,
		Language: h.language,
		Features: features,
	}}, nil
}
