package plot

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gofr-hq/gofr-doc/internal/apperr"
	"github.com/gofr-hq/gofr-doc/internal/logging"
	"github.com/gofr-hq/gofr-doc/internal/session"
	"github.com/gofr-hq/gofr-doc/internal/storage"
)

// ArtifactTypePlot tags stored chart images in the blob store.
const ArtifactTypePlot = "plot_image"

// Service renders charts and optionally persists them next to the other
// group artefacts.
type Service struct {
	store  *storage.Store
	engine *session.Engine
	logger logging.Logger
}

// NewService wires the plot service. engine may be nil when the document
// bridge is not needed.
func NewService(store *storage.Store, engine *session.Engine, logger logging.Logger) *Service {
	return &Service{store: store, engine: engine, logger: logging.OrNop(logger)}
}

// Graph is the result of a render_graph call.
type Graph struct {
	GUID      string `json:"guid,omitempty"`
	Alias     string `json:"alias,omitempty"`
	Content   string `json:"content,omitempty"`
	MediaType string `json:"media_type"`
	Size      int    `json:"size"`
}

// RenderGraph draws the chart. With store=false the bytes come back inline
// as base64; with store=true they are persisted with an optional alias for
// later retrieval.
func (s *Service) RenderGraph(ctx context.Context, p Params, store bool, alias, group string) (*Graph, error) {
	data, mediaType, err := Render(ctx, p)
	if err != nil {
		return nil, err
	}

	g := &Graph{MediaType: mediaType, Size: len(data)}
	if !store {
		g.Content = base64.StdEncoding.EncodeToString(data)
		return g, nil
	}

	extra := map[string]string{
		"artifact_type": ArtifactTypePlot,
		"media_type":    mediaType,
	}
	if alias != "" {
		extra["alias"] = alias
	}
	guid, err := s.store.Save(ctx, data, p.Format, group, extra)
	if err != nil {
		return nil, err
	}
	g.GUID = guid
	g.Alias = alias
	s.logger.Info("stored %s plot %s for group %s (%d bytes)", p.Kind, guid, group, len(data))
	return g, nil
}

// GetImage fetches a stored plot by GUID or alias, resolved within group.
func (s *Service) GetImage(ctx context.Context, identifier, group string) ([]byte, storage.Record, error) {
	data, record, err := s.store.Get(ctx, identifier, group)
	if err == nil {
		return data, record, nil
	}
	if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, storage.Record{}, err
	}

	// Not a GUID; try alias lookup.
	records, listErr := s.store.List(ctx, group, ByAlias(identifier))
	if listErr != nil {
		return nil, storage.Record{}, listErr
	}
	if len(records) == 0 {
		return nil, storage.Record{}, err
	}
	return s.store.Get(ctx, records[0].GUID, group)
}

// ByAlias matches stored artefacts by their alias metadata.
func ByAlias(alias string) storage.Filter {
	return func(r storage.Record) bool {
		return r.Extra["alias"] == alias
	}
}

// ListImages returns the group's stored plots.
func (s *Service) ListImages(ctx context.Context, group string) ([]storage.Record, error) {
	return s.store.List(ctx, group, storage.ByArtifactType(ArtifactTypePlot))
}

// AddPlotFragment bridges a chart into a document session: either a stored
// plot (by GUID or alias) or a fresh inline render is embedded as a data
// URI so documents stay self-contained.
func (s *Service) AddPlotFragment(ctx context.Context, sessionID, plotID string, inline *Params, title, position, group string) (session.AddOutput, error) {
	var data []byte
	var mediaType string

	switch {
	case plotID != "":
		blob, record, err := s.GetImage(ctx, plotID, group)
		if err != nil {
			return session.AddOutput{}, err
		}
		data = blob
		mediaType = record.Extra["media_type"]
		if mediaType == "" {
			mediaType = "image/png"
		}
	case inline != nil:
		var err error
		data, mediaType, err = Render(ctx, *inline)
		if err != nil {
			return session.AddOutput{}, err
		}
	default:
		return session.AddOutput{}, apperr.New(apperr.CodeInvalidArguments,
			"either plot_guid or inline chart parameters are required")
	}

	dataURI := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))
	params := map[string]any{
		"image_url":         dataURI,
		"embedded_data_uri": dataURI,
	}
	if title != "" {
		params["title"] = title
	}
	return s.engine.AddFragment(sessionID, "image_from_url", params, position, group)
}
