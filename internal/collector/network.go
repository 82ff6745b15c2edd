package collector

import (
	"context"

	"github.com/nao1215/socaudit/internal/model"
)

// CollectNetwork reads the inet socket table from src.
// When the table cannot be read, the error is kept in NetworkInfo.Error.
func CollectNetwork(ctx context.Context, src Source) model.NetworkInfo {
	conns, err := src.Connections(ctx)
	if err != nil {
		return model.NetworkInfo{Connections: []model.Connection{}, Error: err.Error()}
	}
	if conns == nil {
		conns = []model.Connection{}
	}
	return model.NetworkInfo{Connections: conns}
}
